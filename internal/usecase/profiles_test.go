package usecase

import (
	"errors"
	"reflect"
	"testing"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/infra/profilestore"
)

func newBook(t *testing.T) *ProfileBook {
	t.Helper()
	b, err := NewProfileBook(profilestore.NewMemory())
	if err != nil {
		t.Fatalf("NewProfileBook: %v", err)
	}
	return b
}

func TestProfileBook_SeedsDefault(t *testing.T) {
	b := newBook(t)

	names, err := b.Names()
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if !reflect.DeepEqual(names, []string{DefaultProfileName}) {
		t.Fatalf("expected only default, got %v", names)
	}

	name, p, err := b.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if name != DefaultProfileName || p.Method != domain.MethodGet {
		t.Fatalf("unexpected current: %s %#v", name, p)
	}
}

func TestProfileBook_RepairsDanglingSelection(t *testing.T) {
	store := profilestore.NewMemory()
	if err := store.Save("beta", domain.NewProfile()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save("alpha", domain.NewProfile()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b, err := NewProfileBook(store)
	if err != nil {
		t.Fatalf("NewProfileBook: %v", err)
	}
	name, _, err := b.Current()
	if err != nil || name != "alpha" {
		t.Fatalf("expected alpha selected, got %q err=%v", name, err)
	}
}

func TestProfileBook_DeleteLastRejected(t *testing.T) {
	b := newBook(t)

	err := b.Delete(DefaultProfileName)
	if !errors.Is(err, domain.ErrLastProfile) {
		t.Fatalf("expected ErrLastProfile, got %v", err)
	}
	if !domain.IsKind(err, domain.KindState) {
		t.Fatalf("expected state kind, got %v", err)
	}
	if _, err := b.Get(DefaultProfileName); err != nil {
		t.Fatalf("expected default kept: %v", err)
	}
}

func TestProfileBook_DeleteCurrentSwitchesAndNotifies(t *testing.T) {
	b := newBook(t)
	if err := b.Create("api", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := b.Switch("api"); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	var got []ProfileEvent
	unsubscribe := b.Subscribe(func(ev ProfileEvent) { got = append(got, ev) })

	if err := b.Delete("api"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []ProfileEvent{
		{Kind: ProfileDeleted, Name: "api"},
		{Kind: ProfileSwitched, Name: DefaultProfileName},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	name, _, _ := b.Current()
	if name != DefaultProfileName {
		t.Fatalf("expected default selected, got %q", name)
	}

	unsubscribe()
	if err := b.Create("other", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected no events after unsubscribe, got %v", got)
	}
}

func TestProfileBook_CreateRejectsDuplicatesAndBlank(t *testing.T) {
	b := newBook(t)

	if err := b.Create(DefaultProfileName, nil); !errors.Is(err, domain.ErrProfileExists) {
		t.Fatalf("expected ErrProfileExists, got %v", err)
	}
	if err := b.Create("  ", nil); !errors.Is(err, domain.ErrEmptyProfileKey) {
		t.Fatalf("expected ErrEmptyProfileKey, got %v", err)
	}
}

func TestProfileBook_CreateFromCopiesProfile(t *testing.T) {
	b := newBook(t)

	src := domain.NewProfile()
	src.URL = "https://target.test/?a=1"
	_ = src.SyncParams()
	if err := b.Create("copy", &src); err != nil {
		t.Fatalf("Create: %v", err)
	}

	src.Params[0].Value = "changed"
	got, err := b.Get("copy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Params[0].Value != "1" {
		t.Fatalf("expected stored copy independent of source, got %#v", got.Params)
	}
}

func TestProfileBook_UpdatePersistsAndUnknownNameFails(t *testing.T) {
	b := newBook(t)

	err := b.Update(DefaultProfileName, func(p *domain.RequestProfile) error {
		p.Method = domain.MethodPost
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	p, _ := b.Get(DefaultProfileName)
	if p.Method != domain.MethodPost {
		t.Fatalf("expected update persisted, got %s", p.Method)
	}

	boom := errors.New("boom")
	if err := b.Update(DefaultProfileName, func(*domain.RequestProfile) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected fn error returned, got %v", err)
	}

	if err := b.Switch("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := b.Resolve("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from Resolve, got %v", err)
	}
}
