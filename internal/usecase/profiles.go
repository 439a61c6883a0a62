package usecase

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/ports"
)

// DefaultProfileName is seeded when the collection is empty.
const DefaultProfileName = "default"

// ProfileEventKind names a collection mutation.
type ProfileEventKind string

const (
	ProfileCreated  ProfileEventKind = "created"
	ProfileUpdated  ProfileEventKind = "updated"
	ProfileDeleted  ProfileEventKind = "deleted"
	ProfileSwitched ProfileEventKind = "switched"
)

// ProfileEvent is delivered to subscribers after a successful mutation.
type ProfileEvent struct {
	Kind ProfileEventKind
	Name string
}

// ProfileBook is the single accessor for the named profile collection.
// It keeps the store and its subscribers consistent; every mutation is
// persisted before listeners run.
type ProfileBook struct {
	mu    sync.Mutex
	store ports.ProfileStore

	listeners map[int]func(ProfileEvent)
	nextID    int
}

// NewProfileBook opens the collection and seeds DefaultProfileName when it is empty.
func NewProfileBook(store ports.ProfileStore) (*ProfileBook, error) {
	b := &ProfileBook{store: store, listeners: map[int]func(ProfileEvent){}}

	all, err := store.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		if err := store.Save(DefaultProfileName, domain.NewProfile()); err != nil {
			return nil, err
		}
		if err := store.SetCurrent(DefaultProfileName); err != nil {
			return nil, err
		}
		return b, nil
	}

	cur, err := store.CurrentName()
	if err != nil {
		return nil, err
	}
	if _, ok := all[cur]; !ok {
		if err := store.SetCurrent(sortedNames(all)[0]); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Subscribe registers fn and returns a function that removes it.
func (b *ProfileBook) Subscribe(fn func(ProfileEvent)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// Names returns profile names sorted alphabetically.
func (b *ProfileBook) Names() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	all, err := b.store.LoadAll()
	if err != nil {
		return nil, err
	}
	return sortedNames(all), nil
}

// Current returns the selected profile and its name.
func (b *ProfileBook) Current() (string, domain.RequestProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name, err := b.store.CurrentName()
	if err != nil {
		return "", domain.RequestProfile{}, err
	}
	p, err := b.getLocked(name)
	return name, p, err
}

// Get returns a copy of the named profile; edits to it are not persisted until Put.
func (b *ProfileBook) Get(name string) (domain.RequestProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getLocked(name)
}

// Resolve returns the named profile, or the current one when name is empty.
func (b *ProfileBook) Resolve(name string) (string, domain.RequestProfile, error) {
	if strings.TrimSpace(name) == "" {
		return b.Current()
	}
	p, err := b.Get(name)
	return name, p, err
}

// Create adds a new profile. A nil from starts from domain.NewProfile.
func (b *ProfileBook) Create(name string, from *domain.RequestProfile) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return stateErr("profiles.create", name, domain.ErrEmptyProfileKey)
	}

	b.mu.Lock()
	all, err := b.store.LoadAll()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if _, ok := all[name]; ok {
		b.mu.Unlock()
		return stateErr("profiles.create", name, domain.ErrProfileExists)
	}
	p := domain.NewProfile()
	if from != nil {
		p = from.Clone()
	}
	if err := b.store.Save(name, p); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	b.notify(ProfileEvent{Kind: ProfileCreated, Name: name})
	return nil
}

// Put replaces an existing profile.
func (b *ProfileBook) Put(name string, p domain.RequestProfile) error {
	b.mu.Lock()
	if _, err := b.getLocked(name); err != nil {
		b.mu.Unlock()
		return err
	}
	if err := b.store.Save(name, p.Clone()); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	b.notify(ProfileEvent{Kind: ProfileUpdated, Name: name})
	return nil
}

// Update applies fn to a copy of the named profile and persists the result.
func (b *ProfileBook) Update(name string, fn func(*domain.RequestProfile) error) error {
	b.mu.Lock()
	p, err := b.getLocked(name)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if err := fn(&p); err != nil {
		b.mu.Unlock()
		return err
	}
	if err := b.store.Save(name, p); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	b.notify(ProfileEvent{Kind: ProfileUpdated, Name: name})
	return nil
}

// Delete removes a profile. The last profile can never be deleted; deleting
// the current profile selects the first remaining one.
func (b *ProfileBook) Delete(name string) error {
	b.mu.Lock()
	all, err := b.store.LoadAll()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if _, ok := all[name]; !ok {
		b.mu.Unlock()
		return notFound("profiles.delete", name)
	}
	if len(all) <= 1 {
		b.mu.Unlock()
		return stateErr("profiles.delete", name, domain.ErrLastProfile)
	}

	cur, err := b.store.CurrentName()
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if err := b.store.Delete(name); err != nil {
		b.mu.Unlock()
		return err
	}
	switched := ""
	if cur == name {
		delete(all, name)
		switched = sortedNames(all)[0]
		if err := b.store.SetCurrent(switched); err != nil {
			b.mu.Unlock()
			return err
		}
	}
	b.mu.Unlock()

	b.notify(ProfileEvent{Kind: ProfileDeleted, Name: name})
	if switched != "" {
		b.notify(ProfileEvent{Kind: ProfileSwitched, Name: switched})
	}
	return nil
}

// Switch selects the named profile.
func (b *ProfileBook) Switch(name string) error {
	b.mu.Lock()
	if _, err := b.getLocked(name); err != nil {
		b.mu.Unlock()
		return err
	}
	if err := b.store.SetCurrent(name); err != nil {
		b.mu.Unlock()
		return err
	}
	b.mu.Unlock()

	b.notify(ProfileEvent{Kind: ProfileSwitched, Name: name})
	return nil
}

func (b *ProfileBook) getLocked(name string) (domain.RequestProfile, error) {
	all, err := b.store.LoadAll()
	if err != nil {
		return domain.RequestProfile{}, err
	}
	p, ok := all[name]
	if !ok {
		return domain.RequestProfile{}, notFound("profiles.get", name)
	}
	return p.Clone(), nil
}

func (b *ProfileBook) notify(ev ProfileEvent) {
	b.mu.Lock()
	ids := make([]int, 0, len(b.listeners))
	for id := range b.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(ProfileEvent), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, b.listeners[id])
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func sortedNames(all map[string]domain.RequestProfile) []string {
	out := make([]string, 0, len(all))
	for k := range all {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func stateErr(op, name string, err error) error {
	return &domain.OpError{Op: op, Kind: domain.KindState, Path: name, Err: err}
}

func notFound(op, name string) error {
	return &domain.OpError{
		Op:   op,
		Kind: domain.KindState,
		Path: name,
		Err:  fmt.Errorf("profile %q: %w", name, domain.ErrNotFound),
	}
}
