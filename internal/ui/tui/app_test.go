package tui

import (
	"context"
	"errors"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/infra/profilestore"
	"github.com/aalvaropc/xssprobe/internal/usecase"
)

func newTestModel(t *testing.T) (model, *usecase.ProfileBook) {
	t.Helper()

	book, err := usecase.NewProfileBook(profilestore.NewMemory())
	require.NoError(t, err)

	p := domain.NewProfile()
	p.URL = "https://example.test/search?q=1&page=2"
	require.NoError(t, p.SyncParams())
	require.NoError(t, book.Put(usecase.DefaultProfileName, p))

	m := newModel(context.Background(), Deps{Root: t.TempDir(), Book: book}, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(model)
	next, _ = m.Update(cmdLoadProfiles(book)())
	return next.(model), book
}

func press(t *testing.T, m model, key tea.KeyMsg) (model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(key)
	var msg tea.Msg
	if cmd != nil {
		msg = cmd()
	}
	return next.(model), msg
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_OpenProfileShowsDetail(t *testing.T) {
	m, _ := newTestModel(t)
	require.Equal(t, []string{usecase.DefaultProfileName}, m.names)

	m, msg := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.IsType(t, profileActionDoneMsg{}, msg)

	next, _ := m.Update(msg)
	m = next.(model)
	assert.Equal(t, screenDetail, m.scr)
	assert.Equal(t, usecase.DefaultProfileName, m.name)
	assert.Len(t, m.fields, 2)
	assert.Contains(t, m.View(), "Fields:")
}

func TestModel_CycleLevelAndTarget(t *testing.T) {
	m, book := newTestModel(t)
	m, msg := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(msg)
	m = next.(model)

	_, msg = press(t, m, runes("l"))
	require.NoError(t, msg.(profileActionDoneMsg).err)

	p, err := book.Get(usecase.DefaultProfileName)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelBasic, p.XSS.PayloadLevel)

	_, msg = press(t, m, runes("t"))
	require.NoError(t, msg.(profileActionDoneMsg).err)

	p, err = book.Get(usecase.DefaultProfileName)
	require.NoError(t, err)
	assert.Equal(t, "q", p.XSS.TargetField)
	assert.Equal(t, domain.ValueParams, p.XSS.ValueType)
}

func TestModel_RunRejectedWithoutTarget(t *testing.T) {
	m, _ := newTestModel(t)
	m, msg := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	next, _ := m.Update(msg)
	m = next.(model)

	m, _ = press(t, m, runes("r"))
	assert.Equal(t, screenDetail, m.scr)
	assert.False(t, m.running)
	assert.Contains(t, m.toast, "Target Field")
}

func TestModel_NewProfileGetsFreeName(t *testing.T) {
	m, book := newTestModel(t)
	require.NoError(t, book.Create("profile-1", nil))
	next, _ := m.Update(cmdLoadProfiles(book)())
	m = next.(model)

	_, msg := press(t, m, runes("n"))
	done := msg.(profileActionDoneMsg)
	require.NoError(t, done.err)
	assert.Equal(t, "profile-2", done.name)
}

func TestModel_DeleteLastProfileShowsToast(t *testing.T) {
	m, _ := newTestModel(t)

	m, msg := press(t, m, runes("d"))
	next, _ := m.Update(msg)
	m = next.(model)
	assert.Equal(t, "Cannot delete the only profile", m.toast)
}

func TestSafeModel_RecoversFromPanic(t *testing.T) {
	m, _ := newTestModel(t)
	m.scr = screenRun
	m.running = true
	cancelled := false
	m.cancel = func() { cancelled = true }
	m.deps.Book = nil

	s := wrapSafe(m, nil)
	next, cmd := s.Update(profileActionDoneMsg{action: "switch", name: "x"})
	assert.Nil(t, cmd)

	s = next.(safeModel)
	assert.True(t, cancelled)
	assert.Equal(t, screenProfiles, s.m.scr)
	assert.False(t, s.m.running)
	assert.Equal(t, "Unexpected error (see logs)", s.m.toast)
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&domain.ValidationError{Missing: []string{"URL", "Target Field"}}, "Cannot start test: URL, Target Field"},
		{fmt.Errorf("wrap: %w", context.Canceled), "Cancelled"},
		{&domain.OpError{Op: "usecase.run", Kind: domain.KindState, Err: domain.ErrRunInProgress}, "A test is already running"},
		{&domain.NetworkError{Kind: domain.RunErrorTimeout, Message: "deadline"}, "Network error (timeout)"},
		{&domain.OpError{Op: "payloadsrc.load", Kind: domain.KindLoad, Err: errors.New("boom")}, "Could not load payloads"},
		{&domain.OpError{Op: "profiles.get", Kind: domain.KindNotFound, Path: "x", Err: domain.ErrNotFound}, "Not found: x"},
		{&domain.OpError{Op: "yamlprofile.import", Kind: domain.KindInvalidConfig, Path: "/tmp/p.yaml", Err: errors.New("yaml: line 7: did not find expected key")}, "Invalid YAML at p.yaml line 7"},
		{errors.New("boom"), "Unexpected error (see logs)"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, userMessage(tc.err))
	}
}

func TestClampString(t *testing.T) {
	assert.Equal(t, "abc", clampString("abc", 5))
	assert.Equal(t, "ab…", clampString("abcdef", 2))
	assert.Equal(t, "", clampString("abc", 0))
}
