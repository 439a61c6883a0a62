package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase"
)

func cmdLoadProfiles(book *usecase.ProfileBook) tea.Cmd {
	return func() tea.Msg {
		names, err := book.Names()
		if err != nil {
			return profilesLoadedMsg{err: err}
		}
		cur, _, err := book.Current()
		if err != nil {
			return profilesLoadedMsg{err: err}
		}

		entries := make([]profileEntry, 0, len(names))
		for _, n := range names {
			p, err := book.Get(n)
			if err != nil {
				return profilesLoadedMsg{err: err}
			}
			entries = append(entries, profileEntry{name: n, profile: p})
		}
		return profilesLoadedMsg{current: cur, entries: entries}
	}
}

// listenProfiles waits for the next collection change pushed by the book.
func listenProfiles(ch <-chan usecase.ProfileEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return profileChangedMsg(ev)
	}
}

func cmdSwitchProfile(book *usecase.ProfileBook, name string) tea.Cmd {
	return func() tea.Msg {
		return profileActionDoneMsg{action: "switch", name: name, err: book.Switch(name)}
	}
}

func cmdCreateProfile(book *usecase.ProfileBook, existing []string) tea.Cmd {
	return func() tea.Msg {
		taken := map[string]bool{}
		for _, n := range existing {
			taken[n] = true
		}
		name := ""
		for i := 1; ; i++ {
			name = fmt.Sprintf("profile-%d", i)
			if !taken[name] {
				break
			}
		}
		return profileActionDoneMsg{action: "create", name: name, err: book.Create(name, nil)}
	}
}

func cmdDeleteProfile(book *usecase.ProfileBook, name string) tea.Cmd {
	return func() tea.Msg {
		return profileActionDoneMsg{action: "delete", name: name, err: book.Delete(name)}
	}
}

func cmdUpdateProfile(book *usecase.ProfileBook, name string, fn func(*domain.RequestProfile) error) tea.Cmd {
	return func() tea.Msg {
		return profileActionDoneMsg{action: "update", name: name, err: book.Update(name, fn)}
	}
}

// listenRun delivers run events in order, then the final result.
func listenRun(events <-chan domain.RunEvent, done <-chan runDoneMsg) tea.Cmd {
	return func() tea.Msg {
		if ev, ok := <-events; ok {
			return runEventMsg(ev)
		}
		return <-done
	}
}

// startRunAsync runs the test in a goroutine. Cancelling the returned func
// stops the run after the in-flight request.
func startRunAsync(parent context.Context, deps Deps, name string, p domain.RequestProfile) (<-chan domain.RunEvent, <-chan runDoneMsg, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	events := make(chan domain.RunEvent, 1)
	done := make(chan runDoneMsg, 1)

	opts := []usecase.RunOption{
		usecase.WithDelay(deps.Delay),
		usecase.WithRunLogger(deps.Logger),
	}
	if deps.Runs != nil {
		opts = append(opts, usecase.WithRunStore(deps.Runs))
	}
	uc := usecase.NewRunXSSTest(deps.Payloads, deps.Dispatcher, opts...)

	go func() {
		run, id, err := uc.Execute(ctx, name, p, func(ev domain.RunEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
		close(events)
		done <- runDoneMsg{run: run, id: id, err: err}
	}()

	return events, done, cancel
}
