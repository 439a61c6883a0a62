package tui

import (
	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase"
)

type profileEntry struct {
	name    string
	profile domain.RequestProfile
}

type profilesLoadedMsg struct {
	current string
	entries []profileEntry
	err     error
}

type profileChangedMsg usecase.ProfileEvent

type profileActionDoneMsg struct {
	action string
	name   string
	err    error
}

type runEventMsg domain.RunEvent

type runDoneMsg struct {
	run domain.TestRun
	id  string
	err error
}
