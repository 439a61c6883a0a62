package tui

import (
	"log/slog"
	"time"

	"github.com/aalvaropc/xssprobe/internal/ports"
	"github.com/aalvaropc/xssprobe/internal/usecase"
)

type Deps struct {
	Root string

	Book       *usecase.ProfileBook
	Payloads   ports.PayloadSource
	Dispatcher ports.RequestDispatcher
	Runs       ports.RunStore
	Delay      time.Duration

	Logger *slog.Logger
	Debug  bool
}
