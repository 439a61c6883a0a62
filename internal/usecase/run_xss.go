package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/ports"
	"github.com/aalvaropc/xssprobe/internal/usecase/inject"
	"github.com/aalvaropc/xssprobe/internal/usecase/match"
)

// DefaultDelay is the pause after each payload request before the next one starts.
const DefaultDelay = 100 * time.Millisecond

// RunXSSTest drives one reflected-XSS test: every payload of the configured
// level is injected into the target field, sent, and checked for an echo.
// Requests are strictly sequential and one instance runs one test at a time.
type RunXSSTest struct {
	payloads   ports.PayloadSource
	dispatcher ports.RequestDispatcher
	store      ports.RunStore

	delay time.Duration
	log   *slog.Logger
	now   func() time.Time
	newID func() string

	running atomic.Bool
}

type RunOption func(*RunXSSTest)

// WithDelay sets the inter-request pause; zero or negative disables it.
func WithDelay(d time.Duration) RunOption {
	return func(uc *RunXSSTest) { uc.delay = d }
}

// WithRunStore persists every finished run.
func WithRunStore(s ports.RunStore) RunOption {
	return func(uc *RunXSSTest) { uc.store = s }
}

func WithRunLogger(l *slog.Logger) RunOption {
	return func(uc *RunXSSTest) {
		if l != nil {
			uc.log = l
		}
	}
}

func WithClock(now func() time.Time) RunOption {
	return func(uc *RunXSSTest) {
		if now != nil {
			uc.now = now
		}
	}
}

func NewRunXSSTest(src ports.PayloadSource, d ports.RequestDispatcher, opts ...RunOption) *RunXSSTest {
	uc := &RunXSSTest{
		payloads:   src,
		dispatcher: d,
		delay:      DefaultDelay,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Running reports whether a test is in progress.
func (uc *RunXSSTest) Running() bool {
	return uc.running.Load()
}

// Execute runs the test for profile p stored under name. onEvent, if non-nil,
// is called synchronously after every processed payload.
//
// A profile that fails ValidateRun returns a *domain.ValidationError and no
// run is started. Otherwise the returned TestRun is always populated with
// whatever was processed, and the id is the persisted run id (empty when no
// store is configured). A cancelled ctx ends the run in RunCancelled and
// returns the context error.
func (uc *RunXSSTest) Execute(ctx context.Context, name string, p domain.RequestProfile, onEvent func(domain.RunEvent)) (domain.TestRun, string, error) {
	target, err := ValidateRun(p)
	if err != nil {
		return domain.TestRun{ProfileName: name, State: domain.RunIdle}, "", err
	}

	if !uc.running.CompareAndSwap(false, true) {
		return domain.TestRun{ProfileName: name, State: domain.RunIdle}, "", &domain.OpError{
			Op:   "run.start",
			Kind: domain.KindState,
			Path: name,
			Err:  domain.ErrRunInProgress,
		}
	}
	defer uc.running.Store(false)

	run := domain.TestRun{
		ID:          uc.newID(),
		ProfileName: name,
		Method:      p.Method,
		URL:         p.URL,
		Headers:     p.Headers.Clone(),
		Target:      target,
		Level:       p.XSS.PayloadLevel,
		State:       domain.RunRunning,
		StartedAt:   uc.now(),
		Results:     []domain.PayloadResult{},
	}
	log := uc.log.With("run_id", run.ID, "profile", name)
	log.Info("run.start", "target", target.Name, "kind", target.Kind, "level", run.Level)

	payloads, err := uc.payloads.Load(ctx, p.XSS.PayloadLevel)
	if err != nil {
		if !domain.IsKind(err, domain.KindLoad) {
			err = &domain.OpError{Op: "run.load", Kind: domain.KindLoad, Path: string(p.XSS.PayloadLevel), Err: err}
		}
		run.Summary = domain.RunSummary{}
		log.Error("run.failed", "err", err)
		return uc.finish(run, domain.RunFailed, err, log)
	}
	run.Summary.Total = len(payloads)

	for i, payload := range payloads {
		if err := ctx.Err(); err != nil {
			return uc.finish(run, domain.RunCancelled, err, log)
		}

		res, resp, ok := uc.attempt(ctx, p, target, i, payload)
		if ctx.Err() != nil && res.Error != nil {
			// The in-flight request was aborted; it is not a result.
			return uc.finish(run, domain.RunCancelled, ctx.Err(), log)
		}
		if ok && run.Notes == nil {
			run.Notes = match.Notes(resp)
		}

		run.Results = append(run.Results, res)
		if res.Matched {
			run.Summary.Matched++
		} else {
			run.Summary.NotMatched++
		}

		log.Debug("run.payload", "index", i, "status", res.Status, "matched", res.Matched)
		if onEvent != nil {
			onEvent(domain.RunEvent{
				Result:   res,
				Progress: float64(i+1) / float64(len(payloads)),
				Summary:  run.Summary,
			})
		}

		if i < len(payloads)-1 {
			if err := pause(ctx, uc.delay); err != nil {
				return uc.finish(run, domain.RunCancelled, err, log)
			}
		}
	}

	return uc.finish(run, domain.RunCompleted, nil, log)
}

// pause waits d after a request completes, returning early with ctx's error.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attempt injects, sends and classifies one payload. Failures are recorded on
// the result and never abort the run.
func (uc *RunXSSTest) attempt(ctx context.Context, p domain.RequestProfile, target domain.TargetField, i int, payload string) (domain.PayloadResult, domain.Response, bool) {
	res := domain.PayloadResult{Index: i, Payload: payload}

	injected, err := inject.Apply(p, target, payload)
	if err != nil {
		res.Error = domain.NewRunError(domain.RunErrorInjection, err.Error())
		return res, domain.Response{}, false
	}
	res.URL = injected.URL

	resp, err := uc.dispatcher.Dispatch(ctx, injected)
	if err != nil {
		kind := domain.RunErrorUnknown
		var ne *domain.NetworkError
		if errors.As(err, &ne) {
			kind = ne.Kind
		}
		res.Error = domain.NewRunError(kind, err.Error())
		return res, domain.Response{}, false
	}
	res.Status = resp.Status
	res.LatencyMS = resp.LatencyMS

	matched, err := match.Reflected(resp, payload, p.XSS.MatchPath)
	if err != nil {
		res.Error = domain.NewRunError(domain.RunErrorUnknown, err.Error())
		return res, resp, true
	}
	res.Matched = matched
	return res, resp, true
}

func (uc *RunXSSTest) finish(run domain.TestRun, state domain.RunState, runErr error, log *slog.Logger) (domain.TestRun, string, error) {
	run.State = state
	run.EndedAt = uc.now()
	if runErr != nil {
		run.Error = runErr.Error()
	}
	log.Info("run.done",
		"state", state,
		"matched", run.Summary.Matched,
		"not_matched", run.Summary.NotMatched,
		"total", run.Summary.Total,
	)

	var id string
	if uc.store != nil {
		saved, err := uc.store.SaveRun(run)
		if err != nil {
			log.Warn("run.save_failed", "err", err)
		} else {
			id = saved
		}
	}
	return run, id, runErr
}
