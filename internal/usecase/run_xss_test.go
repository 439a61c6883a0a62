package usecase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/infra/httpclient"
	"github.com/aalvaropc/xssprobe/internal/infra/httprunner"
)

// --- fakes ---

type fakePayloads struct {
	list []string
	err  error
}

func (f fakePayloads) Load(_ context.Context, _ domain.PayloadLevel) ([]string, error) {
	return f.list, f.err
}

// funcDispatcher delegates to fn and records every dispatched profile.
type funcDispatcher struct {
	mu    sync.Mutex
	fn    func(call int, p domain.RequestProfile) (domain.Response, error)
	calls []domain.RequestProfile
}

func (d *funcDispatcher) Dispatch(_ context.Context, p domain.RequestProfile) (domain.Response, error) {
	d.mu.Lock()
	call := len(d.calls)
	d.calls = append(d.calls, p)
	d.mu.Unlock()
	return d.fn(call, p)
}

type fakeRunStore struct {
	saved []domain.TestRun
	err   error
}

func (s *fakeRunStore) SaveRun(run domain.TestRun) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, run)
	return fmt.Sprintf("run-%d", len(s.saved)), nil
}

func searchProfile(url string) domain.RequestProfile {
	p := domain.NewProfile()
	p.URL = url + "/search?q=test"
	_ = p.SyncParams()
	p.XSS.TargetField = "q"
	return p
}

func echoBody(body string) func(int, domain.RequestProfile) (domain.Response, error) {
	return func(_ int, _ domain.RequestProfile) (domain.Response, error) {
		return domain.Response{Status: 200, Body: []byte(body)}, nil
	}
}

// --- integration ---

func TestRunXSSTest_EndToEnd_ReflectsOnlyUnescapedPayload(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.RawQuery)
		mu.Unlock()

		q := r.URL.Query().Get("q")
		if q != "<x>" {
			q = html.EscapeString(q)
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<p>results for %s</p>", q)
	}))
	defer srv.Close()

	disp := httprunner.New(httpclient.New(httpclient.DefaultConfig()))
	store := &fakeRunStore{}
	uc := NewRunXSSTest(fakePayloads{list: []string{"<x>", "<y>"}}, disp, WithDelay(0), WithRunStore(store))

	var events []domain.RunEvent
	run, id, err := uc.Execute(context.Background(), "default", searchProfile(srv.URL), func(ev domain.RunEvent) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if id != "run-1" || len(store.saved) != 1 {
		t.Fatalf("expected run persisted once, id=%q saved=%d", id, len(store.saved))
	}

	if run.State != domain.RunCompleted {
		t.Fatalf("expected completed, got %s", run.State)
	}
	if run.Summary != (domain.RunSummary{Matched: 1, NotMatched: 1, Total: 2}) {
		t.Fatalf("unexpected summary: %#v", run.Summary)
	}
	if !run.Results[0].Matched || run.Results[1].Matched {
		t.Fatalf("expected only first payload matched: %#v", run.Results)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "q=%3Cx%3E" || seen[1] != "q=%3Cy%3E" {
		t.Fatalf("unexpected request order/encoding: %v", seen)
	}

	if len(events) != 2 || events[0].Progress != 0.5 || events[1].Progress != 1 {
		t.Fatalf("unexpected events: %#v", events)
	}
	if events[1].Summary.Done() != 2 {
		t.Fatalf("expected final event to carry full summary, got %#v", events[1].Summary)
	}
	if len(run.Notes) == 0 {
		t.Fatalf("expected header notes for a response without CSP")
	}
}

// --- unit ---

func TestRunXSSTest_ValidationRejectsBeforeLoading(t *testing.T) {
	p := searchProfile("https://target.test")
	p.Method = domain.MethodPost

	loads := 0
	src := loadCounter{count: &loads}
	uc := NewRunXSSTest(src, &funcDispatcher{fn: echoBody("")}, WithDelay(0))

	run, _, err := uc.Execute(context.Background(), "default", p, nil)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "Request Body") {
		t.Fatalf("expected missing Request Body, got %v", err)
	}
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation kind")
	}
	if run.State != domain.RunIdle || loads != 0 {
		t.Fatalf("expected no run started, state=%s loads=%d", run.State, loads)
	}
}

type loadCounter struct{ count *int }

func (l loadCounter) Load(_ context.Context, _ domain.PayloadLevel) ([]string, error) {
	*l.count++
	return []string{"x"}, nil
}

func TestRunXSSTest_LoadFailureFailsRun(t *testing.T) {
	store := &fakeRunStore{}
	disp := &funcDispatcher{fn: echoBody("")}
	uc := NewRunXSSTest(fakePayloads{err: errors.New("disk gone")}, disp, WithDelay(0), WithRunStore(store))

	run, _, err := uc.Execute(context.Background(), "default", searchProfile("https://target.test"), nil)
	if !domain.IsKind(err, domain.KindLoad) {
		t.Fatalf("expected load error, got %v", err)
	}
	if run.State != domain.RunFailed {
		t.Fatalf("expected failed, got %s", run.State)
	}
	if run.Summary != (domain.RunSummary{}) || len(disp.calls) != 0 {
		t.Fatalf("expected zero counters and no requests, got %#v calls=%d", run.Summary, len(disp.calls))
	}
	if len(store.saved) != 1 || store.saved[0].State != domain.RunFailed {
		t.Fatalf("expected failed run persisted")
	}
	if uc.Running() {
		t.Fatalf("expected running flag cleared")
	}
}

func TestRunXSSTest_ContinuesAfterPayloadError(t *testing.T) {
	disp := &funcDispatcher{fn: func(call int, p domain.RequestProfile) (domain.Response, error) {
		if call == 1 {
			return domain.Response{}, &domain.NetworkError{Kind: domain.RunErrorConn, Message: "connection refused"}
		}
		v, _ := p.Params.Get("q")
		return domain.Response{Status: 200, Body: []byte("echo " + v)}, nil
	}}
	uc := NewRunXSSTest(fakePayloads{list: []string{"a", "b", "c"}}, disp, WithDelay(0))

	run, _, err := uc.Execute(context.Background(), "default", searchProfile("https://target.test"), nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if run.State != domain.RunCompleted || len(run.Results) != 3 {
		t.Fatalf("expected all payloads processed, state=%s results=%d", run.State, len(run.Results))
	}
	failed := run.Results[1]
	if failed.Error == nil || failed.Error.Kind != domain.RunErrorConn || failed.Matched {
		t.Fatalf("expected unmatched connection failure, got %#v", failed)
	}
	if run.Summary != (domain.RunSummary{Matched: 2, NotMatched: 1, Total: 3}) {
		t.Fatalf("unexpected summary: %#v", run.Summary)
	}
}

func TestRunXSSTest_CancelStopsBeforeNextPayload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disp := &funcDispatcher{fn: func(call int, _ domain.RequestProfile) (domain.Response, error) {
		if call == 0 {
			cancel()
		}
		return domain.Response{Status: 200, Body: []byte("nothing")}, nil
	}}
	store := &fakeRunStore{}
	uc := NewRunXSSTest(fakePayloads{list: []string{"a", "b", "c"}}, disp, WithDelay(0), WithRunStore(store))

	run, _, err := uc.Execute(ctx, "default", searchProfile("https://target.test"), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if run.State != domain.RunCancelled {
		t.Fatalf("expected cancelled, got %s", run.State)
	}
	if len(disp.calls) != 1 || len(run.Results) != 1 {
		t.Fatalf("expected one processed payload, calls=%d results=%d", len(disp.calls), len(run.Results))
	}
	if run.Summary.Total != 3 || run.Summary.Done() != 1 {
		t.Fatalf("unexpected summary: %#v", run.Summary)
	}
	if len(store.saved) != 1 || store.saved[0].State != domain.RunCancelled {
		t.Fatalf("expected cancelled run persisted")
	}
}

func TestRunXSSTest_RejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	disp := &funcDispatcher{fn: func(call int, _ domain.RequestProfile) (domain.Response, error) {
		if call == 0 {
			close(started)
			<-release
		}
		return domain.Response{Status: 200}, nil
	}}
	uc := NewRunXSSTest(fakePayloads{list: []string{"a"}}, disp, WithDelay(0))

	done := make(chan error, 1)
	go func() {
		_, _, err := uc.Execute(context.Background(), "first", searchProfile("https://target.test"), nil)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("first run never dispatched")
	}

	_, _, err := uc.Execute(context.Background(), "second", searchProfile("https://target.test"), nil)
	if !errors.Is(err, domain.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first run error: %v", err)
	}
	if uc.Running() {
		t.Fatalf("expected running flag cleared")
	}
}

func TestRunXSSTest_InjectsIntoJSONBody(t *testing.T) {
	disp := &funcDispatcher{fn: func(_ int, p domain.RequestProfile) (domain.Response, error) {
		return domain.Response{Status: 200, Body: []byte(p.Body.Content)}, nil
	}}
	p := domain.NewProfile()
	p.Method = domain.MethodPost
	p.URL = "https://target.test/api"
	p.Body = domain.BodySpec{Type: domain.BodyRaw, Content: `{"user":{"name":"a"},"id":1}`}
	p.XSS = domain.XSSConfig{ValueType: domain.ValueBody, TargetField: "user.name", PayloadLevel: domain.LevelBasic}

	uc := NewRunXSSTest(fakePayloads{list: []string{`"><svg onload=alert(1)>`}}, disp, WithDelay(0))
	run, _, err := uc.Execute(context.Background(), "api", p, nil)
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	got := disp.calls[0].Body.Content
	if !strings.Contains(got, `"name":"\"><svg onload=alert(1)>"`) || !strings.Contains(got, `"id":1`) {
		t.Fatalf("unexpected injected body: %s", got)
	}
	if run.Target.Kind != domain.TargetJSON {
		t.Fatalf("expected json target, got %s", run.Target.Kind)
	}
}

func TestRunXSSTest_StoreFailureIsNotFatal(t *testing.T) {
	store := &fakeRunStore{err: errors.New("read-only")}
	uc := NewRunXSSTest(fakePayloads{list: []string{"x"}}, &funcDispatcher{fn: echoBody("x")}, WithDelay(0), WithRunStore(store))

	run, id, err := uc.Execute(context.Background(), "default", searchProfile("https://target.test"), nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != "" || run.State != domain.RunCompleted {
		t.Fatalf("expected completed run without id, got id=%q state=%s", id, run.State)
	}
}

func TestRunXSSTest_DelayFollowsEachResponse(t *testing.T) {
	const delay = 40 * time.Millisecond

	var (
		mu     sync.Mutex
		starts []time.Time
		ends   []time.Time
	)
	disp := &funcDispatcher{fn: func(_ int, _ domain.RequestProfile) (domain.Response, error) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		// Slower than the delay: start-to-start spacing alone would not pause.
		time.Sleep(2 * delay)
		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
		return domain.Response{Status: 200, Body: []byte("nothing")}, nil
	}}
	uc := NewRunXSSTest(fakePayloads{list: []string{"a", "b", "c"}}, disp, WithDelay(delay))

	run, _, err := uc.Execute(context.Background(), "default", searchProfile("https://target.test"), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if run.State != domain.RunCompleted || len(starts) != 3 {
		t.Fatalf("unexpected run: state=%s calls=%d", run.State, len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(ends[i-1]); gap < delay {
			t.Fatalf("request %d started %s after the previous response, want >= %s", i, gap, delay)
		}
	}
}

func TestRunXSSTest_CancelDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	disp := &funcDispatcher{fn: echoBody("nothing")}
	uc := NewRunXSSTest(fakePayloads{list: []string{"a", "b"}}, disp, WithDelay(time.Hour))

	done := make(chan struct{})
	var (
		run domain.TestRun
		err error
	)
	go func() {
		defer close(done)
		run, _, err = uc.Execute(ctx, "default", searchProfile("https://target.test"), func(domain.RunEvent) { cancel() })
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop while pausing")
	}
	if !errors.Is(err, context.Canceled) || run.State != domain.RunCancelled {
		t.Fatalf("expected cancelled run, got state=%s err=%v", run.State, err)
	}
	if len(run.Results) != 1 {
		t.Fatalf("expected one result, got %d", len(run.Results))
	}
}
