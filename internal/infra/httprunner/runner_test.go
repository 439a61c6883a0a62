package httprunner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/infra/httpclient"
)

func getProfile(url string) domain.RequestProfile {
	p := domain.NewProfile()
	p.URL = url
	p.Headers = domain.Headers{{Name: "Accept", Value: "text/plain"}}
	return p
}

func TestDispatcher_TruncatesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Test", "1")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("a", 300*1024)))
	}))
	defer srv.Close()

	d := New(httpclient.New(httpclient.DefaultConfig()), WithMaxBodyBytes(256*1024))

	res, err := d.Dispatch(context.Background(), getProfile(srv.URL))
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if res.Status != 200 {
		t.Fatalf("expected 200, got=%d", res.Status)
	}
	if !res.Truncated {
		t.Fatalf("expected truncated=true")
	}
	if len(res.Body) != 256*1024 {
		t.Fatalf("expected body len=256KB, got=%d", len(res.Body))
	}
	if res.Headers["X-Test"][0] != "1" {
		t.Fatalf("expected header X-Test=1")
	}
}

func TestDispatcher_DecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json; charset=utf-8")
		w.Write([]byte(`{"echo":"<x>"}`))
	}))
	defer srv.Close()

	d := New(httpclient.New(httpclient.DefaultConfig()))
	res, err := d.Dispatch(context.Background(), getProfile(srv.URL))
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	doc, ok := res.JSON.(map[string]any)
	if !ok || doc["echo"] != "<x>" {
		t.Fatalf("expected decoded json, got %#v", res.JSON)
	}
	if res.Text() != `{"echo":"<x>"}` {
		t.Fatalf("expected raw text, got %q", res.Text())
	}
}

func TestDispatcher_TextStaysUndecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`{"looks":"like json"}`))
	}))
	defer srv.Close()

	d := New(httpclient.New(httpclient.DefaultConfig()))
	res, err := d.Dispatch(context.Background(), getProfile(srv.URL))
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if res.JSON != nil {
		t.Fatalf("expected no json decoding for text/html")
	}
}

func TestDispatcher_ClassifiesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := httpclient.DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	d := New(httpclient.New(cfg))

	_, err := d.Dispatch(context.Background(), getProfile(srv.URL))
	var ne *domain.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected network error, got %v", err)
	}
	if ne.Kind != domain.RunErrorTimeout {
		t.Fatalf("expected timeout kind, got=%s (msg=%s)", ne.Kind, ne.Message)
	}
}

func TestDispatcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	d := New(httpclient.New(httpclient.DefaultConfig()))
	_, err := d.Dispatch(context.Background(), getProfile(url))
	if !domain.IsKind(err, domain.KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestDispatcher_BuildErrorIsNotNetwork(t *testing.T) {
	d := New(httpclient.New(httpclient.DefaultConfig()))
	_, err := d.Dispatch(context.Background(), getProfile("nope"))
	if !domain.IsKind(err, domain.KindInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestClassifyRunErrorCancelled(t *testing.T) {
	if got := ClassifyRunError(context.Canceled); got != domain.RunErrorCancelled {
		t.Fatalf("expected cancelled, got %s", got)
	}
}

func TestDispatcher_RateLimitSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(httpclient.New(httpclient.DefaultConfig()), WithRateLimit(10))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := d.Dispatch(context.Background(), getProfile(srv.URL)); err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
	}
	// Burst of one at 10/s: the second and third requests wait ~100ms each.
	if elapsed := time.Since(start); elapsed < 180*time.Millisecond {
		t.Fatalf("expected rate limit to space requests, took %s", elapsed)
	}
}

func TestDispatcher_RateLimitHonorsCancel(t *testing.T) {
	d := New(httpclient.New(httpclient.DefaultConfig()), WithRateLimit(0.001))
	p := getProfile("http://127.0.0.1:1/")

	// The first token is free; the second would take ~1000s.
	_, _ = d.Dispatch(context.Background(), p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Dispatch(ctx, p)
	var ne *domain.NetworkError
	if !errors.As(err, &ne) || ne.Kind != domain.RunErrorCancelled {
		t.Fatalf("expected cancelled network error, got %v", err)
	}
}

func TestDispatcher_SendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := New(httpclient.New(httpclient.DefaultConfig()),
		WithBuildOptions(httpclient.WithBrowserHeaders()),
	)
	if _, err := d.Dispatch(context.Background(), getProfile(srv.URL)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got.Get("Accept") != "text/plain" {
		t.Fatalf("profile header replaced: %q", got.Get("Accept"))
	}
	if got.Get("Sec-Fetch-Mode") != "cors" {
		t.Fatalf("expected browser headers, got %v", got)
	}
}
