package runstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

func sampleRun(start time.Time) domain.TestRun {
	return domain.TestRun{
		ID:          "7d1c",
		ProfileName: "Demo API",
		Method:      domain.MethodGet,
		URL:         "http://x/search?q=1&api_key=abc",
		Headers: domain.Headers{
			{Name: "Authorization", Value: "Bearer secret"},
			{Name: "Accept", Value: "*/*"},
		},
		Target:    domain.TargetField{Name: "q", Kind: domain.TargetParam},
		Level:     domain.LevelBasic,
		State:     domain.RunCompleted,
		StartedAt: start,
		EndedAt:   start.Add(2 * time.Second),
		Results: []domain.PayloadResult{
			{Index: 0, Payload: "<x>", Matched: true, Status: 200, URL: "http://x/search?q=%3Cx%3E&api_key=abc"},
			{Index: 1, Payload: "<y>", Error: domain.NewRunError(domain.RunErrorTimeout, "slow")},
		},
		Summary: domain.RunSummary{Matched: 1, NotMatched: 1, Total: 2},
	}
}

func TestSaveRun_CreatesJSONFile(t *testing.T) {
	tmp := t.TempDir()

	cfg := domain.DefaultConfig()
	cfg.Paths.RunsDir = "runs"
	cfg.Masking.Enabled = false

	store := NewJSONStore(tmp, cfg)

	start := time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC)
	id, err := store.SaveRun(sampleRun(start))
	if err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}
	if id != "20260203T101112Z_demo-api" {
		t.Fatalf("unexpected id %q", id)
	}

	wantFile := filepath.Join(tmp, "runs", "20260203T101112Z_demo-api.json")
	b, err := os.ReadFile(wantFile)
	if err != nil {
		t.Fatalf("expected file at %s: %v", wantFile, err)
	}

	var decoded runFile
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded.Summary.Matched != 1 || len(decoded.Results) != 2 {
		t.Fatalf("unexpected content: %+v", decoded)
	}
	if decoded.Results[1].ErrorKind != "timeout" {
		t.Fatalf("expected error kind, got %+v", decoded.Results[1])
	}
	if !strings.Contains(string(b), "Bearer secret") {
		t.Fatalf("masking disabled: header should be kept")
	}
}

func TestSaveRun_MasksSecrets(t *testing.T) {
	tmp := t.TempDir()
	store := NewJSONStore(tmp, domain.DefaultConfig())

	run := sampleRun(time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC))
	if _, err := store.SaveRun(run); err != nil {
		t.Fatalf("SaveRun error: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(tmp, "runs", "20260203T101112Z_demo-api.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	s := string(b)
	if strings.Contains(s, "Bearer secret") || strings.Contains(s, "api_key=abc") {
		t.Fatalf("expected secrets masked:\n%s", s)
	}
	if !strings.Contains(s, "api_key=********") {
		t.Fatalf("expected readable mask in url:\n%s", s)
	}
	if run.Headers[0].Value != "Bearer secret" {
		t.Fatalf("input run mutated")
	}
}

func TestSaveRun_IndexAndList(t *testing.T) {
	tmp := t.TempDir()
	store := NewJSONStore(tmp, domain.DefaultConfig(), WithIndex(true))

	start := time.Date(2026, 2, 3, 10, 11, 12, 0, time.UTC)
	if _, err := store.SaveRun(sampleRun(start)); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	second := sampleRun(start.Add(time.Minute))
	second.ProfileName = "other"
	if _, err := store.SaveRun(second); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	entries, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[1].Profile != "other" || entries[0].Matched != 1 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestList_NoIndex(t *testing.T) {
	store := NewJSONStore(t.TempDir(), domain.DefaultConfig())
	entries, err := store.List()
	if err != nil || len(entries) != 0 {
		t.Fatalf("expected empty list, got %v %v", entries, err)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Demo API":    "demo-api",
		"  a__b..c  ": "a-b-c",
		"!!!":         "",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q)=%q want %q", in, got, want)
		}
	}
}
