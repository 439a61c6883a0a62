package runstore

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/ports"
)

const defaultRunsDir = "runs"
const maskValue = "********"
const indexFile = "index.jsonl"

type JSONStore struct {
	rootDir        string
	runsDirName    string
	maskingEnabled bool
	writeIndex     bool
	now            func() time.Time
}

type Option func(*JSONStore)

// WithIndex enables a simple JSONL index: runs/index.jsonl
func WithIndex(enabled bool) Option {
	return func(s *JSONStore) { s.writeIndex = enabled }
}

// WithNow is useful for tests.
func WithNow(now func() time.Time) Option {
	return func(s *JSONStore) { s.now = now }
}

func NewJSONStore(root string, cfg domain.Config, opts ...Option) *JSONStore {
	runsDir := cfg.Paths.RunsDir
	if strings.TrimSpace(runsDir) == "" {
		runsDir = defaultRunsDir
	}

	s := &JSONStore{
		rootDir:        root,
		runsDirName:    runsDir,
		maskingEnabled: cfg.Masking.Enabled,
		writeIndex:     false,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.RunStore = (*JSONStore)(nil)

// Dir is the directory runs are written to.
func (s *JSONStore) Dir() string {
	return filepath.Join(s.rootDir, s.runsDirName)
}

func (s *JSONStore) SaveRun(run domain.TestRun) (string, error) {
	dir := s.Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &domain.OpError{
			Op:   "runstore.mkdir",
			Kind: domain.KindExecution,
			Path: dir,
			Err:  err,
		}
	}

	ts := run.StartedAt
	if ts.IsZero() {
		ts = s.now()
	}
	ts = ts.UTC()

	toSave := run
	if toSave.StartedAt.IsZero() {
		toSave.StartedAt = ts
	}
	slug := slugify(run.ProfileName)
	if slug == "" {
		slug = "run"
	}

	filename := fmt.Sprintf("%s_%s.json", ts.Format("20060102T150405Z"), slug)
	id := strings.TrimSuffix(filename, ".json")
	path := filepath.Join(dir, filename)

	if s.maskingEnabled {
		toSave = maskRun(toSave)
	}

	b, err := json.MarshalIndent(toFile(toSave), "", "  ")
	if err != nil {
		return "", &domain.OpError{
			Op:   "runstore.marshal",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	// Atomic-ish write: tmp then rename.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return "", &domain.OpError{
			Op:   "runstore.write",
			Kind: domain.KindExecution,
			Path: tmp,
			Err:  err,
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", &domain.OpError{
			Op:   "runstore.rename",
			Kind: domain.KindExecution,
			Path: path,
			Err:  err,
		}
	}

	if s.writeIndex {
		_ = s.appendIndex(dir, id, filename, toSave)
	}

	return id, nil
}

// IndexEntry is one line of runs/index.jsonl.
type IndexEntry struct {
	ID        string    `json:"id"`
	RunID     string    `json:"run_id"`
	File      string    `json:"file"`
	Profile   string    `json:"profile"`
	Target    string    `json:"target"`
	Level     string    `json:"level"`
	State     string    `json:"state"`
	Matched   int       `json:"matched"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at"`
}

func (s *JSONStore) appendIndex(dir, id, filename string, run domain.TestRun) error {
	line, err := json.Marshal(IndexEntry{
		ID:        id,
		RunID:     run.ID,
		File:      filename,
		Profile:   run.ProfileName,
		Target:    run.Target.Name,
		Level:     string(run.Level),
		State:     string(run.State),
		Matched:   run.Summary.Matched,
		Total:     run.Summary.Total,
		StartedAt: run.StartedAt,
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, indexFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, _ = f.Write(append(line, '\n'))
	return nil
}

// List reads the run index, oldest first. A missing index yields no entries.
func (s *JSONStore) List() ([]IndexEntry, error) {
	path := filepath.Join(s.Dir(), indexFile)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []IndexEntry{}, nil
	}
	if err != nil {
		return nil, &domain.OpError{Op: "runstore.list", Kind: domain.KindExecution, Path: path, Err: err}
	}
	defer f.Close()

	out := []IndexEntry{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var e IndexEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, &domain.OpError{Op: "runstore.list", Kind: domain.KindExecution, Path: path, Err: err}
	}
	return out, nil
}

// maskRun returns a masked copy (does NOT mutate the input).
func maskRun(run domain.TestRun) domain.TestRun {
	out := run
	out.URL = maskURL(run.URL)

	out.Headers = make(domain.Headers, 0, len(run.Headers))
	for _, h := range run.Headers {
		if isSensitiveHeaderKey(h.Name) {
			h.Value = maskValue
		}
		out.Headers = append(out.Headers, h)
	}

	out.Results = make([]domain.PayloadResult, 0, len(run.Results))
	for _, r := range run.Results {
		c := r
		c.URL = maskURL(r.URL)
		if r.Error != nil {
			e := *r.Error
			c.Error = &e
		}
		out.Results = append(out.Results, c)
	}
	return out
}

// maskURL hides values of sensitive query parameters.
func maskURL(raw string) string {
	if raw == "" {
		return raw
	}
	ps, err := domain.ParamsFromURL(raw)
	if err != nil {
		return raw
	}
	changed := false
	for i, p := range ps {
		if isSensitiveKey(p.Key) {
			ps[i].Value = maskValue
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u, err := domain.URLWithParams(raw, ps)
	if err != nil {
		return raw
	}
	// Keep the mask readable instead of percent-encoded.
	return strings.ReplaceAll(u, url.QueryEscape(maskValue), maskValue)
}

func isSensitiveKey(k string) bool {
	kk := strings.ToLower(k)
	switch kk {
	case "key", "api_key", "apikey", "access_token", "auth":
		return true
	}
	return strings.Contains(kk, "token") ||
		strings.Contains(kk, "secret") ||
		strings.Contains(kk, "password")
}

func isSensitiveHeaderKey(k string) bool {
	kk := strings.ToLower(strings.TrimSpace(k))
	switch kk {
	case "authorization", "proxy-authorization", "cookie", "set-cookie", "x-api-key", "x-auth-token":
		return true
	}

	return strings.Contains(kk, "token") ||
		strings.Contains(kk, "secret") ||
		strings.Contains(kk, "password") ||
		strings.Contains(kk, "api-key") ||
		strings.Contains(kk, "apikey")
}

// slugify produces a safe filename component.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	lastDash := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	return strings.Trim(b.String(), "-")
}
