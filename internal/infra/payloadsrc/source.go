// Package payloadsrc provides the payload wordlists for each level.
package payloadsrc

import (
	"bufio"
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/ports"
)

//go:embed wordlists/*.txt
var wordlists embed.FS

const maxListBytes = 8 << 20

// FileName is the file that holds the payloads of level.
func FileName(level domain.PayloadLevel) string {
	return string(level) + ".txt"
}

// Bundled returns the raw bundled wordlist for level.
func Bundled(level domain.PayloadLevel) ([]byte, error) {
	if !level.Valid() {
		return nil, loadErr(level, domain.ErrUnknownLevel)
	}
	b, err := wordlists.ReadFile("wordlists/" + FileName(level))
	if err != nil {
		return nil, loadErr(level, err)
	}
	return b, nil
}

// EmbeddedSource serves the wordlists compiled into the binary.
type EmbeddedSource struct{}

func Embedded() EmbeddedSource { return EmbeddedSource{} }

var _ ports.PayloadSource = EmbeddedSource{}

func (EmbeddedSource) Load(_ context.Context, level domain.PayloadLevel) ([]string, error) {
	b, err := Bundled(level)
	if err != nil {
		return nil, err
	}
	return Lines(bytes.NewReader(b))
}

// DirSource reads <dir>/<level>.txt.
type DirSource struct {
	dir string
}

func Dir(dir string) DirSource { return DirSource{dir: dir} }

var _ ports.PayloadSource = DirSource{}

func (s DirSource) Load(_ context.Context, level domain.PayloadLevel) ([]string, error) {
	if !level.Valid() {
		return nil, loadErr(level, domain.ErrUnknownLevel)
	}
	path := filepath.Join(s.dir, FileName(level))
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.OpError{Op: "payloads.load", Kind: domain.KindLoad, Path: path, Err: err}
	}
	defer f.Close()

	lines, err := Lines(io.LimitReader(f, maxListBytes))
	if err != nil {
		return nil, &domain.OpError{Op: "payloads.load", Kind: domain.KindLoad, Path: path, Err: err}
	}
	return lines, nil
}

// HTTPSource fetches <base>/<level>.txt.
type HTTPSource struct {
	base   string
	client *http.Client
}

func HTTP(base string, client *http.Client) HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return HTTPSource{base: strings.TrimRight(base, "/"), client: client}
}

var _ ports.PayloadSource = HTTPSource{}

func (s HTTPSource) Load(ctx context.Context, level domain.PayloadLevel) ([]string, error) {
	if !level.Valid() {
		return nil, loadErr(level, domain.ErrUnknownLevel)
	}
	url := s.base + "/" + FileName(level)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.OpError{Op: "payloads.fetch", Kind: domain.KindLoad, Path: url, Err: err}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &domain.OpError{Op: "payloads.fetch", Kind: domain.KindLoad, Path: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.OpError{
			Op:   "payloads.fetch",
			Kind: domain.KindLoad,
			Path: url,
			Err:  fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	lines, err := Lines(io.LimitReader(resp.Body, maxListBytes))
	if err != nil {
		return nil, &domain.OpError{Op: "payloads.fetch", Kind: domain.KindLoad, Path: url, Err: err}
	}
	return lines, nil
}

// FallbackSource reads from primary and uses secondary for levels primary
// does not have. Other primary failures are returned as is.
type FallbackSource struct {
	primary, secondary ports.PayloadSource
}

func Fallback(primary, secondary ports.PayloadSource) FallbackSource {
	return FallbackSource{primary: primary, secondary: secondary}
}

var _ ports.PayloadSource = FallbackSource{}

func (s FallbackSource) Load(ctx context.Context, level domain.PayloadLevel) ([]string, error) {
	l, err := s.primary.Load(ctx, level)
	if errors.Is(err, fs.ErrNotExist) {
		return s.secondary.Load(ctx, level)
	}
	return l, err
}

// CachedSource memoizes successful loads per level for its lifetime.
type CachedSource struct {
	src ports.PayloadSource

	mu    sync.Mutex
	lists map[domain.PayloadLevel][]string
}

func Cached(src ports.PayloadSource) *CachedSource {
	return &CachedSource{src: src, lists: map[domain.PayloadLevel][]string{}}
}

var _ ports.PayloadSource = (*CachedSource)(nil)

// Load returns a copy of the cached list, loading it on first use.
// Failures are not cached.
func (c *CachedSource) Load(ctx context.Context, level domain.PayloadLevel) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if l, ok := c.lists[level]; ok {
		return clone(l), nil
	}
	l, err := c.src.Load(ctx, level)
	if err != nil {
		return nil, err
	}
	c.lists[level] = clone(l)
	return l, nil
}

// Lines splits r into payloads: trailing CR removed, blank lines dropped,
// order kept. Leading and trailing spaces inside a payload are preserved.
func Lines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	out := []string{}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func loadErr(level domain.PayloadLevel, err error) error {
	return &domain.OpError{Op: "payloads.load", Kind: domain.KindLoad, Path: string(level), Err: err}
}
