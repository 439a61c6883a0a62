package payloadsrc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

func TestLinesDropsBlankAndKeepsOrder(t *testing.T) {
	got, err := Lines(strings.NewReader("<a>\r\n\n   \n <b> \n<c>"))
	require.NoError(t, err)
	assert.Equal(t, []string{"<a>", " <b> ", "<c>"}, got)
}

func TestEmbeddedLevels(t *testing.T) {
	ctx := context.Background()
	sizes := map[domain.PayloadLevel]int{}
	for _, level := range domain.PayloadLevels() {
		l, err := Embedded().Load(ctx, level)
		require.NoError(t, err, level)
		require.NotEmpty(t, l, level)
		sizes[level] = len(l)
	}
	assert.Less(t, sizes[domain.LevelBasic], sizes[domain.LevelMedium])
	assert.Less(t, sizes[domain.LevelMedium], sizes[domain.LevelAdvance])
}

func TestUnknownLevel(t *testing.T) {
	_, err := Embedded().Load(context.Background(), "extreme")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindLoad))
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basic.txt"), []byte("<x>\n<y>\n"), 0o644))

	got, err := Dir(dir).Load(context.Background(), domain.LevelBasic)
	require.NoError(t, err)
	assert.Equal(t, []string{"<x>", "<y>"}, got)

	_, err = Dir(dir).Load(context.Background(), domain.LevelMedium)
	assert.True(t, domain.IsKind(err, domain.KindLoad))
}

func TestHTTPSourceNon200IsLoadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/lists/basic.txt" {
			_, _ = w.Write([]byte("<p>\n"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	src := HTTP(srv.URL+"/lists/", srv.Client())

	got, err := src.Load(context.Background(), domain.LevelBasic)
	require.NoError(t, err)
	assert.Equal(t, []string{"<p>"}, got)

	_, err = src.Load(context.Background(), domain.LevelAdvance)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindLoad))
}

type countingSource struct {
	calls atomic.Int32
	fail  bool
}

func (c *countingSource) Load(_ context.Context, _ domain.PayloadLevel) ([]string, error) {
	c.calls.Add(1)
	if c.fail {
		return nil, &domain.OpError{Op: "test", Kind: domain.KindLoad}
	}
	return []string{"<a>", "<b>"}, nil
}

func TestCachedLoadsOncePerLevel(t *testing.T) {
	inner := &countingSource{}
	c := Cached(inner)
	ctx := context.Background()

	first, err := c.Load(ctx, domain.LevelBasic)
	require.NoError(t, err)
	first[0] = "mutated"

	second, err := c.Load(ctx, domain.LevelBasic)
	require.NoError(t, err)
	assert.Equal(t, []string{"<a>", "<b>"}, second)
	assert.Equal(t, int32(1), inner.calls.Load())

	_, err = c.Load(ctx, domain.LevelMedium)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestCachedDoesNotCacheFailures(t *testing.T) {
	inner := &countingSource{fail: true}
	c := Cached(inner)

	_, err := c.Load(context.Background(), domain.LevelBasic)
	require.Error(t, err)
	_, err = c.Load(context.Background(), domain.LevelBasic)
	require.Error(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestFallbackUsesSecondaryOnlyForMissingLevels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "basic.txt"), []byte("<mine>\n"), 0o644))

	src := Fallback(Dir(dir), Embedded())
	ctx := context.Background()

	basic, err := src.Load(ctx, domain.LevelBasic)
	require.NoError(t, err)
	assert.Equal(t, []string{"<mine>"}, basic)

	medium, err := src.Load(ctx, domain.LevelMedium)
	require.NoError(t, err)
	bundled, err := Embedded().Load(ctx, domain.LevelMedium)
	require.NoError(t, err)
	assert.Equal(t, bundled, medium)

	_, err = src.Load(ctx, "extreme")
	assert.True(t, domain.IsKind(err, domain.KindLoad))
}
