package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aalvaropc/xssprobe/internal/buildinfo"
	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/infra/httpclient"
	"github.com/aalvaropc/xssprobe/internal/infra/httprunner"
	"github.com/aalvaropc/xssprobe/internal/infra/logger"
	"github.com/aalvaropc/xssprobe/internal/infra/payloadsrc"
	"github.com/aalvaropc/xssprobe/internal/infra/profilestore"
	"github.com/aalvaropc/xssprobe/internal/infra/runstore"
	"github.com/aalvaropc/xssprobe/internal/infra/workspacefinder"
	"github.com/aalvaropc/xssprobe/internal/ports"
	"github.com/aalvaropc/xssprobe/internal/usecase"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	workspace string
	debug     bool
	ephemeral bool
}

type workspaceCtx struct {
	root string
	cfg  domain.Config
	log  *slog.Logger

	book       *usecase.ProfileBook
	payloads   ports.PayloadSource
	dispatcher ports.RequestDispatcher
	runs       *runstore.JSONStore

	closers []func() error
}

// Close releases the database and the log file.
func (ws *workspaceCtx) Close() error {
	var first error
	for i := len(ws.closers) - 1; i >= 0; i-- {
		if err := ws.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	ws.closers = nil
	return first
}

func loadWorkspace(g *globalFlags) (*workspaceCtx, error) {
	root, err := resolveWorkspaceRoot(g.workspace)
	if err != nil {
		return nil, err
	}

	cfg, err := workspacefinder.LoadConfig(root)
	if err != nil {
		return nil, err
	}

	ws := &workspaceCtx{root: root, cfg: cfg, log: slog.New(slog.NewJSONHandler(io.Discard, nil))}

	cleanup, lerr := logger.Setup(logger.Config{
		Root:       root,
		Debug:      g.debug,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
	if lerr == nil && cleanup != nil {
		ws.log = logger.L()
		ws.closers = append(ws.closers, cleanup)
	}

	var store ports.ProfileStore
	if g.ephemeral {
		store = profilestore.NewMemory()
	} else {
		db, err := profilestore.OpenSQLite(
			workspacefinder.Resolve(root, cfg.Paths.Database),
			profilestore.WithLogger(ws.log),
		)
		if err != nil {
			_ = ws.Close()
			return nil, err
		}
		store = db
		ws.closers = append(ws.closers, db.Close)
	}

	book, err := usecase.NewProfileBook(store)
	if err != nil {
		_ = ws.Close()
		return nil, err
	}
	ws.book = book

	ua := cfg.HTTP.UserAgent
	if ua == "" {
		ua = buildinfo.UserAgent()
	}

	hc := httpclient.DefaultConfig()
	hc.Timeout = cfg.HTTP.Timeout
	hc.Insecure = cfg.HTTP.Insecure
	hc.FollowRedirects = cfg.HTTP.FollowRedirects
	client := httpclient.New(hc)

	build := []httpclient.BuildOption{httpclient.WithDefaultHeaders(cfg.HTTP.DefaultHeaders)}
	if cfg.HTTP.BrowserHeaders {
		build = append(build, httpclient.WithBrowserHeaders())
	}
	ws.dispatcher = httprunner.New(client,
		httprunner.WithMaxBodyBytes(cfg.HTTP.MaxBodyBytes),
		httprunner.WithUserAgent(ua),
		httprunner.WithBuildOptions(build...),
		httprunner.WithRateLimit(cfg.HTTP.RateLimit),
	)
	ws.payloads = payloadSource(root, cfg, client)
	ws.runs = runstore.NewJSONStore(root, cfg, runstore.WithIndex(true))

	ws.log.Debug("workspace.loaded", "root", root, "ephemeral", g.ephemeral)
	return ws, nil
}

// payloadSource prefers a remote wordlist URL, then the workspace payloads
// directory. Levels missing from the directory come from the bundled lists.
func payloadSource(root string, cfg domain.Config, client *http.Client) ports.PayloadSource {
	var primary ports.PayloadSource
	switch {
	case strings.TrimSpace(cfg.Run.PayloadsURL) != "":
		primary = payloadsrc.HTTP(cfg.Run.PayloadsURL, client)
	case strings.TrimSpace(cfg.Paths.PayloadsDir) != "":
		dir := workspacefinder.Resolve(root, cfg.Paths.PayloadsDir)
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			primary = payloadsrc.Dir(dir)
		}
	}
	if primary == nil {
		return payloadsrc.Cached(payloadsrc.Embedded())
	}
	if _, remote := primary.(payloadsrc.HTTPSource); remote {
		return payloadsrc.Cached(primary)
	}
	return payloadsrc.Cached(payloadsrc.Fallback(primary, payloadsrc.Embedded()))
}

func resolveWorkspaceRoot(workspaceFlag string) (string, error) {
	w := strings.TrimSpace(workspaceFlag)
	if w != "" {
		abs, err := filepath.Abs(w)
		if err != nil {
			return "", fmt.Errorf("invalid workspace path: %w", err)
		}
		return abs, nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	locator := workspacefinder.NewFinder()
	root, err := locator.FindRoot(wd)
	if err != nil {
		return "", fmt.Errorf("workspace not found from %q (tip: run `xssprobe init`): %w", wd, err)
	}
	return root, nil
}
