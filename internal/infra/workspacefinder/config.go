package workspacefinder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

// ConfigFileName marks a workspace root.
const ConfigFileName = "xssprobe.yaml"

// LoadConfig loads xssprobe.yaml from the workspace root and applies defaults.
func LoadConfig(root string) (domain.Config, error) {
	cfg := domain.DefaultConfig()

	path := filepath.Join(root, ConfigFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindNotFound,
			Path: path,
			Err:  err,
		}
	}

	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return cfg, &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  err,
		}
	}

	invalid := func(field string, err error) error {
		return &domain.OpError{
			Op:   "workspacefinder.loadconfig",
			Kind: domain.KindInvalidConfig,
			Path: path,
			Err:  fmt.Errorf("%s: %w", field, err),
		}
	}

	// Apply parsed values on top of defaults.
	x := y.Xssprobe
	if x.Masking.Enabled != nil {
		cfg.Masking.Enabled = *x.Masking.Enabled
	}
	if x.Paths.Database != "" {
		cfg.Paths.Database = x.Paths.Database
	}
	if x.Paths.PayloadsDir != "" {
		cfg.Paths.PayloadsDir = x.Paths.PayloadsDir
	}
	if x.Paths.RunsDir != "" {
		cfg.Paths.RunsDir = x.Paths.RunsDir
	}

	if x.HTTP.Timeout != "" {
		d, err := time.ParseDuration(x.HTTP.Timeout)
		if err != nil {
			return cfg, invalid("http.timeout", err)
		}
		cfg.HTTP.Timeout = d
	}
	if x.HTTP.Insecure != nil {
		cfg.HTTP.Insecure = *x.HTTP.Insecure
	}
	if x.HTTP.FollowRedirects != nil {
		cfg.HTTP.FollowRedirects = *x.HTTP.FollowRedirects
	}
	if x.HTTP.UserAgent != "" {
		cfg.HTTP.UserAgent = x.HTTP.UserAgent
	}
	if x.HTTP.MaxBodyBytes > 0 {
		cfg.HTTP.MaxBodyBytes = x.HTTP.MaxBodyBytes
	}
	if x.HTTP.RateLimit < 0 {
		return cfg, invalid("http.rate_limit", fmt.Errorf("must not be negative"))
	}
	cfg.HTTP.RateLimit = x.HTTP.RateLimit
	if x.HTTP.BrowserHeaders != nil {
		cfg.HTTP.BrowserHeaders = *x.HTTP.BrowserHeaders
	}
	for i, h := range x.HTTP.DefaultHeaders {
		if h.Name == "" {
			return cfg, invalid(fmt.Sprintf("http.default_headers[%d].name", i), fmt.Errorf("required"))
		}
		cfg.HTTP.DefaultHeaders = append(cfg.HTTP.DefaultHeaders, domain.Header{Name: h.Name, Value: h.Value})
	}

	if x.Run.Delay != "" {
		d, err := time.ParseDuration(x.Run.Delay)
		if err != nil {
			return cfg, invalid("run.delay", err)
		}
		if d < 0 {
			return cfg, invalid("run.delay", fmt.Errorf("must not be negative"))
		}
		cfg.Run.Delay = d
	}
	if x.Run.PayloadsURL != "" {
		cfg.Run.PayloadsURL = x.Run.PayloadsURL
	}

	if x.Log.MaxSizeMB > 0 {
		cfg.Log.MaxSizeMB = x.Log.MaxSizeMB
	}
	if x.Log.MaxBackups > 0 {
		cfg.Log.MaxBackups = x.Log.MaxBackups
	}

	return cfg, nil
}

// Resolve makes a workspace-relative path absolute.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

type yamlConfig struct {
	Xssprobe struct {
		Masking struct {
			Enabled *bool `yaml:"enabled"`
		} `yaml:"masking"`

		Paths struct {
			Database    string `yaml:"database"`
			PayloadsDir string `yaml:"payloads_dir"`
			RunsDir     string `yaml:"runs_dir"`
		} `yaml:"paths"`

		HTTP struct {
			Timeout         string  `yaml:"timeout"`
			Insecure        *bool   `yaml:"insecure"`
			FollowRedirects *bool   `yaml:"follow_redirects"`
			UserAgent       string  `yaml:"user_agent"`
			MaxBodyBytes    int64   `yaml:"max_body_bytes"`
			BrowserHeaders  *bool   `yaml:"browser_headers"`
			RateLimit       float64 `yaml:"rate_limit"`
			DefaultHeaders  []struct {
				Name  string `yaml:"name"`
				Value string `yaml:"value"`
			} `yaml:"default_headers"`
		} `yaml:"http"`

		Run struct {
			Delay       string `yaml:"delay"`
			PayloadsURL string `yaml:"payloads_url"`
		} `yaml:"run"`

		Log struct {
			MaxSizeMB  int `yaml:"max_size_mb"`
			MaxBackups int `yaml:"max_backups"`
		} `yaml:"log"`
	} `yaml:"xssprobe"`
}
