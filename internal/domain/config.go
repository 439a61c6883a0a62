package domain

import "time"

// Config represents the workspace configuration loaded from xssprobe.yaml.
type Config struct {
	Masking MaskingConfig
	Paths   PathsConfig
	HTTP    HTTPConfig
	Run     RunConfig
	Log     LogConfig
}

type MaskingConfig struct {
	Enabled bool
}

type PathsConfig struct {
	Database    string
	PayloadsDir string
	RunsDir     string
}

type HTTPConfig struct {
	Timeout         time.Duration
	Insecure        bool
	FollowRedirects bool
	UserAgent       string
	MaxBodyBytes    int64

	// BrowserHeaders adds the Accept, Sec-Fetch and cache headers a browser sends.
	BrowserHeaders bool
	// DefaultHeaders are sent when a profile does not set the same name.
	DefaultHeaders Headers
	// RateLimit caps requests per second across the workspace; zero is unlimited.
	RateLimit float64
}

type RunConfig struct {
	Delay time.Duration
	// PayloadsURL, when set, replaces the payload directory as the wordlist source.
	PayloadsURL string
}

type LogConfig struct {
	MaxSizeMB  int
	MaxBackups int
}

// DefaultConfig provides sane defaults if xssprobe.yaml is partially missing.
func DefaultConfig() Config {
	return Config{
		Masking: MaskingConfig{Enabled: true},
		Paths: PathsConfig{
			Database:    ".xssprobe/profiles.db",
			PayloadsDir: "payloads",
			RunsDir:     "runs",
		},
		HTTP: HTTPConfig{
			Timeout:         30 * time.Second,
			FollowRedirects: true,
			MaxBodyBytes:    1 << 20,
			BrowserHeaders:  true,
		},
		Run: RunConfig{
			Delay: 100 * time.Millisecond,
		},
		Log: LogConfig{
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
	}
}

// WorkspaceSpec describes what `init` lays down.
type WorkspaceSpec struct {
	Root string
	// WithPayloads copies the bundled wordlists into the payloads directory.
	WithPayloads bool
}
