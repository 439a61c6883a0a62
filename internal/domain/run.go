package domain

import (
	"strings"
	"time"
)

// RunState is the lifecycle state of a test run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
	RunCancelled RunState = "cancelled"
)

// Terminal reports whether no further payloads will be sent.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunFailed || s == RunCancelled
}

// RunErrorKind is a high-level classification of runtime errors.
type RunErrorKind string

const (
	RunErrorUnknown   RunErrorKind = "unknown"
	RunErrorTimeout   RunErrorKind = "timeout"
	RunErrorDNS       RunErrorKind = "dns"
	RunErrorConn      RunErrorKind = "connection"
	RunErrorHTTP      RunErrorKind = "http"
	RunErrorInjection RunErrorKind = "injection"
	RunErrorCancelled RunErrorKind = "cancelled"
)

// RunError represents a structured per-payload failure.
type RunError struct {
	Kind    RunErrorKind
	Message string
}

func NewRunError(kind RunErrorKind, msg string) *RunError {
	return &RunError{Kind: kind, Message: msg}
}

// Response is a bounded, transport-neutral view of an HTTP response.
type Response struct {
	Status    int
	Headers   map[string][]string
	Body      []byte
	Truncated bool
	LatencyMS int64

	// JSON holds the decoded body when the response declared a JSON media type.
	JSON any
}

// Text is the response body as the classifier sees it.
func (r Response) Text() string {
	return string(r.Body)
}

// Header returns the first value of name (case-insensitive).
func (r Response) Header(name string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

// PayloadResult records one payload attempt. Failed attempts are never matched.
type PayloadResult struct {
	Index     int
	Payload   string
	Matched   bool
	Status    int
	URL       string
	LatencyMS int64
	Error     *RunError
}

// RunSummary holds the run counters. Matched+NotMatched never exceeds Total.
type RunSummary struct {
	Matched    int
	NotMatched int
	Total      int
}

// Done is the number of payloads processed so far.
func (s RunSummary) Done() int {
	return s.Matched + s.NotMatched
}

// Progress is Done/Total in [0,1].
func (s RunSummary) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Done()) / float64(s.Total)
}

// RunEvent is emitted after every processed payload.
type RunEvent struct {
	Result   PayloadResult
	Progress float64
	Summary  RunSummary
}

// TestRun is the full, append-only record of one run.
type TestRun struct {
	ID          string
	ProfileName string

	Method  HTTPMethod
	URL     string
	Headers Headers
	Target  TargetField
	Level   PayloadLevel

	State     RunState
	StartedAt time.Time
	EndedAt   time.Time

	Results []PayloadResult
	Summary RunSummary
	Error   string

	// Notes are response observations (e.g. missing security headers) from the first response.
	Notes []string
}

// Findings returns the payloads that were echoed back.
func (r TestRun) Findings() []PayloadResult {
	var out []PayloadResult
	for _, res := range r.Results {
		if res.Matched {
			out = append(out, res)
		}
	}
	return out
}
