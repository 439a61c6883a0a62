package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for broad classification.
var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidConfig  = errors.New("invalid config")
	ErrInvalidRequest = errors.New("invalid request")
	ErrExecution      = errors.New("execution error")

	ErrNotCurl         = errors.New("input is not a curl command")
	ErrTargetMissing   = errors.New("target field not found")
	ErrLastProfile     = errors.New("cannot delete the only profile")
	ErrProfileExists   = errors.New("profile already exists")
	ErrRunInProgress   = errors.New("a test run is already in progress")
	ErrUnknownLevel    = errors.New("unknown payload level")
	ErrEmptyProfileKey = errors.New("profile name is empty")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindNotFound      ErrorKind = "not_found"
	KindInvalidConfig ErrorKind = "invalid_config"
	KindExecution     ErrorKind = "execution"

	KindParse      ErrorKind = "parse"
	KindValidation ErrorKind = "validation"
	KindInjection  ErrorKind = "injection"
	KindNetwork    ErrorKind = "network"
	KindLoad       ErrorKind = "load"
	KindState      ErrorKind = "state"
)

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: file path, field path or profile name
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError lists every item that blocks a test run from starting.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Missing) == 0 {
		return "validation failed"
	}
	return "cannot start test, missing or invalid: " + strings.Join(e.Missing, ", ")
}

// NetworkError is a transport-level failure while dispatching a request.
type NetworkError struct {
	Kind    RunErrorKind
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("network error (%s): %s", e.Kind, e.Message)
}

func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind helps callers classify errors without depending on infra packages.
// ValidationError and NetworkError report their own kinds.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return kind == KindValidation
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return kind == KindNetwork
	}
	return false
}
