package tui

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

var reLine = regexp.MustCompile(`(?i)\bline\s+(\d+)\b`)

// userMessage turns an error into a one-line toast.
func userMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		if len(ve.Missing) == 0 {
			return "Cannot start test"
		}
		return "Cannot start test: " + strings.Join(ve.Missing, ", ")
	}

	switch {
	case errors.Is(err, context.Canceled):
		return "Cancelled"
	case errors.Is(err, domain.ErrRunInProgress):
		return "A test is already running"
	case errors.Is(err, domain.ErrLastProfile):
		return "Cannot delete the only profile"
	case errors.Is(err, domain.ErrProfileExists):
		return "Profile already exists"
	}

	var ne *domain.NetworkError
	if errors.As(err, &ne) {
		return "Network error (" + string(ne.Kind) + ")"
	}

	var oe *domain.OpError
	if errors.As(err, &oe) {
		switch oe.Kind {
		case domain.KindNotFound:
			if oe.Path != "" {
				return "Not found: " + oe.Path
			}
			return "Not found"

		case domain.KindLoad:
			return "Could not load payloads"

		case domain.KindInvalidConfig:
			base := "config"
			if strings.TrimSpace(oe.Path) != "" {
				base = filepath.Base(oe.Path)
			}
			if line := extractLine(err.Error()); line != "" {
				return "Invalid YAML at " + base + " line " + line
			}
			if looksLikeYAMLProblem(err.Error()) {
				return "Invalid YAML at " + base
			}
			return "Invalid config"
		}
	}

	return "Unexpected error (see logs)"
}

func looksLikeYAMLProblem(s string) bool {
	ls := strings.ToLower(s)
	return strings.Contains(ls, "yaml:") || strings.Contains(ls, "did not find expected") || strings.Contains(ls, "cannot unmarshal")
}

func extractLine(s string) string {
	m := reLine.FindStringSubmatch(s)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}
