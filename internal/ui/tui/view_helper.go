package tui

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

func clampString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))

	n := 0
	for _, r := range s {
		if n >= maxLen {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String() + "…"
}

func renderResultLine(t Theme, r domain.PayloadResult) string {
	payload := clampString(strings.ReplaceAll(r.Payload, "\n", " "), 70)
	switch {
	case r.Error != nil:
		return t.Error.Render(fmt.Sprintf("#%-4d error   %s (%s)", r.Index+1, payload, r.Error.Kind))
	case r.Matched:
		return t.Matched.Render(fmt.Sprintf("#%-4d MATCHED %d %s", r.Index+1, r.Status, payload))
	default:
		return t.Clean.Render(fmt.Sprintf("#%-4d clean   %d ", r.Index+1, r.Status)) + payload
	}
}

func renderRun(t Theme, bar string, s domain.RunSummary, results []domain.PayloadResult, visible int, running bool, run domain.TestRun, runID string, runErr error) string {
	var b strings.Builder

	state := "running"
	if !running {
		state = string(run.State)
		if state == "" {
			state = "done"
		}
	}
	b.WriteString(t.Title.Render("Test run") + "  " + t.Subtitle.Render(state))
	b.WriteString("\n\n")
	b.WriteString(bar)
	b.WriteString(fmt.Sprintf("\n\nmatched %d • not matched %d • total %d\n\n", s.Matched, s.NotMatched, s.Total))

	start := 0
	if len(results) > visible {
		start = len(results) - visible
	}
	for _, r := range results[start:] {
		b.WriteString(renderResultLine(t, r))
		b.WriteString("\n")
	}

	if !running {
		if runErr != nil {
			b.WriteString("\n" + t.Error.Render(userMessage(runErr)) + "\n")
		}
		for _, n := range run.Notes {
			b.WriteString(t.Help.Render("note: "+n) + "\n")
		}
		if runID != "" {
			b.WriteString(t.Help.Render("saved as "+runID) + "\n")
		}
	}
	return b.String()
}
