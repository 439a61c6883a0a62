package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	infoColor = color.New(color.FgCyan)
	faint     = color.New(color.Faint)
	bold      = color.New(color.Bold)
)

func checkFormat(format string) error {
	switch format {
	case "pretty", "", "json":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return okColor
	case code >= 300 && code < 400:
		return infoColor
	case code >= 400 && code < 500:
		return warnColor
	default:
		return failColor
	}
}

func printProfile(w io.Writer, name string, current bool, p domain.RequestProfile) {
	marker := ""
	if current {
		marker = " (current)"
	}
	bold.Fprintf(w, "Profile: %s%s\n", name, marker)
	fmt.Fprintf(w, "  %s %s\n", infoColor.Sprint(p.Method), p.URL)

	if len(p.Params) > 0 {
		fmt.Fprintln(w, "  params:")
		for _, kv := range p.Params {
			fmt.Fprintf(w, "    %s = %s\n", kv.Key, kv.Value)
		}
	}
	if len(p.Headers) > 0 {
		fmt.Fprintln(w, "  headers:")
		for _, h := range p.Headers {
			fmt.Fprintf(w, "    %s: %s\n", h.Name, h.Value)
		}
	}

	if a := p.Auth.Normalized(); a.Type != domain.AuthNone {
		switch a.Type {
		case domain.AuthBasic:
			fmt.Fprintf(w, "  auth: basic %s:%s\n", a.Username, mask(a.Password))
		case domain.AuthBearer:
			fmt.Fprintf(w, "  auth: bearer %s\n", mask(a.Token))
		case domain.AuthAPIKey:
			fmt.Fprintf(w, "  auth: apiKey %s=%s (%s)\n", a.KeyName, mask(a.KeyValue), a.KeyLocation)
		}
	}

	if !p.Body.IsEmpty() {
		fmt.Fprintf(w, "  body (%s):\n", p.Body.Type)
		switch p.Body.Type {
		case domain.BodyFormData, domain.BodyURLEncoded:
			for _, f := range p.Body.Fields {
				suffix := ""
				if f.Kind == domain.FieldFile {
					suffix = " [file]"
				}
				fmt.Fprintf(w, "    %s = %s%s\n", f.Key, f.Value, suffix)
			}
			if len(p.Body.Fields) == 0 {
				fmt.Fprintf(w, "    %s\n", p.Body.Content)
			}
		default:
			for _, line := range strings.Split(p.Body.Content, "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
	}

	target := p.XSS.TargetField
	if target == "" {
		target = faint.Sprint("(none)")
	}
	fmt.Fprintf(w, "  xss: %s → %s, level %s\n", p.XSS.ValueType, target, p.XSS.PayloadLevel)
	if p.XSS.MatchPath != "" {
		fmt.Fprintf(w, "  match path: %s\n", p.XSS.MatchPath)
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		warnColor.Fprintf(w, "warning: %s\n", msg)
	}
}
