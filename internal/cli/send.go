package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase"
	"github.com/aalvaropc/xssprobe/internal/usecase/inject"
	"github.com/aalvaropc/xssprobe/internal/usecase/match"
)

func sendCmd(g *globalFlags) *cobra.Command {
	var profile, payload, format string
	var headersOnly bool

	c := &cobra.Command{
		Use:   "send",
		Short: "Send a profile's request once and print the response",
		Long: "Send a profile's request once and print the response. With --payload the value\n" +
			"is injected into the target field first and the response is checked for it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			name, p, err := ws.book.Resolve(profile)
			if err != nil {
				return err
			}

			req := p
			if cmd.Flags().Changed("payload") {
				target, err := usecase.ValidateRun(p)
				if err != nil {
					return err
				}
				if req, err = inject.Apply(p, target, payload); err != nil {
					return err
				}
			} else if !domain.ValidURL(p.URL) {
				return &domain.ValidationError{Missing: []string{"URL"}}
			}

			ws.log.Info("send.start", "profile", name, "method", req.Method)
			resp, err := ws.dispatcher.Dispatch(cmd.Context(), req)
			if err != nil {
				ws.log.Warn("send.failed", "profile", name, "err", err)
				return err
			}

			var reflected *bool
			if cmd.Flags().Changed("payload") {
				ok, err := match.Reflected(resp, payload, p.XSS.MatchPath)
				if err != nil {
					return err
				}
				reflected = &ok
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, map[string]any{
					"profile":   name,
					"url":       req.URL,
					"status":    resp.Status,
					"latency":   resp.LatencyMS,
					"headers":   resp.Headers,
					"body":      resp.Text(),
					"truncated": resp.Truncated,
					"reflected": reflected,
				})
			}
			printResponse(out, req, resp, headersOnly)
			if reflected != nil {
				if *reflected {
					failColor.Fprintln(out, "payload reflected")
				} else {
					okColor.Fprintln(out, "payload not reflected")
				}
			}
			return nil
		},
	}

	c.Flags().StringVarP(&profile, "profile", "p", "", "profile (default: current)")
	c.Flags().StringVar(&payload, "payload", "", "inject this value into the target field before sending")
	c.Flags().BoolVarP(&headersOnly, "head", "I", false, "print only status and headers")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func printResponse(w io.Writer, req domain.RequestProfile, resp domain.Response, headersOnly bool) {
	fmt.Fprintf(w, "%s %s\n", infoColor.Sprint(req.Method), req.URL)
	statusColor(resp.Status).Fprintf(w, "%d", resp.Status)
	faint.Fprintf(w, "  %dms\n", resp.LatencyMS)

	names := make([]string, 0, len(resp.Headers))
	for k := range resp.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "%s: %s\n", bold.Sprint(k), strings.Join(resp.Headers[k], ", "))
	}
	if headersOnly {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, prettyBody(resp.Body))
	if resp.Truncated {
		warnColor.Fprintln(w, "(truncated)")
	}
}

func prettyBody(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return "(empty)"
	}
	var buf bytes.Buffer
	if json.Valid(body) && json.Indent(&buf, body, "", "  ") == nil {
		return buf.String()
	}
	return string(bytes.TrimSpace(body))
}
