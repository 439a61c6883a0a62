package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase"
)

func runCmd(g *globalFlags) *cobra.Command {
	var profile, level, format string
	var delay time.Duration
	var noSave, progress, all, failOnMatch bool

	c := &cobra.Command{
		Use:   "run",
		Short: "Run the reflected-XSS test for a profile",
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
			if level != "" {
				p.XSS.PayloadLevel = domain.PayloadLevel(strings.ToLower(level))
			}

			opts := []usecase.RunOption{
				usecase.WithDelay(ws.cfg.Run.Delay),
				usecase.WithRunLogger(ws.log),
			}
			if cmd.Flags().Changed("delay") {
				opts = append(opts, usecase.WithDelay(delay))
			}
			if !noSave {
				opts = append(opts, usecase.WithRunStore(ws.runs))
			}
			uc := usecase.NewRunXSSTest(ws.payloads, ws.dispatcher, opts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var bar *progressbar.ProgressBar
			onEvent := func(ev domain.RunEvent) {
				if !progress || format == "json" {
					return
				}
				if bar == nil {
					bar = newProgressBar(cmd.ErrOrStderr(), ev.Summary.Total)
				}
				_ = bar.Set(ev.Summary.Done())
			}

			run, runID, execErr := uc.Execute(ctx, name, p, onEvent)
			if bar != nil {
				_ = bar.Finish()
				fmt.Fprintln(cmd.ErrOrStderr())
			}

			var ve *domain.ValidationError
			if errors.As(execErr, &ve) {
				return execErr
			}

			if err := printRun(cmd.OutOrStdout(), run, runID, format, all); err != nil {
				return err
			}
			if execErr != nil {
				return execErr
			}
			if failOnMatch && run.Summary.Matched > 0 {
				return fmt.Errorf("%d payload(s) reflected", run.Summary.Matched)
			}
			return nil
		},
	}

	c.Flags().StringVarP(&profile, "profile", "p", "", "profile to test (default: current)")
	c.Flags().StringVarP(&level, "level", "l", "", "override the profile's payload level for this run")
	c.Flags().DurationVar(&delay, "delay", usecase.DefaultDelay, "pause between requests (overrides xssprobe.yaml)")
	c.Flags().BoolVar(&noSave, "no-save", false, "Do not save run artifact under runs/")
	c.Flags().BoolVar(&progress, "progress", false, "draw a progress bar on stderr")
	c.Flags().BoolVar(&all, "all", false, "list every payload, not only reflections and errors")
	c.Flags().BoolVar(&failOnMatch, "fail-on-match", false, "exit non-zero when any payload is reflected")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func newProgressBar(w io.Writer, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription("[cyan]Probing...[reset]"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func printRun(w io.Writer, run domain.TestRun, runID string, format string, all bool) error {
	switch format {
	case "json":
		return writeJSON(w, map[string]any{
			"run_id": runID,
			"run":    run,
		})
	case "pretty", "":
		printPrettyRun(w, run, runID, all)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (expected pretty|json)", format)
	}
}

func printPrettyRun(w io.Writer, run domain.TestRun, runID string, all bool) {
	total := run.EndedAt.Sub(run.StartedAt)
	if run.StartedAt.IsZero() || run.EndedAt.IsZero() {
		total = 0
	}

	fmt.Fprintf(w, "Profile:    %s\n", run.ProfileName)
	fmt.Fprintf(w, "Request:    %s %s\n", run.Method, run.URL)
	fmt.Fprintf(w, "Target:     %s\n", run.Target.Label)
	fmt.Fprintf(w, "Level:      %s\n", run.Level)
	fmt.Fprintf(w, "Started:    %s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:   %s\n", total.Round(time.Millisecond))
	if runID != "" {
		fmt.Fprintf(w, "Run ID:     %s\n", runID)
	}
	fmt.Fprintln(w)

	for _, r := range run.Results {
		switch {
		case r.Error != nil:
			warnColor.Fprintf(w, "- [ERROR] #%d %s\n", r.Index+1, r.Payload)
			fmt.Fprintf(w, "  error: %s (%s)\n", r.Error.Message, r.Error.Kind)
		case r.Matched:
			failColor.Fprintf(w, "- [REFLECTED] #%d %s\n", r.Index+1, r.Payload)
			fmt.Fprintf(w, "  status: %d  %dms\n", r.Status, r.LatencyMS)
		case all:
			fmt.Fprintf(w, "- [clean] #%d %s\n", r.Index+1, r.Payload)
			faint.Fprintf(w, "  status: %d  %dms\n", r.Status, r.LatencyMS)
		}
	}
	if len(run.Results) > 0 {
		fmt.Fprintln(w)
	}

	for _, n := range run.Notes {
		faint.Fprintf(w, "note: %s\n", n)
	}

	state := string(run.State)
	switch run.State {
	case domain.RunCompleted:
		state = okColor.Sprint(state)
	case domain.RunFailed:
		state = failColor.Sprint(state)
	default:
		state = warnColor.Sprint(state)
	}
	fmt.Fprintf(w, "State: %s  matched %d / not matched %d / total %d\n",
		state, run.Summary.Matched, run.Summary.NotMatched, run.Summary.Total)
	if run.Error != "" {
		fmt.Fprintf(w, "error: %s\n", run.Error)
	}
}
