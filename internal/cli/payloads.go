package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/domain"
)

func payloadsCmd(g *globalFlags) *cobra.Command {
	var level string
	var count bool

	c := &cobra.Command{
		Use:   "payloads",
		Short: "Print the payload wordlist of a level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			out := cmd.OutOrStdout()
			levels := domain.PayloadLevels()
			if level != "" {
				lvl := domain.PayloadLevel(strings.ToLower(level))
				if !lvl.Valid() {
					return fmt.Errorf("%w: %q", domain.ErrUnknownLevel, level)
				}
				levels = []domain.PayloadLevel{lvl}
			}

			for _, lvl := range levels {
				list, err := ws.payloads.Load(cmd.Context(), lvl)
				if err != nil {
					return err
				}
				if count || level == "" {
					fmt.Fprintf(out, "%-8s %d\n", lvl, len(list))
					continue
				}
				for _, p := range list {
					fmt.Fprintln(out, p)
				}
			}
			return nil
		},
	}

	c.Flags().StringVarP(&level, "level", "l", "", "level to print (default: counts for every level)")
	c.Flags().BoolVar(&count, "count", false, "print only the number of payloads")
	return c
}

func runsCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:   "runs",
		Short: "Inspect saved test runs",
	}
	c.AddCommand(runsListCmd(g))
	return c
}

func runsListCmd(g *globalFlags) *cobra.Command {
	var profile, format string
	var limit int

	c := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			entries, err := ws.runs.List()
			if err != nil {
				return err
			}

			var picked []any
			out := cmd.OutOrStdout()
			shown := 0
			for i := len(entries) - 1; i >= 0; i-- {
				e := entries[i]
				if profile != "" && e.Profile != profile {
					continue
				}
				if limit > 0 && shown >= limit {
					break
				}
				shown++
				if format == "json" {
					picked = append(picked, e)
					continue
				}
				mark := okColor.Sprint("clean")
				if e.Matched > 0 {
					mark = failColor.Sprintf("%d reflected", e.Matched)
				}
				fmt.Fprintf(out, "%s  %-12s %-10s %-8s %-10s %s/%d\n",
					e.StartedAt.Local().Format("2006-01-02 15:04:05"), e.Profile, e.Target, e.Level, e.State, mark, e.Total)
				faint.Fprintf(out, "  %s\n", e.File)
			}

			if format == "json" {
				if picked == nil {
					picked = []any{}
				}
				return writeJSON(out, picked)
			}
			if shown == 0 {
				fmt.Fprintln(out, "(no runs found)")
			}
			return nil
		},
	}

	c.Flags().StringVarP(&profile, "profile", "p", "", "only runs of this profile")
	c.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs (0 = all)")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}
