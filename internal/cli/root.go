package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/infra/fsworkspace"
	"github.com/aalvaropc/xssprobe/internal/infra/workspacefinder"
	"github.com/aalvaropc/xssprobe/internal/ui/tui"
	"github.com/aalvaropc/xssprobe/internal/usecase"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:          "xssprobe",
		Short:        "xssprobe: compose HTTP requests and probe them for reflected XSS",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			return tui.Run(cmd.Context(), tui.Deps{
				Root:       ws.root,
				Book:       ws.book,
				Payloads:   ws.payloads,
				Dispatcher: ws.dispatcher,
				Runs:       ws.runs,
				Delay:      ws.cfg.Run.Delay,
				Logger:     ws.log,
				Debug:      g.debug,
			})
		},
	}

	cmd.PersistentFlags().StringVarP(&g.workspace, "workspace", "w", "", "Workspace root (optional; autodetected if omitted)")
	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable verbose logging to .xssprobe/logs/xssprobe.log")
	cmd.PersistentFlags().BoolVar(&g.ephemeral, "ephemeral", false, "keep profiles in memory only for this invocation")

	cmd.AddCommand(
		initCmd(),
		profilesCmd(g),
		curlCmd(g),
		editCmd(g),
		fieldsCmd(g),
		targetCmd(g),
		sendCmd(g),
		runCmd(g),
		payloadsCmd(g),
		runsCmd(g),
		versionCmd(),
	)
	return cmd
}

func initCmd() *cobra.Command {
	var force, withPayloads bool

	c := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create an xssprobe workspace (xssprobe.yaml, runs/, .gitignore)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			uc := usecase.NewInitWorkspace(fsworkspace.NewInitializer())
			if err := uc.Execute(root, withPayloads, force); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			okColor.Fprintf(out, "Workspace ready: %s\n", root)
			faint.Fprintf(out, "config: %s\n", filepath.Join(root, workspacefinder.ConfigFileName))
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	c.Flags().BoolVar(&withPayloads, "payloads", false, "copy the bundled wordlists into payloads/ for editing")
	return c
}
