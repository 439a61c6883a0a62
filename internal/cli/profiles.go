package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/infra/yamlprofile"
)

func profilesCmd(g *globalFlags) *cobra.Command {
	c := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage request profiles",
	}

	c.AddCommand(
		profilesListCmd(g),
		profilesShowCmd(g),
		profilesCreateCmd(g),
		profilesDeleteCmd(g),
		profilesUseCmd(g),
		profilesImportCmd(g),
		profilesExportCmd(g),
	)
	return c
}

func profilesListCmd(g *globalFlags) *cobra.Command {
	var format string

	c := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			names, err := ws.book.Names()
			if err != nil {
				return err
			}
			cur, _, err := ws.book.Current()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, map[string]any{"current": cur, "profiles": names})
			}
			for _, n := range names {
				if n == cur {
					okColor.Fprintf(out, "* %s\n", n)
					continue
				}
				fmt.Fprintf(out, "  %s\n", n)
			}
			return nil
		},
	}

	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func profilesShowCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "Show a profile (the current one by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			name, p, err := ws.book.Resolve(argOr(args, 0, ""))
			if err != nil {
				return err
			}
			cur, _, _ := ws.book.Current()
			printProfile(cmd.OutOrStdout(), name, name == cur, p)
			return nil
		},
	}
}

func profilesCreateCmd(g *globalFlags) *cobra.Command {
	var from string
	var use bool

	c := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile, optionally copying another one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			var src *domain.RequestProfile
			if from != "" {
				p, err := ws.book.Get(from)
				if err != nil {
					return err
				}
				src = &p
			}
			if err := ws.book.Create(args[0], src); err != nil {
				return err
			}
			if use {
				if err := ws.book.Switch(args[0]); err != nil {
					return err
				}
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Created profile %q\n", args[0])
			return nil
		},
	}

	c.Flags().StringVar(&from, "from", "", "copy an existing profile")
	c.Flags().BoolVar(&use, "use", false, "select the new profile")
	return c
}

func profilesDeleteCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile (the last profile cannot be deleted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			if err := ws.book.Delete(args[0]); err != nil {
				return err
			}
			cur, _, _ := ws.book.Current()
			okColor.Fprintf(cmd.OutOrStdout(), "Deleted profile %q (current: %s)\n", args[0], cur)
			return nil
		},
	}
}

func profilesUseCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "use <name>",
		Short: "Select the current profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			if err := ws.book.Switch(args[0]); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Current profile: %s\n", args[0])
			return nil
		},
	}
}

func profilesImportCmd(g *globalFlags) *cobra.Command {
	var as string
	var replace bool

	c := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import a profile from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			name, p, err := yamlprofile.Import(args[0])
			if err != nil {
				return err
			}
			if as != "" {
				name = as
			}

			err = ws.book.Create(name, &p)
			if replace && errors.Is(err, domain.ErrProfileExists) {
				err = ws.book.Put(name, p)
			}
			if err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Imported profile %q\n", name)
			return nil
		},
	}

	c.Flags().StringVar(&as, "as", "", "store under this name instead of the file's name")
	c.Flags().BoolVar(&replace, "replace", false, "overwrite an existing profile with the same name")
	return c
}

func profilesExportCmd(g *globalFlags) *cobra.Command {
	var outPath string

	c := &cobra.Command{
		Use:   "export [name]",
		Short: "Export a profile to a YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			name, p, err := ws.book.Resolve(argOr(args, 0, ""))
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = name + ".yaml"
			}
			if err := yamlprofile.Export(outPath, name, p); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Exported %q to %s\n", name, outPath)
			return nil
		},
	}

	c.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <name>.yaml)")
	return c
}

func argOr(args []string, i int, def string) string {
	if i < len(args) {
		return args[i]
	}
	return def
}
