package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase/fields"
)

func fieldsCmd(g *globalFlags) *cobra.Command {
	var profile, format string

	c := &cobra.Command{
		Use:   "fields",
		Short: "List the injectable fields of a profile",
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

			list := fields.Enumerate(p)
			out := cmd.OutOrStdout()
			if format == "json" {
				return writeJSON(out, map[string]any{"profile": name, "fields": list, "target": p.XSS.TargetField})
			}

			if len(list) == 0 {
				fmt.Fprintln(out, "(no injectable fields)")
				return nil
			}
			for _, f := range list {
				if isSelected(p, f) {
					okColor.Fprintf(out, "* %-28s %s\n", f.Label, faint.Sprint(f.Kind))
					continue
				}
				fmt.Fprintf(out, "  %-28s %s\n", f.Label, faint.Sprint(f.Kind))
			}
			return nil
		},
	}

	c.Flags().StringVarP(&profile, "profile", "p", "", "profile (default: current)")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	return c
}

func isSelected(p domain.RequestProfile, f domain.TargetField) bool {
	if f.Name != p.XSS.TargetField {
		return false
	}
	return (p.XSS.ValueType == domain.ValueBody) == f.InBody()
}

func targetCmd(g *globalFlags) *cobra.Command {
	var profile, valueType string

	c := &cobra.Command{
		Use:   "target <field>",
		Short: "Select the field payloads are injected into",
		Long: "Select the field payloads are injected into. Without --value-type the field is\n" +
			"looked up in the URL params first, then in the body.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			name, p, err := ws.book.Resolve(profile)
			if err != nil {
				return err
			}

			t, vt, err := pickTarget(p, args[0], domain.ValueType(valueType))
			if err != nil {
				return err
			}
			if err := ws.book.Update(name, func(p *domain.RequestProfile) error {
				p.XSS.ValueType = vt
				p.XSS.TargetField = t.Name
				return nil
			}); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Target: %s\n", t.Label)
			return nil
		},
	}

	c.Flags().StringVarP(&profile, "profile", "p", "", "profile (default: current)")
	c.Flags().StringVar(&valueType, "value-type", "", "params|body (default: auto)")
	return c
}

func pickTarget(p domain.RequestProfile, field string, vt domain.ValueType) (domain.TargetField, domain.ValueType, error) {
	types := []domain.ValueType{domain.ValueParams, domain.ValueBody}
	switch vt {
	case "":
	case domain.ValueParams, domain.ValueBody:
		types = []domain.ValueType{vt}
	default:
		return domain.TargetField{}, "", fmt.Errorf("unsupported value type %q (expected params|body)", vt)
	}

	for _, t := range types {
		if f, ok := fields.Resolve(p, t, field); ok {
			return f, t, nil
		}
	}

	msg := fmt.Sprintf("field %q not found", field)
	for _, t := range types {
		if s := fields.Suggest(p, t, field); s != "" {
			msg += fmt.Sprintf("; did you mean %q (%s)?", s, t)
			break
		}
	}
	return domain.TargetField{}, "", &domain.OpError{
		Op:   "cli.target",
		Kind: domain.KindValidation,
		Path: field,
		Err:  fmt.Errorf("%s: %w", msg, domain.ErrNotFound),
	}
}
