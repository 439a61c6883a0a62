package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aalvaropc/xssprobe/internal/domain"
	"github.com/aalvaropc/xssprobe/internal/usecase"
	"github.com/aalvaropc/xssprobe/internal/usecase/curl"
)

func curlCmd(g *globalFlags) *cobra.Command {
	var profile, file, format string
	var detectAuth, dryRun bool

	c := &cobra.Command{
		Use:   "curl [command]",
		Short: "Import a curl command into a profile",
		Long: "Import a curl command into a profile. The command is read from the argument,\n" +
			"from --file, or from stdin when neither is given. The profile is created if missing.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readCurlInput(cmd.InOrStdin(), args, file)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if err := checkFormat(format); err != nil {
				return err
			}

			if dryRun {
				var opts []curl.Option
				if detectAuth {
					opts = append(opts, curl.WithAuthDetection())
				}
				parsed, err := curl.Parse(text, opts...)
				if err != nil {
					return err
				}
				p := parsed.Apply(domain.NewProfile())
				if format == "json" {
					return writeJSON(out, curlPreview{
						Profile:  p,
						Form:     formValuesJSON(parsed.Form),
						Warnings: parsed.Warnings,
					})
				}
				printWarnings(cmd.ErrOrStderr(), parsed.Warnings)
				printProfile(out, "(dry run)", false, p)
				printFormValues(out, parsed.Form)
				return nil
			}

			ws, err := loadWorkspace(g)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()

			warnings, err := usecase.NewImportCurl(ws.book, detectAuth).Execute(profile, text)
			if err != nil {
				return err
			}
			printWarnings(cmd.ErrOrStderr(), warnings)

			name, p, err := ws.book.Resolve(profile)
			if err != nil {
				return err
			}
			cur, _, _ := ws.book.Current()
			okColor.Fprintf(out, "Imported curl into %q\n", name)
			printProfile(out, name, name == cur, p)
			return nil
		},
	}

	c.Flags().StringVarP(&profile, "profile", "p", "", "target profile (default: current)")
	c.Flags().StringVarP(&file, "file", "f", "", "read the curl command from a file")
	c.Flags().BoolVar(&detectAuth, "detect-auth", true, "turn Authorization / API key headers into auth settings")
	c.Flags().BoolVar(&dryRun, "dry-run", false, "print the parsed profile without saving it")
	c.Flags().StringVar(&format, "format", "pretty", "dry-run output format: pretty|json")
	return c
}

type curlPreview struct {
	Profile  domain.RequestProfile `json:"profile"`
	Form     []formValueJSON       `json:"form,omitempty"`
	Warnings []string              `json:"warnings,omitempty"`
}

type formValueJSON struct {
	Key   string `json:"key"`
	Raw   string `json:"raw"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func formValuesJSON(form []curl.FormValue) []formValueJSON {
	out := make([]formValueJSON, 0, len(form))
	for _, f := range form {
		out = append(out, formValueJSON{Key: f.Key, Raw: f.Raw, Type: valueKind(f.Value), Value: f.Value})
	}
	return out
}

// printFormValues lists body values with the type they coerce to.
func printFormValues(w io.Writer, form []curl.FormValue) {
	if len(form) == 0 {
		return
	}
	fmt.Fprintln(w, "  typed values:")
	for _, f := range form {
		fmt.Fprintf(w, "    %s = %s %s\n", f.Key, f.Raw, faint.Sprintf("(%s)", valueKind(f.Value)))
	}
}

func valueKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return "string"
	}
}

func readCurlInput(stdin io.Reader, args []string, file string) (string, error) {
	switch {
	case len(args) == 1:
		return args[0], nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(string(b)) == "" {
			return "", fmt.Errorf("no curl command given (pass it as an argument, --file, or stdin)")
		}
		return string(b), nil
	}
}
