package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/placekit-labs/placekit/internal/placement"
	"github.com/spf13/cobra"
)

var (
	installPageURL  string
	installManifest string
	installDryRun   bool
	installJSON     bool
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Bind the manifest placements to the widget",
	Long: `Bind every placement declared in the manifest to the widget handler URL.

The handler URL is derived from the app's entry page URL (--page-url or
app.page_url) by replacing the entry filename and everything after it with the
widget filename. Binding is idempotent: running install twice leaves one
binding per placement and handler.`,
	Args: cobra.NoArgs,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installPageURL, "page-url", "", "Entry page URL of the app (default app.page_url)")
	installCmd.Flags().StringVar(&installManifest, "manifest", "", "Placement manifest (default: embedded)")
	installCmd.Flags().BoolVar(&installDryRun, "dry-run", false, "Print the batch without sending it")
	installCmd.Flags().BoolVar(&installJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(installCmd)
}

// outcomeEntry is one reconciled item for JSON output.
type outcomeEntry struct {
	Key       string          `json:"key"`
	Placement string          `json:"placement"`
	Handler   string          `json:"handler"`
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

type reportOutput struct {
	HandlerURL string         `json:"handler_url,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	Outcomes   []outcomeEntry `json:"outcomes"`
}

func newReportOutput(r *placement.Report) reportOutput {
	out := reportOutput{HandlerURL: r.HandlerURL, Outcomes: []outcomeEntry{}}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	for _, o := range r.Outcomes {
		e := outcomeEntry{Key: o.Key, Placement: o.Placement, Handler: o.Handler, OK: o.OK(), Result: o.Data}
		if o.Err != nil {
			e.Error = o.Err.Error()
		}
		out.Outcomes = append(out.Outcomes, e)
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func runInstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	pageURL := installPageURL
	if pageURL == "" {
		pageURL = settings.App.PageURL
	}
	if pageURL == "" {
		return errors.New("no page URL: pass --page-url or set app.page_url")
	}

	m, err := loadManifest(installManifest)
	if err != nil {
		return err
	}
	specs := placement.SpecsFromManifest(m)

	installer := placement.NewInstaller(newHandshake(settings),
		placement.WithFiles(m.EntryFile, m.WidgetFile),
		placement.WithLogger(cliLog),
		placement.WithMetrics(cliStats),
	)

	if installDryRun {
		handlerURL, cmds, warning := installer.Plan(specs, pageURL)
		fmt.Fprintf(out, "Handler: %s\n", handlerURL)
		if warning != nil {
			fmt.Fprintf(out, "  ⚠️  %v\n", warning)
		}
		for _, c := range cmds {
			fmt.Fprintf(out, "  %s  %s\n", c.Key, c.Query())
		}
		return nil
	}

	report, err := installer.Install(cmd.Context(), specs, pageURL)
	if err != nil {
		return err
	}

	if installJSON {
		if err := writeJSON(out, newReportOutput(report)); err != nil {
			return err
		}
	} else {
		printInstallReport(out, report)
	}

	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d placement(s) failed to bind", failed, len(report.Outcomes))
	}
	return nil
}

func printInstallReport(w io.Writer, r *placement.Report) {
	fmt.Fprintf(w, "Handler: %s\n", r.HandlerURL)
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "  ⚠️  %v\n", warning)
	}
	for _, o := range r.Outcomes {
		if o.OK() {
			fmt.Fprintf(w, "  ✓ %s (%s)\n", o.Placement, o.Key)
		} else {
			fmt.Fprintf(w, "  ✗ %s (%s): %v\n", o.Placement, o.Key, o.Err)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✓ Bound %d of %d placements.\n", len(r.Succeeded()), len(r.Outcomes))
}
