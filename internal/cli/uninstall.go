package cli

import (
	"fmt"

	"github.com/placekit-labs/placekit/internal/placement"
	"github.com/spf13/cobra"
)

var (
	uninstallPlacements    []string
	uninstallHandler       string
	uninstallHandlerPrefix string
	uninstallAll           bool
	uninstallManifest      string
	uninstallConcurrency   int
	uninstallJSON          bool
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove placement bindings",
	Long: `Remove placement bindings registered by the app.

By default every binding whose placement is declared in the manifest is
removed. Narrow the selection with --placement and --handler, or remove every
binding with --all. Each unbind echoes the handler exactly as the portal
reports it.`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func init() {
	uninstallCmd.Flags().StringSliceVar(&uninstallPlacements, "placement", nil, "Placement code to remove (repeatable)")
	uninstallCmd.Flags().StringVar(&uninstallHandler, "handler", "", "Only remove bindings with this exact handler URL")
	uninstallCmd.Flags().StringVar(&uninstallHandlerPrefix, "handler-prefix", "", "Only remove bindings whose handler starts with this prefix")
	uninstallCmd.Flags().BoolVar(&uninstallAll, "all", false, "Remove every binding of the app")
	uninstallCmd.Flags().StringVar(&uninstallManifest, "manifest", "", "Placement manifest (default: embedded)")
	uninstallCmd.Flags().IntVar(&uninstallConcurrency, "concurrency", -1, "Max unbind calls in flight, 0 for no limit (default rpc.concurrency)")
	uninstallCmd.Flags().BoolVar(&uninstallJSON, "json", false, "Output in JSON format")
	uninstallCmd.MarkFlagsMutuallyExclusive("all", "placement")
	rootCmd.AddCommand(uninstallCmd)
}

func uninstallCriterion() (placement.Criterion, error) {
	var match []placement.Criterion
	switch {
	case uninstallAll:
		match = append(match, placement.MatchAll())
	case len(uninstallPlacements) > 0:
		match = append(match, placement.MatchPlacements(uninstallPlacements...))
	default:
		m, err := loadManifest(uninstallManifest)
		if err != nil {
			return nil, err
		}
		match = append(match, placement.MatchPlacements(m.Codes()...))
	}
	if uninstallHandler != "" {
		match = append(match, placement.MatchHandler(uninstallHandler))
	}
	if uninstallHandlerPrefix != "" {
		match = append(match, placement.MatchHandlerPrefix(uninstallHandlerPrefix))
	}
	return placement.And(match...), nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	match, err := uninstallCriterion()
	if err != nil {
		return err
	}

	concurrency := uninstallConcurrency
	if concurrency < 0 {
		concurrency = settings.RPC.Concurrency
	}
	u := placement.NewUninstaller(newHandshake(settings),
		placement.WithConcurrency(concurrency),
		placement.WithLogger(cliLog),
		placement.WithMetrics(cliStats),
	)

	report, err := u.Remove(cmd.Context(), match)
	if err != nil {
		return err
	}

	if uninstallJSON {
		if err := writeJSON(out, newReportOutput(report)); err != nil {
			return err
		}
	} else if len(report.Outcomes) == 0 {
		fmt.Fprintln(out, "No matching bindings.")
	} else {
		for _, o := range report.Outcomes {
			if o.OK() {
				fmt.Fprintf(out, "  ✓ %s  %s\n", o.Placement, o.Handler)
			} else {
				fmt.Fprintf(out, "  ✗ %s  %s: %v\n", o.Placement, o.Handler, o.Err)
			}
		}
		fmt.Fprintln(out)
		fmt.Fprintf(out, "✓ Removed %d of %d bindings.\n", len(report.Succeeded()), len(report.Outcomes))
	}

	if failed := len(report.Failed()); failed > 0 {
		return fmt.Errorf("%d of %d binding(s) failed to unbind", failed, len(report.Outcomes))
	}
	return nil
}
