package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/placekit-labs/placekit/internal/placement"
	"github.com/spf13/cobra"
)

var (
	listPlacement string
	listJSON      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List placement bindings",
	Long:  `List the placement bindings the portal holds for the app (placement.get).`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVar(&listPlacement, "placement", "", "Filter by placement code")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	u := placement.NewUninstaller(newHandshake(settings), placement.WithLogger(cliLog))
	all, err := u.List(cmd.Context())
	if err != nil {
		return err
	}

	bindings := []placement.Binding{}
	for _, b := range all {
		if listPlacement == "" || b.Placement == listPlacement {
			bindings = append(bindings, b)
		}
	}

	if listJSON {
		return writeJSON(out, bindings)
	}

	if len(bindings) == 0 {
		fmt.Fprintln(out, "No placements bound.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PLACEMENT\tHANDLER\tTITLE")
	for _, b := range bindings {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Placement, b.Handler, b.Title)
	}
	return w.Flush()
}
