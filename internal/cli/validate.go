package cli

import (
	"fmt"
	"io"

	"github.com/placekit-labs/placekit/internal/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [manifest]",
	Short: "Validate a placement manifest",
	Long:  `Validate a placement manifest against the schema. Without an argument the embedded manifest is checked.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return runManifestCheck(cmd.OutOrStdout(), path)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runManifestCheck(w io.Writer, path string) error {
	label := path
	if label == "" {
		label = "(embedded)"
	}
	fmt.Fprintf(w, "Manifest validation: %s\n", label)

	var (
		result *manifest.ValidationResult
		err    error
	)
	if path == "" {
		result, err = manifest.Validate(manifest.DefaultBytes())
	} else {
		result, err = manifest.ValidateFile(path)
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %v\n", err)
		return fmt.Errorf("manifest validation failed: %w", err)
	}

	if result.Valid {
		m, err := manifest.Load(path)
		if err != nil {
			fmt.Fprintf(w, "  [ OK ] Valid manifest\n")
			return nil
		}
		fmt.Fprintf(w, "  [ OK ] Valid manifest: %s (v%s), %d placement(s)\n", m.Name, m.Version, len(m.Placements))
		if err := manifest.CheckCompatibility(m, buildVersion); err != nil {
			fmt.Fprintf(w, "  [FAIL] %v\n", err)
			return err
		}
		return nil
	}

	fmt.Fprintf(w, "  [FAIL] %d validation issue(s):\n", len(result.Issues))
	for _, issue := range result.Issues {
		if issue.Path != "" {
			fmt.Fprintf(w, "    - %s: %s\n", issue.Path, issue.Message)
		} else {
			fmt.Fprintf(w, "    - %s\n", issue.Message)
		}
	}
	return fmt.Errorf("manifest %s has %d validation issue(s)", label, len(result.Issues))
}
