package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/placekit-labs/placekit/internal/branding"
	"github.com/placekit-labs/placekit/internal/config"
	"github.com/placekit-labs/placekit/internal/handshake"
	"github.com/placekit-labs/placekit/internal/platform"
	"github.com/placekit-labs/placekit/internal/rest"
	"github.com/spf13/cobra"
)

var (
	doctorSkipPortal bool
	doctorManifest   string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, manifest and portal access",
	Long: `Run diagnostic checks: the config file, the placement manifest, the
configured credentials and a user.current round trip to the portal.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorSkipPortal, "offline", false, "Skip the portal connectivity check")
	doctorCmd.Flags().StringVar(&doctorManifest, "manifest", "", "Placement manifest to check (default: app.manifest or embedded)")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	failed := 0

	checkConfigFile(w)

	path := doctorManifest
	if path == "" {
		path = settings.App.Manifest
	}
	if err := runManifestCheck(w, path); err != nil {
		failed++
	}

	fmt.Fprintln(w, "Portal check:")
	switch {
	case settings.UsesWebhook():
		fmt.Fprintln(w, "  [ OK ] incoming webhook configured")
	case settings.Portal.Domain != "":
		if _, err := rest.PortalHost(settings.Portal.Domain); err != nil {
			fmt.Fprintf(w, "  [FAIL] %v\n", err)
			return errors.New("doctor found problems")
		}
		fmt.Fprintf(w, "  [ OK ] OAuth against %s\n", settings.Portal.Domain)
		if settings.OAuth.ClientID == "" {
			fmt.Fprintf(w, "  [WARN] oauth.client_id not set, expired tokens will not be refreshed (set %s)\n",
				branding.EnvVar("oauth.client_id"))
		}
	default:
		fmt.Fprintf(w, "  [FAIL] %v\n", errNoPortal)
		fmt.Fprintf(w, "  [HINT] export %s=https://<portal>/rest/<user>/<code>/ or run: %s config set portal.webhook <url>\n",
			branding.EnvVar("portal.webhook"), branding.CLIName())
		return errors.New("doctor found problems")
	}

	if !doctorSkipPortal {
		if err := checkPortal(cmd, w); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("doctor found %d problem(s)", failed)
	}
	return nil
}

func checkConfigFile(w io.Writer) {
	fmt.Fprintln(w, "Config check:")
	path := configPath
	if path == "" {
		path = config.FilePath()
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  [INFO] %s not found, using defaults and environment\n", path)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s\n", path)
	if private, err := platform.IsPrivate(path); err == nil && !private {
		fmt.Fprintf(w, "  [WARN] %s is readable by other users, run: chmod 600 %s\n", path, path)
	}
}

func checkPortal(cmd *cobra.Command, w io.Writer) error {
	if _, err := newHandshake(settings).Initialize(cmd.Context()); err != nil {
		var herr *handshake.Error
		if errors.As(err, &herr) {
			fmt.Fprintf(w, "  [FAIL] %v\n", herr.Err)
		} else {
			fmt.Fprintf(w, "  [FAIL] %v\n", err)
		}
		return err
	}
	fmt.Fprintln(w, "  [ OK ] user.current answered, credentials accepted")
	return nil
}
