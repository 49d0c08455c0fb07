package cli

import (
	"github.com/gin-gonic/gin"
	"github.com/placekit-labs/placekit/internal/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	servePublicURL string
	serveManifest  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the install and widget pages",
	Long: `Serve the app's HTTP endpoints: the install page the portal opens when the
app is installed, the widget page rendered inside bound placements, /healthz
and /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr)")
	serveCmd.Flags().StringVar(&servePublicURL, "public-url", "", "External base URL of the app (default server.public_url)")
	serveCmd.Flags().StringVar(&serveManifest, "manifest", "", "Placement manifest (default: embedded)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	m, err := loadManifest(serveManifest)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = settings.Server.Addr
	}
	publicURL := servePublicURL
	if publicURL == "" {
		publicURL = settings.Server.PublicURL
	}

	gin.SetMode(gin.ReleaseMode)
	srv, err := server.New(server.Config{
		Addr:           addr,
		PublicURL:      publicURL,
		AllowedDomains: settings.Server.AllowedDomains,
		TrustForwarded: settings.Server.TrustForwarded,
		Manifest:       m,
		NewClient:      serverClientFactory(settings),
		Logger:         cliLog,
		Metrics:        cliStats,
	})
	if err != nil {
		return err
	}
	return srv.Run(cmd.Context())
}
