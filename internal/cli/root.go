package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/placekit-labs/placekit/internal/branding"
	"github.com/placekit-labs/placekit/internal/config"
	"github.com/placekit-labs/placekit/internal/logger"
	"github.com/placekit-labs/placekit/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	configPath string
	logLevel   string
	logFormat  string

	settings *config.Settings
	cliLog   = zap.NewNop()
	cliStats *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` binds the app's widget into CRM portal placements (deal, company and
contact detail tabs), removes those bindings, and serves the install and widget pages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			s.Log.Level = logLevel
		}
		if logFormat != "" {
			s.Log.Format = logFormat
		}
		l, err := logger.New(&logger.Config{Level: s.Log.Level, Format: s.Log.Format, Output: s.Log.Output})
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		settings = s
		cliLog = l.With(zap.String("command", cmd.Name()))
		cliStats = metrics.New()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = cliLog.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/"+branding.HomeDir()+"/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console, json")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
