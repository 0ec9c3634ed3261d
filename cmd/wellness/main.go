// cmd/wellness/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"wellness-log/internal/config"
	"wellness-log/internal/logger"
	"wellness-log/internal/sampling"
	"wellness-log/internal/server"
	"wellness-log/internal/storage"
	"wellness-log/internal/tracker"
)

const (
	serviceName = "wellness-log"
	version     = "1.0.0"
)

var (
	hostFlag   string
	portFlag   int
	dbPathFlag string
)

var rootCmd = &cobra.Command{
	Use:           "wellness",
	Short:         "wellness - diet, hydration, support chat and journal tracker",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP tool server",
	RunE:  runServe,
}

var viewCmd = &cobra.Command{
	Use:   "view [overview|diet|hydration|support-chat|journal]",
	Short: "Print a view of the stored data as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runView,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", serviceName, version)
	},
}

func init() {
	serveCmd.Flags().StringVar(&hostFlag, "host", "", "Host address (overrides WELLNESS_HTTP_HOST)")
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port for HTTP transport (overrides WELLNESS_HTTP_PORT)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "Database path (overrides WELLNESS_DB_PATH)")
	rootCmd.AddCommand(serveCmd, viewCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if hostFlag != "" {
		cfg.HTTPHost = hostFlag
	}
	if portFlag != 0 {
		cfg.HTTPPort = portFlag
	}
	if dbPathFlag != "" {
		cfg.DBPath = dbPathFlag
	}
	return cfg, cfg.ResolveDefaults()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(serviceName, cfg.LogLevel)

	srv, err := server.NewWellnessServer(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			log.Error().Err(serveErr).Msg("server error")
		}
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	return serveErr
}

func runView(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	selector := ""
	if len(args) == 1 {
		selector = args[0]
	}
	return printView(cmd.Context(), cmd.OutOrStdout(), cfg, selector, logger.New(serviceName, "warn"))
}

// printView loads the stored collections and writes one rendered view.
func printView(ctx context.Context, w io.Writer, cfg *config.Config, selector string, log zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stor, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer stor.Close()

	tr := tracker.New(ctx, stor, sampling.NewClient(cfg, nil, log), tracker.Goals{
		CalorieGoal: cfg.DailyCalorieGoal,
		WaterGoalMl: cfg.DailyWaterGoalMl,
	}, log)

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr.Render(selector))
}
