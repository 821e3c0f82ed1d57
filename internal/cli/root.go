// Package cli implements the daypulse CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/app"
	"github.com/rcliao/daypulse/internal/config"
	"github.com/rcliao/daypulse/internal/logger"
)

var (
	dbPath        string
	logLevel      string
	presenterFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "daypulse",
	Short: "Day-scoped cache, geofences and local notifications",
	Long:  "Daily-event state, geofence monitoring and notification scheduling. SQLite-backed, single binary.",
}

// kvCmd groups raw keyed-store access under the reserved namespace.
var kvCmd = &cobra.Command{
	Use:   "kv",
	Short: "Raw key/value access under the app namespace",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $DAYPULSE_DB_PATH or ~/.daypulse/daypulse.db)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default: $DAYPULSE_LOG_LEVEL)")
	RootCmd.PersistentFlags().StringVar(&presenterFlag, "presenter", "", "Presenter: log, nats, telegram (default: $DAYPULSE_PRESENTER)")
	RootCmd.AddCommand(kvCmd)
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if presenterFlag != "" {
		cfg.Presenter = presenterFlag
	}
	return cfg, cfg.Validate()
}

func openApp(cmd *cobra.Command, opts app.Options) *app.App {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		exitErr("logger", err)
	}
	a, err := app.New(cmd.Context(), cfg, log, opts)
	if err != nil {
		exitErr("open app", err)
	}
	if a.Degraded() {
		log.Warn("running without persistence", zap.String("db", cfg.DBPath))
	}
	return a
}

func printJSON(cmd *cobra.Command, v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
