package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ahaarwise/internal/config"
	"ahaarwise/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ahaarwise",
	Short: "Diet and patient management for Ayurvedic practitioners",
	Long: `ahaarwise serves the AhaarWISE web application and its JSON API.

Settings come from defaults, an optional YAML file (--config or AHAAR_CONFIG)
and environment variables. A .env file in the working directory is loaded
first if present.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file (overrides AHAAR_CONFIG)")
	rootCmd.AddCommand(serveCmd, useraddCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}
