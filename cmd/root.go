package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/psds-microservice/delivery-service/internal/config"
	"github.com/psds-microservice/delivery-service/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "delivery-service",
	Short: "Delivery request desk: customer request form and admin dashboard",
	RunE:  runAPI,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(apiCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(adminCmd)
	rootCmd.AddCommand(replayEventsCmd)
}

// loadConfig reads .env and the environment, validates, and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, nil
}
