package main

import (
	"fmt"
	"os"

	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "healthclaims",
		Short: "Healthcare claims API server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.GetEnv("CONFIG_PATH", "."), "directory holding config.yaml")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(importCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the claims API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runServer(cmd.Context(), cfg, log)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create indexes or tables and rewrite legacy document layouts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runMigrate(cmd.Context(), cfg, log)
		},
	}
}

func importCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Seed the claim store from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runImport(cmd.Context(), cfg, log, args[0])
		},
	}
}

func bootstrap(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	log, err := logger.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, log, nil
}
