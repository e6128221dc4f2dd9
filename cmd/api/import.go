package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/internal/utils"
	"go.uber.org/zap"
)

func runImport(ctx context.Context, cfg *config.Config, log *zap.Logger, path string) error {
	if cfg.Storage.Driver == config.DriverMemory {
		return fmt.Errorf("import needs a persistent storage driver")
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	store, err := openStorage(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer store.close(ctx)

	result, err := utils.NewClaimCSVImporter(store.claims, log).Import(ctx, file)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		log.Warn("row skipped", zap.String("reason", msg))
	}
	return nil
}
