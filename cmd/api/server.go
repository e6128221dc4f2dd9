package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ArowuTest/healthclaims-backend/api/routes"
	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/internal/handlers"
	"github.com/ArowuTest/healthclaims-backend/internal/services"
	"github.com/ArowuTest/healthclaims-backend/pkg/filehost"
	"github.com/ArowuTest/healthclaims-backend/pkg/jwt"
	"github.com/ArowuTest/healthclaims-backend/pkg/revocation"
	"go.uber.org/zap"
)

func runServer(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := openStorage(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		store.close(closeCtx)
	}()

	revocations, closeRevocations := openRevocations(ctx, cfg, log)
	defer closeRevocations()

	backend, err := openFileHost(ctx, cfg, log)
	if err != nil {
		return err
	}
	host := filehost.NewHost(backend, filehost.Options{
		UploadTimeout:     cfg.FileHost.UploadTimeout,
		PresignTTL:        cfg.FileHost.PresignTTL,
		MaxConcurrency:    cfg.FileHost.MaxConcurrency,
		MaxFileSize:       cfg.FileHost.MaxFileSize,
		AllowedExtensions: cfg.FileHost.AllowedExtensions,
	}, log.Named("filehost"))

	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpiresIn)

	authService := services.NewAuthService(store.users, tokens, revocations, log.Named("auth"))
	claimService := services.NewClaimService(store.claims, cfg.Claims.ReviewPolicy, log.Named("claims"))
	documentService := services.NewDocumentService(host)

	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:     handlers.NewAuthHandler(authService, log),
		ClaimHandler:    handlers.NewClaimHandler(claimService, log),
		DocumentHandler: handlers.NewDocumentHandler(documentService, log),
		HealthHandler:   handlers.NewHealthHandler(cfg.Storage.Driver, store.ping, log),
		Authenticator:   authService,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Environment),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("review_policy", cfg.Claims.ReviewPolicy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

// openRevocations prefers Redis and falls back to process memory when no
// address is configured or Redis cannot be reached.
func openRevocations(ctx context.Context, cfg *config.Config, log *zap.Logger) (revocation.Store, func()) {
	if cfg.Redis.Addr != "" {
		client, err := revocation.OpenRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			log.Info("token revocations stored in redis", zap.String("addr", cfg.Redis.Addr))
			return revocation.NewRedisStore(client), func() { _ = client.Close() }
		}
		log.Warn("redis unavailable, keeping revocations in memory", zap.Error(err))
	}
	mem := revocation.NewMemoryStore(time.Minute)
	return mem, mem.Close
}

func openFileHost(ctx context.Context, cfg *config.Config, log *zap.Logger) (filehost.Backend, error) {
	if cfg.FileHost.MockUpload {
		log.Warn("document uploads are mocked; files are not stored")
		return filehost.NewMockBackend(cfg.FileHost.PublicBaseURL), nil
	}
	backend, err := filehost.NewS3Backend(ctx, filehost.S3Config{
		Bucket:        cfg.FileHost.Bucket,
		Region:        cfg.FileHost.Region,
		Endpoint:      cfg.FileHost.Endpoint,
		PublicBaseURL: cfg.FileHost.PublicBaseURL,
		AccessKeyID:   cfg.FileHost.AccessKeyID,
		SecretKey:     cfg.FileHost.SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("open file host: %w", err)
	}
	return backend, nil
}
