package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"

	"personashield/internal/assessor"
	_ "personashield/internal/assessor/openai"
	"personashield/internal/config"
	"personashield/internal/handler"
	"personashield/internal/port"
	"personashield/internal/publisher/noop"
	"personashield/internal/publisher/twitter"
	"personashield/internal/repository/postgres"
	"personashield/internal/router"
	"personashield/internal/scan"
	"personashield/internal/service"
	"personashield/internal/storage/local"
	s3storage "personashield/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.Log.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	scanJobRepo := postgres.NewScanJobRepo(db)
	postReviewRepo := postgres.NewPostReviewRepo(db)

	// Initialize storage; S3 mirroring is optional
	var objectStorage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		objectStorage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		log.Printf("Mirroring scan artifacts to s3://%s/%s", cfg.S3.Bucket, cfg.S3.KeyPrefix)
	}
	artifactStore := local.NewArtifactStore(cfg.Scan.OutputDir)

	// Initialize remote clients
	scanRunner := scan.NewRunner(scan.NewClient(&cfg.Scan), artifactStore, scan.RunnerConfigFrom(cfg))
	riskAssessor, err := assessor.NewChain(&cfg.Assessor, &cfg.FallbackAssessor)
	if err != nil {
		return fmt.Errorf("failed to initialize risk assessor: %w", err)
	}
	publisher := newPublisher(&cfg.Publisher)

	// Initialize services
	authSvc := service.NewAuthService(cfg.JWT)
	scanSvc := service.NewScanService(
		scanRunner,
		local.NewJobArtifactStores(cfg.Scan.OutputDir),
		scanJobRepo,
		objectStorage,
		cfg.Scan.Model,
		cfg.Scan.MaxFileSizeMB,
	)
	moderationSvc := service.NewModerationService(scanSvc, riskAssessor, publisher, postReviewRepo, cfg.Scan.MaxFileSizeMB)

	// Initialize handlers
	authH := handler.NewAuthHandler(authSvc)
	scanH := handler.NewScanHandler(scanSvc)
	postH := handler.NewPostHandler(moderationSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(authSvc, authH, scanH, postH, healthH, cfg.CORS.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func newPublisher(cfg *config.PublisherConfig) port.PostPublisher {
	if cfg.Provider == "twitter" && cfg.AccessToken != "" {
		return twitter.NewPublisher(cfg)
	}
	if cfg.Provider == "twitter" {
		log.Println("publisher.access_token is empty; posts will be logged instead of published")
	}
	return noop.NewNoopPublisher()
}
