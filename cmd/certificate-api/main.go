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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edu-certificate-api/api/swagger"
	"github.com/noah-isme/edu-certificate-api/internal/handler"
	"github.com/noah-isme/edu-certificate-api/internal/repository"
	"github.com/noah-isme/edu-certificate-api/internal/service"
	"github.com/noah-isme/edu-certificate-api/pkg/cache"
	"github.com/noah-isme/edu-certificate-api/pkg/config"
	"github.com/noah-isme/edu-certificate-api/pkg/database"
	"github.com/noah-isme/edu-certificate-api/pkg/export"
	"github.com/noah-isme/edu-certificate-api/pkg/jobs"
	"github.com/noah-isme/edu-certificate-api/pkg/logger"
	"github.com/noah-isme/edu-certificate-api/pkg/qrcode"
	"github.com/noah-isme/edu-certificate-api/pkg/storage"
)

// @title Edu Certificate API
// @version 1.0.0
// @description Certificate eligibility, issuance, revocation, rendering and public verification
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("certificate api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database, logr); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsSvc := service.NewMetricsService()
	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Certificates.VerifyCacheTTL, logr, true)
	}

	certificateRepo := repository.NewCertificateRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	learningRepo := repository.NewLearningRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	validate := validator.New()

	templateSvc := service.NewTemplateService(templateRepo, validate, logr)
	if seeded, err := templateSvc.SeedDefaults(ctx); err != nil {
		logr.Warn("failed to seed default templates", zap.Error(err))
	} else if seeded > 0 {
		logr.Info("default templates seeded", zap.Int("count", seeded))
	}

	artifactStore, err := storage.NewLocalStorage(cfg.Artifacts.StorageDir)
	if err != nil {
		return fmt.Errorf("init artifact storage: %w", err)
	}
	renderer := export.NewCertificateRenderer(export.NewHTTPAssetLoader(cfg.Certificates.AssetTimeout), qrcode.NewGenerator(qrcode.DefaultSize), logr)
	downloadSvc := service.NewDownloadService(certificateRepo, templateSvc, renderer, artifactStore,
		storage.NewSignedURLSigner(cfg.Artifacts.SignedURLSecret, cfg.Artifacts.SignedURLTTL), metricsSvc, logr,
		service.DownloadServiceConfig{
			VerifyBaseURL: cfg.Certificates.VerifyBaseURL,
			PublicBaseURL: cfg.Certificates.PublicBaseURL,
			LinkBaseURL:   cfg.Artifacts.LinkBaseURL,
			ArtifactTTL:   cfg.Artifacts.TTL,
		})
	prerenderQueue := jobs.NewQueue("certificate-prerender", downloadSvc.HandlePrerender, jobs.QueueConfig{
		Workers:    cfg.Artifacts.PrerenderWorkers,
		MaxRetries: cfg.Artifacts.PrerenderRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	metricsSvc.RegisterQueue(prerenderQueue.Name(), prerenderQueue.Stats)
	prerenderQueue.Start(ctx)
	defer prerenderQueue.Stop()
	downloadSvc.AttachQueue(prerenderQueue)

	verificationSvc := service.NewVerificationService(certificateRepo, cacheSvc, metricsSvc, cfg.Certificates.VerifyCacheTTL, logr)
	eligibilitySvc := service.NewEligibilityService(learningRepo, certificateRepo, logr)
	certificateSvc := service.NewCertificateService(service.CertificateServiceParams{
		Repo:         certificateRepo,
		Learning:     learningRepo,
		Eligibility:  eligibilitySvc,
		Templates:    templateSvc,
		Audit:        auditRepo,
		Artifacts:    downloadSvc,
		Verification: verificationSvc,
		Cache:        cacheSvc,
		Metrics:      metricsSvc,
		Validator:    validate,
		Logger:       logr,
		Config: service.CertificateServiceConfig{
			NumberPrefix:  cfg.Certificates.NumberPrefix,
			Validity:      cfg.Certificates.Validity,
			StatsCacheTTL: cfg.Certificates.StatsCacheTTL,
		},
	})
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})

	if cfg.Maintenance.Enabled {
		maintenance := service.NewMaintenanceService(certificateRepo, downloadSvc, verificationSvc, auditRepo, cacheSvc, metricsSvc, cfg.Maintenance.Schedule, logr)
		if err := maintenance.Start(ctx); err != nil {
			return err
		}
		defer maintenance.Stop()
	}

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return pingRedis(ctx, redisClient) })
	}

	router := newRouter(cfg, logr, routeDeps{
		auth:         authSvc,
		audit:        auditRepo,
		metrics:      metricsSvc,
		certificates: handler.NewCertificateHandler(certificateSvc),
		eligibility:  handler.NewEligibilityHandler(eligibilitySvc),
		templates:    handler.NewTemplateHandler(templateSvc),
		verification: handler.NewVerificationHandler(verificationSvc),
		downloads:    handler.NewDownloadHandler(downloadSvc),
		ops:          handler.NewMetricsHandler(metricsSvc, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
