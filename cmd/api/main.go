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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/compliance-api/api/swagger"
	"github.com/noah-isme/compliance-api/internal/handler"
	"github.com/noah-isme/compliance-api/internal/middleware"
	"github.com/noah-isme/compliance-api/internal/ocr"
	"github.com/noah-isme/compliance-api/internal/repository"
	"github.com/noah-isme/compliance-api/internal/service"
	"github.com/noah-isme/compliance-api/pkg/cache"
	"github.com/noah-isme/compliance-api/pkg/config"
	"github.com/noah-isme/compliance-api/pkg/database"
	"github.com/noah-isme/compliance-api/pkg/export"
	"github.com/noah-isme/compliance-api/pkg/jobs"
	"github.com/noah-isme/compliance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/compliance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/compliance-api/pkg/middleware/requestid"
	"github.com/noah-isme/compliance-api/pkg/storage"
)

// @title Compliance API
// @version 1.0.0
// @description Fire-safety compliance tracking for companies: certificates, self-protection systems, QR inspection documents and events.
// @BasePath /api/v1
// @schemes http https

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck

	if cfg.RunMigrations {
		if err := database.Migrate(ctx, db.DB, logr); err != nil {
			return err
		}
	}

	cacheEnabled := cfg.Dashboard.CacheEnabled
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		cacheEnabled = false
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	validate := service.NewValidator()
	clock := service.Clock{Now: time.Now, Location: cfg.Location()}

	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	certificateRepo := repository.NewCertificateRepository(db)
	systemRepo := repository.NewSelfProtectionRepository(db)
	qrRepo := repository.NewQRDocumentRepository(db)
	eventRepo := repository.NewEventRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cacheEnabled)

	fileStore, err := storage.NewLocalStorage(cfg.Files.StorageDir)
	if err != nil {
		return fmt.Errorf("init file storage: %w", err)
	}
	handles := storage.NewHandleRegistry(cfg.Files.PreviewTTL)
	fileSvc := service.NewFileService(
		fileStore,
		storage.NewSignedURLSigner(cfg.Files.SignedURLSecret, cfg.Files.SignedURLTTL),
		handles,
		logr,
		service.FileServiceConfig{
			MaxFileSize:  cfg.Files.MaxFileSizeBytes,
			AllowedMIMEs: cfg.Files.AllowedMIMEs,
			APIPrefix:    cfg.APIPrefix,
		},
	)

	sessionSvc := service.NewSessionService(companyRepo)
	authSvc := service.NewAuthService(userRepo, companyRepo, cacheSvc, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "compliance-api",
	}).WithDenylist(repository.NewTokenDenylistRepository(redisClient)).WithClock(clock)
	companySvc := service.NewCompanyService(companyRepo, cacheSvc, auditRepo, validate, logr).WithClock(clock)
	certificateSvc := service.NewCertificateService(certificateRepo, fileSvc, cacheSvc, auditRepo, validate, logr)
	systemSvc := service.NewSelfProtectionService(systemRepo, fileSvc, cacheSvc, auditRepo, validate, logr)
	extractor := ocr.New(ocr.Config{
		Endpoint: cfg.OCR.Endpoint,
		APIKey:   cfg.OCR.APIKey,
		Timeout:  cfg.OCR.Timeout,
	}, logr)
	qrSvc := service.NewQRDocumentService(qrRepo, fileSvc, extractor, metrics, cacheSvc, auditRepo, clock, logr, service.QRDocumentConfig{
		MinConfidence: cfg.OCR.MinConfidence,
	})
	eventSvc := service.NewEventService(eventRepo, export.NewDocumentRenderer(), fileSvc, cacheSvc, auditRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Certificates:    certificateRepo,
		SelfProtections: systemRepo,
		QRDocuments:     qrRepo,
		Cache:           cacheSvc,
		Metrics:         metrics,
		Clock:           clock,
		Logger:          logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:    cfg.Dashboard.CacheTTL,
			DueSoonDays: cfg.Dashboard.DueSoonDays,
		},
	})

	go fileSvc.RunJanitor(ctx, time.Minute)

	var reportHandler *handler.ReportHandler
	if cfg.Reports.Enabled {
		reportSvc, queue, err := buildReports(ctx, cfg, db, certificateRepo, systemRepo, qrRepo, metrics, validate, clock, logr)
		if err != nil {
			return err
		}
		defer queue.Stop()
		reportHandler = handler.NewReportHandler(reportSvc)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(reqidmiddleware.Middleware())
	engine.Use(logger.GinMiddleware(logr))
	engine.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	engine.Use(middleware.Metrics(metrics))
	engine.Use(middleware.WithResponseMeta())

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = cacheRepo.Ping
	}

	router := &handler.Router{
		Auth:           handler.NewAuthHandler(authSvc),
		Session:        handler.NewSessionHandler(sessionSvc),
		Company:        handler.NewCompanyHandler(companySvc),
		Certificates:   handler.NewCertificateHandler(certificateSvc),
		SelfProtection: handler.NewSelfProtectionHandler(systemSvc),
		QRDocuments:    handler.NewQRDocumentHandler(qrSvc),
		Events:         handler.NewEventHandler(eventSvc),
		Files:          handler.NewFileHandler(fileSvc),
		Dashboard:      handler.NewDashboardHandler(dashboardSvc),
		Reports:        reportHandler,
		Metrics:        handler.NewMetricsHandler(metrics, checks),
		RequireAuth:    middleware.JWT(authSvc, sessionSvc),
		OptionalAuth:   middleware.OptionalJWT(authSvc, sessionSvc),
		AuditLog: func(action, resource string) gin.HandlerFunc {
			return middleware.Audit(auditRepo, action, resource)
		},
	}
	router.Register(engine, cfg.APIPrefix)

	if cfg.Env != config.EnvProduction {
		engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
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

// buildReports wires the export pipeline and starts its worker pool.
func buildReports(
	ctx context.Context,
	cfg *config.Config,
	db *sqlx.DB,
	certificates *repository.CertificateRepository,
	systems *repository.SelfProtectionRepository,
	documents *repository.QRDocumentRepository,
	metrics *service.MetricsService,
	validate *validator.Validate,
	clock service.Clock,
	logr *zap.Logger,
) (*service.ReportService, *jobs.Queue, error) {
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init report storage: %w", err)
	}
	reportRepo := repository.NewReportRepository(db)
	exporter := service.NewExportService(
		service.ExportSources{
			Certificates:    certificates,
			SelfProtections: systems,
			QRDocuments:     documents,
		},
		reportStore,
		storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		clock,
		service.ExportConfig{
			APIPrefix:   cfg.APIPrefix,
			ResultTTL:   cfg.Reports.SignedURLTTL,
			DueSoonDays: cfg.Dashboard.DueSoonDays,
		},
		logr,
		export.NewCSVExporter(),
		export.NewPDFExporter(),
	)

	worker := service.NewReportWorker(reportRepo, exporter, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:       cfg.Reports.WorkerConcurrency,
		BufferSize:    64,
		MaxRetries:    cfg.Reports.WorkerRetries,
		RetryDelay:    2 * time.Second,
		MaxRetryDelay: time.Minute,
		Logger:        logr,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(reportRepo, queue, exporter, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	return reportSvc, queue, nil
}
