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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/westgate-schools/admin-console/api/swagger"
	"github.com/westgate-schools/admin-console/internal/admissions"
	"github.com/westgate-schools/admin-console/internal/apiclient"
	"github.com/westgate-schools/admin-console/internal/gallery"
	"github.com/westgate-schools/admin-console/internal/handler"
	"github.com/westgate-schools/admin-console/internal/records"
	"github.com/westgate-schools/admin-console/internal/service"
	"github.com/westgate-schools/admin-console/internal/session"
	"github.com/westgate-schools/admin-console/internal/tokenstore"
	"github.com/westgate-schools/admin-console/pkg/config"
	"github.com/westgate-schools/admin-console/pkg/jobs"
	"github.com/westgate-schools/admin-console/pkg/logger"
	corsmiddleware "github.com/westgate-schools/admin-console/pkg/middleware/cors"
	reqidmiddleware "github.com/westgate-schools/admin-console/pkg/middleware/requestid"
	"github.com/westgate-schools/admin-console/pkg/observability"
	"github.com/westgate-schools/admin-console/pkg/storage"
)

// @title Westgate Admin Console
// @version 1.0.0
// @description Operator console for admissions, contact messages and the school gallery.
// @BasePath /
// @schemes http

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

	flush, err := observability.InitSentry(cfg.Sentry.DSN, cfg.Env, cfg.Release)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, err := tokenstore.Open(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open token store", zap.Error(err))
	}
	if closer, ok := tokens.(tokenstore.Closer); ok {
		defer closer.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	client := apiclient.New(apiclient.Config{
		BaseURL:     cfg.API.BaseURL,
		Timeout:     cfg.API.Timeout,
		AdminPrefix: cfg.Routes.AdminPrefix,
		LoginPath:   cfg.Routes.LoginPath,
	}, tokens,
		apiclient.WithLogger(logr),
		apiclient.WithMetrics(metrics),
		apiclient.WithErrorReporter(observability.CaptureErr),
	)

	validate := validator.New()
	sess := session.New(client, tokens, validate, logr)
	client.OnSessionExpired(sess.Expire)
	sess.Subscribe(func(state session.State) {
		logr.Info("session changed", zap.String("status", string(state.Status)))
	})
	go sess.Init(ctx)

	applications := records.NewApplications(client, logr)
	messages := records.NewMessages(client, logr)

	galleryCtrl := gallery.NewController(client, logr)
	uploadsPath := cfg.Routes.AdminPrefix + "/gallery/uploads"
	previews := gallery.NewPreviewRegistry(uploadsPath)
	batch, err := gallery.NewUploadBatch(client, tokens, galleryCtrl, previews, validate, logr, gallery.BatchConfig{
		PruneDelay:  cfg.Uploads.PruneDelay,
		MaxFileSize: cfg.Uploads.MaxFileSizeBytes,
		LoginPath:   cfg.Routes.LoginPath,
	}, gallery.WithMetrics(metrics))
	if err != nil {
		logr.Fatal("failed to init upload batch", zap.Error(err))
	}

	slipStore, err := storage.NewLocalStorage(cfg.Slips.StorageDir)
	if err != nil {
		logr.Fatal("failed to init slip storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Slips.SignedURLSecret, cfg.Slips.SignedURLTTL)
	slips := admissions.NewSlips(cfg.Admissions.SchoolName, "/apply/slips", slipStore, signer)
	registry, err := admissions.NewRegistry(client, slips, validate, admissions.Defaults{Nationality: cfg.Admissions.DefaultNationality}, logr, nil)
	if err != nil {
		logr.Fatal("failed to init admissions", zap.Error(err))
	}
	go registry.Run(ctx, time.Minute, cfg.Admissions.WizardIdle)

	housekeeping := jobs.NewQueue("housekeeping", jobs.QueueConfig{MaxRetries: 3, RetryDelay: time.Minute, Logger: logr})
	housekeeping.Register("slips.cleanup", time.Hour, func(ctx context.Context, _ jobs.Job) error {
		removed, err := slips.Cleanup(cfg.Slips.Retention)
		if err != nil {
			return err
		}
		if len(removed) > 0 {
			logr.Info("removed expired slips", zap.Int("count", len(removed)))
		}
		return nil
	})
	housekeeping.Start(ctx)
	defer housekeeping.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	handler.Routes{
		Metrics:      handler.NewMetricsHandler(metrics, sess),
		Auth:         handler.NewAuthHandler(sess, cfg.Routes.AdminPrefix+"/dashboard", cfg.Routes.LoginPath),
		Dashboard:    handler.NewDashboardHandler(applications, messages, galleryCtrl, metrics),
		Applications: handler.NewApplicationHandler(applications),
		Messages:     handler.NewMessageHandler(messages, client, validate, logr),
		Gallery:      handler.NewGalleryHandler(galleryCtrl, client),
		Uploads:      handler.NewUploadHandler(batch, previews, cfg.Uploads.MaxFileSizeBytes, logr),
		Admissions:   handler.NewAdmissionsHandler(registry, slips),
		Session:      sess,
		MetricsSvc:   metrics,
		AdminPrefix:  cfg.Routes.AdminPrefix,
		LoginPath:    cfg.Routes.LoginPath,
		AuditLogger:  logr.Named("audit"),
	}.Register(r)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("console starting", "addr", addr, "env", cfg.Env, "api", cfg.API.BaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
