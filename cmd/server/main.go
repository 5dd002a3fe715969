package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classmap/classmap-api/internal/handler"
	internalmiddleware "github.com/classmap/classmap-api/internal/middleware"
	"github.com/classmap/classmap-api/internal/render"
	"github.com/classmap/classmap-api/internal/repository"
	"github.com/classmap/classmap-api/internal/service"
	"github.com/classmap/classmap-api/pkg/cache"
	"github.com/classmap/classmap-api/pkg/config"
	"github.com/classmap/classmap-api/pkg/database"
	"github.com/classmap/classmap-api/pkg/export"
	"github.com/classmap/classmap-api/pkg/jobs"
	"github.com/classmap/classmap-api/pkg/logger"
	corsmiddleware "github.com/classmap/classmap-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classmap/classmap-api/pkg/middleware/requestid"
	"github.com/classmap/classmap-api/pkg/storage"
)

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	exportStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}

	layoutRepo := repository.NewLayoutRepository(db)
	studentRepo := repository.NewStudentRepository(db, logr)
	draftRepo := repository.NewDraftRepository(redisClient, cfg.Drafts.TTL)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(service.AuthConfig{Secret: cfg.JWT.Secret}, logr)

	var sessionSvc *service.SessionService
	autosaveQueue := jobs.NewQueue("draft-autosave", func(ctx context.Context, job jobs.Job) error {
		err := sessionSvc.HandleAutosave(ctx, job)
		metricsSvc.ObserveDraftSave(err)
		return err
	}, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.Drafts.SaveQueueSize,
		MaxRetries: cfg.Drafts.SaveRetries,
		RetryDelay: time.Second,
		Logger:     logr,
	})

	sessionSvc = service.NewSessionService(layoutRepo, draftRepo, studentRepo, autosaveQueue, logr, service.SessionServiceConfig{
		Rows:          cfg.Chart.Rows,
		SeatsPerRow:   cfg.Chart.SeatsPerRow,
		TableWidth:    cfg.Chart.TableWidth,
		RefreshOnLoad: cfg.Chart.RefreshOnLoad,
	})
	rosterSvc := service.NewRosterService(studentRepo, sessionSvc, logr)

	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	renderer := render.NewRenderer(cfg.Exports.RasterScale)
	exportSvc := service.NewExportService(sessionSvc, renderer, export.NewPDFExporter(), export.NewCSVExporter(), exportStorage, signer, logr, cfg.APIPrefix)

	sessionHandler := handler.NewSessionHandler(sessionSvc, metricsSvc)
	layoutHandler := handler.NewLayoutHandler(sessionSvc)
	rosterHandler := handler.NewRosterHandler(rosterSvc)
	exportHandler := handler.NewExportHandler(exportSvc, metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)

	// Signed download links are their own credential.
	api.GET("/exports/download", exportHandler.Download)

	authed := api.Group("")
	authed.Use(internalmiddleware.JWT(authSvc))

	sessionGroup := authed.Group("/session")
	sessionGroup.GET("", sessionHandler.Get)
	sessionGroup.POST("/seats/assign", sessionHandler.Assign)
	sessionGroup.POST("/seats/move", sessionHandler.Move)
	sessionGroup.POST("/seats/remove", sessionHandler.Remove)
	sessionGroup.POST("/seats/select", sessionHandler.Select)
	sessionGroup.POST("/seats/deselect", sessionHandler.Deselect)
	sessionGroup.POST("/view/zoom-in", sessionHandler.ZoomIn)
	sessionGroup.POST("/view/zoom-out", sessionHandler.ZoomOut)
	sessionGroup.POST("/view/pan", sessionHandler.Pan)
	sessionGroup.POST("/view/reset", sessionHandler.ResetView)
	sessionGroup.POST("/compact-mode", sessionHandler.SetCompactMode)
	sessionGroup.POST("/rename", sessionHandler.Rename)
	sessionGroup.POST("/clear", sessionHandler.Clear)

	layoutGroup := authed.Group("/layouts")
	layoutGroup.GET("", layoutHandler.List)
	layoutGroup.POST("", layoutHandler.Save)
	layoutGroup.POST("/:id/load", layoutHandler.Load)
	layoutGroup.DELETE("/:id", layoutHandler.Delete)

	rosterGroup := authed.Group("/roster")
	rosterGroup.GET("", rosterHandler.List)
	rosterGroup.GET("/:id", rosterHandler.Get)

	exportGroup := authed.Group("/exports")
	exportGroup.POST("/pdf", exportHandler.GeneratePDF)
	exportGroup.POST("/csv", exportHandler.GenerateCSV)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	autosaveQueue.Start(ctx)
	defer autosaveQueue.Stop()

	go func() {
		ticker := time.NewTicker(cfg.Exports.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := exportStorage.CleanupOlderThan(cfg.Exports.SignedURLTTL)
				if err != nil {
					logr.Warn("export cleanup failed", zap.Error(err))
				} else if len(removed) > 0 {
					logr.Info("expired exports removed", zap.Int("count", len(removed)))
				}
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
