package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v57/github"
	"github.com/qingbolan/github-yearbook/internal/handlers"
	"github.com/qingbolan/github-yearbook/internal/middleware"
	"github.com/qingbolan/github-yearbook/internal/repositories"
	"github.com/qingbolan/github-yearbook/internal/services"
	"github.com/qingbolan/github-yearbook/internal/workers"
	"github.com/qingbolan/github-yearbook/pkg/config"
	"github.com/qingbolan/github-yearbook/pkg/database"
	"github.com/qingbolan/github-yearbook/pkg/logger"
)

func main() {
	logger.Init()

	// Load configuration
	if err := config.Load(); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(config.AppConfig.Server.Mode)

	// Initialize database
	if err := database.Init(config.AppConfig.Database.Path); err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize repositories
	statsRepo := repositories.NewStatsRepository(database.DB)
	commitStatsRepo := repositories.NewCommitStatsRepository(database.DB)
	jobRepo := repositories.NewJobRepository(database.DB)

	// Aggregation services
	ghCfg := config.AppConfig.GitHub
	contributionService := services.NewContributionService(
		services.NewGraphQLClientFactory(ghCfg.GraphQLURL, ghCfg.RequestsPerSecond),
	)
	eventsService := services.NewEventsService(newEventsClient(ghCfg.BaseURL), ghCfg.EventsMaxPages)

	languages := services.NewLanguageTable(services.DefaultLanguageMapping())
	enricherService := services.NewEnricherService(
		config.AppConfig.Enricher.Enabled,
		config.AppConfig.Enricher.BatchSize,
		languages,
		commitStatsRepo,
		ghCfg.RequestsPerSecond,
	)

	yearbookService := services.NewYearbookService(
		statsRepo,
		contributionService,
		eventsService,
		enricherService,
		services.NewEnricherClientFactory(ghCfg.GraphQLURL, ghCfg.RequestsPerSecond),
		config.AppConfig.Cache.StatsTTL,
		config.AppConfig.Cache.LRUSize,
	)
	exportService := services.NewExportService()

	// Background refresh pipeline
	workerManager := workers.NewWorkerManager(jobRepo, yearbookService)
	if err := workerManager.StartAll(config.AppConfig.Workers.RefreshWorkers); err != nil {
		logger.Fatalf("Failed to start workers: %v", err)
	}
	defer workerManager.StopAll()

	schedulerService := services.NewSchedulerService(statsRepo, jobRepo, config.AppConfig.Cache.StatsTTL)
	schedulerService.StartScheduler()

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.TokenMiddleware())

	setupRoutes(router, yearbookService, exportService, workerManager)

	// Setup server
	server := &http.Server{
		Addr:         ":" + config.AppConfig.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(config.AppConfig.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.AppConfig.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Infof("Server starting on :%s", config.AppConfig.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
	logger.Info("Server stopped")
}

func setupRoutes(router *gin.Engine, yearbookService *services.YearbookService, exportService *services.ExportService, workerManager *workers.WorkerManager) {
	statsHandler := handlers.NewStatsHandler(yearbookService, exportService)
	healthHandler := handlers.NewHealthHandler(workerManager)

	api := router.Group("/api")
	{
		api.GET("/stats/:username/:period", statsHandler.GetStats)
		api.GET("/stats/:username/:period/export", statsHandler.ExportStats)
	}

	router.GET("/health", healthHandler.Health)

	router.NoRoute(handlers.NewNotFoundHandler().NotFound)
}

// newEventsClient builds the unauthenticated REST client for the events
// fallback path. baseURL is only set for GitHub Enterprise deployments.
func newEventsClient(baseURL string) *github.Client {
	client := github.NewClient(nil)
	if baseURL != "" {
		if enterprise, err := client.WithEnterpriseURLs(baseURL, baseURL); err == nil {
			return enterprise
		}
		logger.Warnf("Invalid GITHUB_BASE_URL %q, using api.github.com", baseURL)
	}
	return client
}
