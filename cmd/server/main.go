package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Jeelislive/openRank-Backend/internal/handlers"
	"github.com/Jeelislive/openRank-Backend/internal/middleware"
	"github.com/Jeelislive/openRank-Backend/internal/repositories"
	"github.com/Jeelislive/openRank-Backend/internal/services"
	"github.com/Jeelislive/openRank-Backend/internal/workers"
	"github.com/Jeelislive/openRank-Backend/pkg/config"
	"github.com/Jeelislive/openRank-Backend/pkg/database"
	"github.com/Jeelislive/openRank-Backend/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
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

	// Repositories
	developerRepo := repositories.NewDeveloperRepository(database.DB)
	projectRepo := repositories.NewProjectRepository(database.DB)
	visitRepo := repositories.NewVisitRepository(database.DB)
	jobRepo := repositories.NewJobRepository(database.DB)

	// Services
	githubClient := services.NewGitHubClient(config.AppConfig.GitHub.Token)
	attributeService := services.NewAttributeService()
	eligibilityService := services.NewEligibilityService(githubClient)
	scoreService := services.NewScoreService(githubClient, attributeService)
	discoveryService := services.NewDiscoveryService(
		githubClient, developerRepo, eligibilityService, scoreService,
		config.AppConfig.Discovery.CompaniesPerSweep,
	)
	developerService := services.NewDeveloperService(
		developerRepo, jobRepo, eligibilityService, scoreService, discoveryService,
	)
	projectService := services.NewProjectService(githubClient, projectRepo)
	exportService := services.NewExportService(developerRepo)
	visitService := services.NewVisitService(visitRepo)

	// Workers
	workerManager := workers.NewWorkerManager(jobRepo, developerService, discoveryService)
	workerManager.StartAll()
	defer workerManager.StopAll()

	// Daily discovery sweep
	discoveryService.StartScheduler(config.AppConfig.Discovery.SweepHour)

	// Router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.AppConfig.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.VisitTracker(visitService))

	setupRoutes(router, developerService, projectService, exportService, visitService)

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
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server stopped")
}

func setupRoutes(
	router *gin.Engine,
	developerService *services.DeveloperService,
	projectService *services.ProjectService,
	exportService *services.ExportService,
	visitService *services.VisitService,
) {
	developerHandler := handlers.NewDeveloperHandler(developerService, exportService)
	projectHandler := handlers.NewProjectHandler(projectService)
	visitHandler := handlers.NewVisitHandler(visitService)
	healthHandler := handlers.NewHealthHandler()

	router.GET("/health", healthHandler.Health)

	api := router.Group("/api")
	{
		developers := api.Group("/developers")
		{
			developers.GET("/rankings", developerHandler.GetRankings)
			developers.GET("/check-rank/:username", developerHandler.CheckRank)
			developers.GET("/search", developerHandler.Search)
			developers.GET("/companies", developerHandler.GetCompanies)
			developers.GET("/countries", developerHandler.GetCountries)
			developers.GET("/cities", developerHandler.GetCities)
			developers.GET("/profile-types", developerHandler.GetProfileTypes)
			developers.GET("/export", developerHandler.ExportRankings)
			developers.POST("/auto-discover", developerHandler.AutoDiscover)
			developers.POST("/trigger-discovery", developerHandler.TriggerDiscovery)
			developers.GET("/:username", developerHandler.GetDeveloper)
			developers.POST("/:username/calculate", developerHandler.Calculate)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.GET("/languages", projectHandler.GetLanguages)
			projects.GET("/categories", projectHandler.GetCategories)
		}

		api.GET("/visits/count", visitHandler.GetVisitCount)
	}
}
