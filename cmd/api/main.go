package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storage-market/internal/api/handlers"
	"storage-market/internal/api/middleware"
	"storage-market/internal/config"
)

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg := config.Default()
	if path := os.Getenv("API_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			slog.Error("failed to load config", "path", path, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	runHandler := handlers.NewRunHandler(cfg)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/run", runHandler.RunPoint)
		api.GET("/scenarios", handlers.ListScenarios)
	}

	addr := fmt.Sprintf(":%s", port)
	slog.Info("starting API server", "addr", addr)
	if err := router.Run(addr); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}
