package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/dementia-risk/pkg/common/config"
	"github.com/synaptica-ai/dementia-risk/pkg/common/logger"
	"github.com/synaptica-ai/dementia-risk/pkg/common/middleware"
	"github.com/synaptica-ai/dementia-risk/pkg/observability/metrics"
	"github.com/synaptica-ai/dementia-risk/pkg/serving"
)

func main() {
	logger.Init("assessment-service")
	cfg := config.Load()

	components, err := serving.Build(context.Background(), cfg, "assessment-service")
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize assessment service")
	}
	defer components.Close()

	var cache serving.ResultCache
	if components.Cache != nil {
		cache = components.Cache
	}
	var audit serving.AuditReader
	if components.Repository != nil {
		audit = components.Repository
	}
	handler, err := serving.NewHandler(components.Service, cache, audit)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build HTTP handler")
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS(cfg.CORSOrigin))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", serving.HealthCheck).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")
	handler.Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Assessment Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Assessment Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Assessment Service stopped")
}
