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

	"github.com/gorilla/mux"
	"github.com/pulmoprobe/platform/pkg/audit"
	"github.com/pulmoprobe/platform/pkg/common/config"
	"github.com/pulmoprobe/platform/pkg/common/database"
	"github.com/pulmoprobe/platform/pkg/common/kafka"
	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/gateway/middleware"
	"github.com/pulmoprobe/platform/pkg/observability/metrics"
)

func main() {
	logger.Init("audit-service")
	cfg := config.Load()

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to database")
	}

	repo := audit.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate audit tables")
	}
	service := audit.NewService(repo)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.PredictionEventsTopic, cfg.KafkaGroupID)
	consumeCtx, stopConsuming := context.WithCancel(context.Background())
	consumeDone := make(chan struct{})

	go func() {
		defer close(consumeDone)
		logger.Log.WithFields(map[string]interface{}{
			"topic": cfg.PredictionEventsTopic,
			"group": cfg.KafkaGroupID,
		}).Info("Consuming prediction events")

		if err := consumer.Consume(consumeCtx, service.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.WithError(err).Error("Event consumer stopped")
		}
	}()

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler).Methods(http.MethodGet)
	audit.NewHTTPHandler(service).Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.AuditPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.AuditPort,
		}).Info("Audit Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Audit Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	stopConsuming()
	<-consumeDone
	if err := consumer.Close(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close event consumer")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Warn("Failed to close database")
	}

	logger.Log.Info("Audit Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
