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
	"github.com/pulmoprobe/platform/pkg/analytics/dashboard"
	"github.com/pulmoprobe/platform/pkg/common/config"
	"github.com/pulmoprobe/platform/pkg/common/database"
	"github.com/pulmoprobe/platform/pkg/common/kafka"
	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/features"
	"github.com/pulmoprobe/platform/pkg/gateway/httpclient"
	"github.com/pulmoprobe/platform/pkg/gateway/middleware"
	"github.com/pulmoprobe/platform/pkg/inference"
	"github.com/pulmoprobe/platform/pkg/ledger"
	"github.com/pulmoprobe/platform/pkg/observability/metrics"
	"github.com/pulmoprobe/platform/pkg/prediction"
	"github.com/pulmoprobe/platform/pkg/storage"
)

func main() {
	logger.Init("prognosis-service")
	cfg := config.Load()

	schema := features.DefaultSchema()
	if cfg.FeatureSchemaPath != "" {
		loaded, err := features.LoadSchema(cfg.FeatureSchemaPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to load feature schema")
		}
		schema = loaded
	}

	encoder := features.NewEncoder(schema)
	classifier := inference.NewClient(cfg.InferenceURL, httpclient.New(cfg.InferenceTimeout))
	predictions := ledger.New()
	engine := dashboard.NewEngine(cfg.ModelAccuracy)

	var sinks []prediction.Sink

	var producer *kafka.Producer
	if cfg.EventsEnabled {
		producer = kafka.NewProducer(cfg.KafkaBrokers, cfg.PredictionEventsTopic)
		sinks = append(sinks, prediction.NewEventSink(producer))
	}

	if cfg.DashboardMirrorEnabled {
		mirror := storage.NewDashboardMirror(database.GetRedis(cfg), cfg.DashboardMirrorKey, cfg.DashboardMirrorTTL)
		sinks = append(sinks, prediction.NewMirrorSink(predictions, engine, mirror))
	}

	service := prediction.NewService(encoder, classifier, predictions, sinks...)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	prediction.NewHTTPHandler(service, engine, cfg.MaxRequestBody).Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":          cfg.ServerHost,
			"port":          cfg.ServerPort,
			"inference_url": cfg.InferenceURL,
			"sinks":         len(sinks),
		}).Info("Prognosis Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Prognosis Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close event producer")
		}
	}
	if cfg.DashboardMirrorEnabled {
		if err := database.CloseRedis(); err != nil {
			logger.Log.WithError(err).Warn("Failed to close Redis")
		}
	}

	logger.Log.WithField("predictions", predictions.Len()).Info("Prognosis Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
