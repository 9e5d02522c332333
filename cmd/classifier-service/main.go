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
	"github.com/pulmoprobe/platform/pkg/common/config"
	"github.com/pulmoprobe/platform/pkg/common/logger"
	"github.com/pulmoprobe/platform/pkg/features"
	"github.com/pulmoprobe/platform/pkg/gateway/middleware"
	"github.com/pulmoprobe/platform/pkg/observability/metrics"
	"github.com/pulmoprobe/platform/pkg/serving"
	"github.com/pulmoprobe/platform/pkg/serving/predictor"
)

func main() {
	logger.Init("classifier-service")
	cfg := config.Load()

	predictorEngine := predictor.NewPredictor(cfg.ModelArtifactDir)
	checkArtifact(predictorEngine, cfg)

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))

	router.HandleFunc("/health", healthCheck).Methods(http.MethodGet)
	router.HandleFunc("/metrics", metrics.Handler).Methods(http.MethodGet)
	serving.NewHTTPHandler(predictorEngine, cfg.ModelName, cfg.MaxRequestBody).Register(router)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ClassifierPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":  cfg.ServerHost,
			"port":  cfg.ClassifierPort,
			"model": cfg.ModelName,
		}).Info("Classifier Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Classifier Service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	logger.Log.Info("Classifier Service stopped")
}

// checkArtifact warns when the artifact on disk was fitted against a
// different feature layout than the one the prognosis service sends.
func checkArtifact(p *predictor.Predictor, cfg *config.Config) {
	names, err := p.FeatureNames(cfg.ModelName)
	if err != nil {
		logger.Log.WithError(err).Warn("Model artifact not loaded yet")
		return
	}

	schema := resolveSchema(cfg.FeatureSchemaPath)

	expected := map[string]bool{}
	for _, name := range schema.FeatureNames() {
		expected[name] = true
	}
	var unknown []string
	for _, name := range names {
		if !expected[name] {
			unknown = append(unknown, name)
		}
	}
	if len(names) != len(expected) || len(unknown) > 0 {
		logger.Log.WithFields(map[string]interface{}{
			"artifact_features": len(names),
			"schema_features":   len(expected),
			"unknown":           unknown,
		}).Warn("Model artifact does not match feature schema")
	}
}

// resolveSchema returns the override at path, or the default schema when no
// override is configured or it cannot be loaded.
func resolveSchema(path string) features.Schema {
	if path == "" {
		return features.DefaultSchema()
	}
	loaded, err := features.LoadSchema(path)
	if err != nil {
		logger.Log.WithError(err).WithField("path", path).
			Warn("Failed to load feature schema override, checking artifact against default schema")
		return features.DefaultSchema()
	}
	return loaded
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
