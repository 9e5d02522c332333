package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64
	RateLimitRPS   int
	RateLimitBurst int

	// Inference
	InferenceURL     string
	InferenceTimeout time.Duration

	// Feature schema
	FeatureSchemaPath string

	// Dashboard
	ModelAccuracy          float64
	DashboardMirrorEnabled bool
	DashboardMirrorKey     string
	DashboardMirrorTTL     time.Duration

	// Classifier service
	ClassifierPort   string
	ModelArtifactDir string
	ModelName        string

	// Audit service
	AuditPort string

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers          []string
	KafkaGroupID          string
	EventsEnabled         bool
	PredictionEventsTopic string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 64*1024)),
		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),

		InferenceURL:     getEnv("INFERENCE_URL", "http://localhost:8089/predict"),
		InferenceTimeout: getDuration("INFERENCE_TIMEOUT", 30*time.Second),

		FeatureSchemaPath: getEnv("FEATURE_SCHEMA_PATH", ""),

		ModelAccuracy:          getFloatEnv("MODEL_ACCURACY", 94.5),
		DashboardMirrorEnabled: getBoolEnv("DASHBOARD_MIRROR_ENABLED", false),
		DashboardMirrorKey:     getEnv("DASHBOARD_MIRROR_KEY", "pulmoprobe:dashboard"),
		DashboardMirrorTTL:     getDuration("DASHBOARD_MIRROR_TTL", 10*time.Minute),

		ClassifierPort:   getEnv("CLASSIFIER_PORT", "8089"),
		ModelArtifactDir: getEnv("MODEL_ARTIFACT_DIR", "./artifacts"),
		ModelName:        getEnv("MODEL_NAME", "pulmoprobe"),

		AuditPort: getEnv("AUDIT_PORT", "8090"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "pulmoprobe"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "pulmoprobe"),
		PostgresDB:       getEnv("POSTGRES_DB", "pulmoprobe"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:          getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:          getEnv("KAFKA_GROUP_ID", "pulmoprobe-audit"),
		EventsEnabled:         getBoolEnv("EVENTS_ENABLED", false),
		PredictionEventsTopic: getEnv("PREDICTION_EVENTS_TOPIC", "prediction.recorded"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getStringSliceEnv splits a comma separated list, e.g. KAFKA_BROKERS=k1:9092,k2:9092.
func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
