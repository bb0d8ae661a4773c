package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	UploadDir     string
	MaxUploadSize int64 // bytes

	ModelPath          string
	LabelsPath         string // optional data.yaml with class names
	DetectorWorkers    int    // number of independently loaded networks
	DetectionThreshold float64

	GoogleAPIKey    string
	GeminiModel     string
	GeminiBaseURL   string
	DescribeTimeout time.Duration

	DatabasePath string

	AnnotationDirectory     string // empty disables debug annotations
	AnnotationBufferLimit   int
	AnnotationFlushInterval time.Duration

	LogDirectory    string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and builds the config from the environment.
func Load() *Config {
	// .env is optional
	_ = godotenv.Load()

	return &Config{
		Port:                    getEnvAsInt("PORT", 8000),
		UploadDir:               getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:           int64(getEnvAsInt("MAX_UPLOAD_MB", 20)) << 20,
		ModelPath:               getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		LabelsPath:              getEnv("LABELS_PATH", ""),
		DetectorWorkers:         getEnvAsInt("DETECTOR_WORKERS", 2),
		DetectionThreshold:      getEnvAsFloat("DETECTION_THRESHOLD", 0.5),
		GoogleAPIKey:            getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		GeminiBaseURL:           getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		DescribeTimeout:         getEnvAsDuration("DESCRIBE_TIMEOUT", 30*time.Second),
		DatabasePath:            getEnv("DB_PATH", filepath.Join(".", "data", "reports.db")),
		AnnotationDirectory:     getEnv("ANNOTATION_DIR", ""),
		AnnotationBufferLimit:   getEnvAsInt("ANNOTATION_BUFFER_LIMIT", 10),
		AnnotationFlushInterval: getEnvAsDuration("ANNOTATION_FLUSH_INTERVAL", 30*time.Second),
		LogDirectory:            getEnv("LOG_DIR", filepath.Join(".", "logs")),
		ShutdownTimeout:         getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
