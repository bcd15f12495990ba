package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	APIPort  string
	LogLevel string

	NATSURL     string
	NATSSubject string

	UAATokenURL     string
	UAAClientID     string
	UAAClientSecret string
	DOXBaseURL      string

	StoragePath string
	ProfilePath string
	SchemaPath  string

	WorkerCount  int
	JobRetention time.Duration

	MetricsPort string
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		NATSURL:     mustEnv("NATS_URL", "nats://localhost:4222"),
		NATSSubject: mustEnv("NATS_SUBJECT", "validations.accepted"),

		UAATokenURL:     mustEnv("UAA_TOKEN_URL", ""),
		UAAClientID:     mustEnv("UAA_CLIENT_ID", ""),
		UAAClientSecret: mustEnv("UAA_CLIENT_SECRET", ""),
		DOXBaseURL:      mustEnv("DOX_BASE_URL", ""),

		StoragePath: mustEnv("STORAGE_PATH", "./data/storage"),
		ProfilePath: mustEnv("PROFILE_PATH", "./config/profile.yaml"),
		SchemaPath:  mustEnv("SCHEMA_PATH", ""),

		WorkerCount:  mustEnvInt("WORKER_COUNT", 4),
		JobRetention: mustEnvDuration("JOB_RETENTION", 24*time.Hour),

		MetricsPort: mustEnv("METRICS_PORT", "9090"),
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
