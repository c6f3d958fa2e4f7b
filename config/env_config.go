package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		Host     string
		Database string
		Username string
		Password string
		Port     string
	}
	JWT struct {
		SecretKey string
		Algorithm string
		Expire    int
	}
	CORS struct {
		AllowDomains string
		GlobalDomain string
	}
	Redis struct {
		Password string
		Database int
		Host     string
		Port     string
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
	}
	Minio struct {
		Endpoint     string
		RootUser     string
		RootPassword string
		AssetBucket  string
		PhotoBucket  string
	}
	ModelAPI struct {
		BaseURL       string
		APIKey        string
		WebhookSecret string
		WebhookURL    string
	}
	Dispatch struct {
		MaxAttempts       int
		RetryBaseDelay    time.Duration
		RetryMaxDelay     time.Duration
		PollInterval      time.Duration
		HeartbeatInterval time.Duration
	}
	Grafana struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode  string
		Group string
	}
	DomainName string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.Host = os.Getenv("PGPOOL_HOST")
	config.Postgres.Database = os.Getenv("PGPOOL_DB")
	config.Postgres.Username = os.Getenv("PGPOOL_USER")
	config.Postgres.Password = os.Getenv("PGPOOL_PASSWORD")
	config.Postgres.Port = os.Getenv("PGPOOL_PORT")
	if config.Postgres.Port == "" {
		config.Postgres.Port = "5432"
	}

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Algorithm = os.Getenv("JWT_ALGORITHM")
	if val := os.Getenv("JWT_EXPIRE"); val != "" {
		config.JWT.Expire, _ = strconv.Atoi(val)
	} else {
		config.JWT.Expire = 3600 * 24 * 7
	}

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")
	config.CORS.GlobalDomain = os.Getenv("GLOBAL_DOMAIN")

	// Redis
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	config.Redis.Host = os.Getenv("REDIS_HOST")
	config.Redis.Port = os.Getenv("REDIS_PORT")
	if config.Redis.Port == "" {
		config.Redis.Port = "6379"
	}

	// RabbitMQ
	config.RabbitMQ.Host = os.Getenv("RABBITMQ_HOST")
	if config.RabbitMQ.Host == "" {
		config.RabbitMQ.Host = "localhost"
	}
	config.RabbitMQ.Port = os.Getenv("RABBITMQ_PORT")
	if config.RabbitMQ.Port == "" {
		config.RabbitMQ.Port = "5672"
	}
	config.RabbitMQ.Username = os.Getenv("RABBITMQ_USER")
	if config.RabbitMQ.Username == "" {
		config.RabbitMQ.Username = "guest"
	}
	config.RabbitMQ.Password = os.Getenv("RABBITMQ_PASSWORD")
	if config.RabbitMQ.Password == "" {
		config.RabbitMQ.Password = "guest"
	}

	// MinIO
	config.Minio.Endpoint = os.Getenv("MINIO_ENDPOINT")
	config.Minio.RootUser = os.Getenv("MINIO_ROOT_USER")
	config.Minio.RootPassword = os.Getenv("MINIO_ROOT_PASSWORD")
	config.Minio.AssetBucket = os.Getenv("MINIO_ASSET_BUCKET")
	if config.Minio.AssetBucket == "" {
		config.Minio.AssetBucket = "storybook-assets"
	}
	config.Minio.PhotoBucket = os.Getenv("MINIO_PHOTO_BUCKET")
	if config.Minio.PhotoBucket == "" {
		config.Minio.PhotoBucket = "reference-photos"
	}

	// Model API (external fine-tuning / image generation provider)
	config.ModelAPI.BaseURL = os.Getenv("MODEL_API_URL")
	if config.ModelAPI.BaseURL == "" {
		config.ModelAPI.BaseURL = "https://api.modelfarm.dev"
	}
	config.ModelAPI.APIKey = os.Getenv("MODEL_API_KEY")
	config.ModelAPI.WebhookSecret = os.Getenv("MODEL_API_WEBHOOK_SECRET")
	config.ModelAPI.WebhookURL = os.Getenv("MODEL_API_WEBHOOK_URL")

	// Dispatch / retry policy
	if val := os.Getenv("DISPATCH_MAX_ATTEMPTS"); val != "" {
		config.Dispatch.MaxAttempts, _ = strconv.Atoi(val)
	}
	if config.Dispatch.MaxAttempts <= 0 {
		config.Dispatch.MaxAttempts = 3
	}
	config.Dispatch.RetryBaseDelay = envDuration("DISPATCH_RETRY_BASE_DELAY", 2*time.Second)
	config.Dispatch.RetryMaxDelay = envDuration("DISPATCH_RETRY_MAX_DELAY", time.Minute)
	config.Dispatch.PollInterval = envDuration("DISPATCH_POLL_INTERVAL", 30*time.Second)
	config.Dispatch.HeartbeatInterval = envDuration("STREAM_HEARTBEAT_INTERVAL", 25*time.Second)

	// Grafana/OpenTelemetry
	grafanaEndpoint := os.Getenv("GRAFANA_OTLP_ENDPOINT")
	if grafanaEndpoint == "" {
		grafanaEndpoint = "https://grafana.mytorahtale.com"
	}
	// Remove protocol for OpenTelemetry client to avoid duplicate protocols
	if strings.HasPrefix(grafanaEndpoint, "https://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "https://")
	} else if strings.HasPrefix(grafanaEndpoint, "http://") {
		config.Grafana.OTLPEndpoint = strings.TrimPrefix(grafanaEndpoint, "http://")
	} else {
		config.Grafana.OTLPEndpoint = grafanaEndpoint
	}
	config.Grafana.ServiceName = os.Getenv("SERVICE_NAME")
	if config.Grafana.ServiceName == "" {
		config.Grafana.ServiceName = "storybook-admin-service"
	}

	config.Environment.Mode = os.Getenv("DEPLOY_ENV")
	if config.Environment.Mode == "" {
		config.Environment.Mode = "development"
	}
	config.Environment.Group = os.Getenv("GROUP_NAME")
	if config.Environment.Group == "" {
		config.Environment.Group = "local"
	}

	config.DomainName = os.Getenv("DOMAIN_NAME")
	if config.DomainName == "" {
		config.DomainName = "localhost:8080"
	}

	return &config
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
