package infra

import (
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/config"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/infra/produce"
)

type Infra struct {
	Redis        *RedisClient
	Postgres     *PostgresClient
	Logger       *LoggerClient
	Telemetry    *TelemetryClient
	RabbitMQ     *RabbitMQClient
	ModelService *ModelService
	Produce      *produce.Produce
	Minio        *MinioClient
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	telemetry := InitTelemetryClient(cfg.EnvConfig)
	if telemetry == nil {
		panic("Failed to initialize Telemetry service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	modelService := InitModelService(cfg.EnvConfig)
	if modelService == nil {
		panic("Failed to initialize Model API service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	minio := InitMinioClient(cfg.EnvConfig)
	if minio == nil {
		panic("Failed to initialize MinIO service")
	}

	infraInstance = &Infra{
		Redis:        redis,
		Postgres:     postgres,
		Logger:       logger,
		Telemetry:    telemetry,
		RabbitMQ:     rabbitMQ,
		ModelService: modelService,
		Produce:      produceService,
		Minio:        minio,
	}

	return infraInstance
}

func GetClient() *Infra {
	if infraInstance == nil {
		panic("Infra not initialized. Call InitInfra() first.")
	}
	return infraInstance
}
