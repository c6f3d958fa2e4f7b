package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/config"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/consumer/worker"
	infraPkg "github.com/mytorahtale/my-torah-complete-admin-dashboard/infra"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/repository"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	slogger := infra.Logger.Slog()

	broadcaster := pipeline.NewBroadcaster(slogger)
	relay := pipeline.NewRelay(infra.Redis.Client, broadcaster, slogger)
	ingestor := pipeline.NewIngestor(repo.JobRepo, relay, slogger)
	ingestor.OnSucceeded(repository.NewSuccessProjector(repo, slogger).Project)
	dispatcher := pipeline.NewDispatcher(repo.JobRepo, infra.ModelService, ingestor, relay, pipeline.DispatcherConfig{
		MaxAttempts: cfg.EnvConfig.Dispatch.MaxAttempts,
		Backoff: pipeline.ExponentialBackoff{
			Initial: cfg.EnvConfig.Dispatch.RetryBaseDelay,
			Max:     cfg.EnvConfig.Dispatch.RetryMaxDelay,
		},
	}, slogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx)

	jobConsumer := worker.NewJobConsumer(infra.RabbitMQ.Channel, infra, repo, dispatcher)
	if err := jobConsumer.Start(ctx, cfg.EnvConfig.Dispatch.PollInterval); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Job consumer: %v", err)
		log.Fatalf("Failed to start Job consumer: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	infra.Logger.InfoWithContextf(ctx, "Consumer exited properly")
}
