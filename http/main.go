package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/config"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/http/controller"
	routes "github.com/mytorahtale/my-torah-complete-admin-dashboard/http/route"
	infraPkg "github.com/mytorahtale/my-torah-complete-admin-dashboard/infra"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/repository"
)

func main() {
	err := godotenv.Load("staging.env")
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

	ctrl := controller.NewController(cfg, infra, repo, broadcaster, dispatcher, ingestor)

	router := routes.SetupRouter(ctrl)

	log.Println("HTTP Server started on :8080")
	if err := router.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
