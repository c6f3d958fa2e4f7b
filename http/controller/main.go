package controller

import (
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/config"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/infra"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/repository"
)

type Controller struct {
	Config      *config.Config
	Infra       *infra.Infra
	Repository  *repository.Repository
	Broadcaster *pipeline.Broadcaster
	Dispatcher  *pipeline.Dispatcher
	Ingestor    *pipeline.Ingestor
}

func NewController(
	cfg *config.Config,
	infra *infra.Infra,
	repo *repository.Repository,
	broadcaster *pipeline.Broadcaster,
	dispatcher *pipeline.Dispatcher,
	ingestor *pipeline.Ingestor,
) *Controller {
	return &Controller{
		Config:      cfg,
		Infra:       infra,
		Repository:  repo,
		Broadcaster: broadcaster,
		Dispatcher:  dispatcher,
		Ingestor:    ingestor,
	}
}
