package repository

import (
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/infra"
	"gorm.io/gorm"
)

type Repository struct {
	JobRepo            *JobRepository
	UserRepo           *UserRepository
	BookRepo           *BookRepository
	ReferenceImageRepo *ReferenceImageRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = &Repository{
		JobRepo:            NewJobRepository(infra.Postgres.DB),
		UserRepo:           NewUserRepository(infra.Postgres.DB),
		BookRepo:           NewBookRepository(infra.Postgres.DB),
		ReferenceImageRepo: NewReferenceImageRepository(infra.Postgres.DB),
	}
	return repository
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return &Repository{
		JobRepo:            NewJobRepository(tx),
		UserRepo:           NewUserRepository(tx),
		BookRepo:           NewBookRepository(tx),
		ReferenceImageRepo: NewReferenceImageRepository(tx),
	}
}
