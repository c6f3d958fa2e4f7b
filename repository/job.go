package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
)

// JobRepository is the Postgres-backed pipeline.JobStore. Transitions are
// guarded in SQL (status matched in the UPDATE's WHERE clause), so multiple
// process instances handling webhooks concurrently get exactly one winner
// per pending event without any in-memory locking.
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job, event *entity.JobEvent) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *JobRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pipeline.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetByExternalID(ctx context.Context, handle string) (*entity.Job, error) {
	var job entity.Job
	err := r.db.WithContext(ctx).Where("external_job_id = ?", handle).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pipeline.ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) AppendEvent(ctx context.Context, event *entity.JobEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *JobRepository) ApplyTransition(ctx context.Context, id uuid.UUID, expectStatus []string, patch pipeline.TransitionPatch, event *entity.JobEvent) (*entity.Job, error) {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.Progress != nil {
		updates["progress"] = *patch.Progress
	}
	if patch.Attempts != nil {
		updates["attempts"] = *patch.Attempts
	}
	if patch.ExternalJobID != nil {
		updates["external_job_id"] = *patch.ExternalJobID
	}
	if patch.Error != nil {
		updates["error"] = *patch.Error
	}
	if patch.Output != nil {
		updates["output"] = patch.Output
	}
	if patch.StartedAt != nil {
		updates["started_at"] = *patch.StartedAt
	}
	if patch.CompletedAt != nil {
		updates["completed_at"] = *patch.CompletedAt
	}

	var updated entity.Job
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entity.Job{}).
			Where("id = ? AND status IN ?", id, expectStatus).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&entity.Job{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return pipeline.ErrJobNotFound
			}
			return pipeline.ErrTransitionConflict
		}
		if event != nil {
			if err := tx.Create(event).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// JobFilter narrows List results; zero values mean "any".
type JobFilter struct {
	UserID uuid.UUID
	BookID uuid.UUID
	Kind   string
	Status string
	Limit  int
	Offset int
}

func (r *JobRepository) List(ctx context.Context, filter JobFilter) ([]entity.Job, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Job{})
	if filter.UserID != uuid.Nil {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.BookID != uuid.Nil {
		query = query.Where("book_id = ?", filter.BookID)
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var jobs []entity.Job
	err := query.Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (r *JobRepository) EventsForJob(ctx context.Context, jobID uuid.UUID) ([]entity.JobEvent, error) {
	var events []entity.JobEvent
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// FindNonTerminalWithRealHandle returns jobs the poll reconciler should
// check: not terminal, already holding a provider handle.
func (r *JobRepository) FindNonTerminalWithRealHandle(ctx context.Context, limit int) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{pipeline.StatusStarting, pipeline.StatusProcessing}).
		Where("external_job_id NOT LIKE ?", "local-%").
		Order("updated_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// StatusCount is one dashboard aggregation bucket.
type StatusCount struct {
	Kind   string `json:"kind"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

func (r *JobRepository) CountsByKindAndStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).Model(&entity.Job{}).
		Select("kind, status, count(*) as count").
		Group("kind, status").
		Find(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *JobRepository) RecentFailures(ctx context.Context, limit int) ([]entity.Job, error) {
	var jobs []entity.Job
	err := r.db.WithContext(ctx).
		Where("status = ?", pipeline.StatusFailed).
		Order("completed_at DESC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
