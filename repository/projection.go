package repository

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

// SuccessProjector copies the output of succeeded jobs into the domain
// records that consume it: the user's trained model version after training,
// a page's candidate set after generation. It runs on the instance that
// applied the terminal transition, so each success is projected once.
type SuccessProjector struct {
	repo   *Repository
	logger *slog.Logger
}

func NewSuccessProjector(repo *Repository, logger *slog.Logger) *SuccessProjector {
	return &SuccessProjector{repo: repo, logger: logger}
}

type trainingOutput struct {
	ModelVersion string `json:"model_version"`
}

type storybookOutput struct {
	Assets []string `json:"assets"`
}

type storybookPayloadRef struct {
	PageID string `json:"page_id"`
}

// Project is registered as the ingestor's success hook. Failures are logged
// and swallowed: the job record already holds the raw output, so a missed
// projection is recoverable by hand and must not fail ingestion.
func (p *SuccessProjector) Project(ctx context.Context, job *entity.Job) {
	switch job.Kind {
	case entity.JobKindTraining:
		p.projectTraining(job)
	case entity.JobKindStorybook:
		p.projectStorybook(job)
	}
}

func (p *SuccessProjector) projectTraining(job *entity.Job) {
	var out trainingOutput
	if err := json.Unmarshal(job.Output, &out); err != nil || out.ModelVersion == "" {
		p.logger.Warn("training output carries no model_version", "job_id", job.ID)
		return
	}
	if err := p.repo.UserRepo.SetTrainedModel(job.UserID, out.ModelVersion); err != nil {
		p.logger.Error("failed to record trained model version", "job_id", job.ID, "user_id", job.UserID, "error", err)
		return
	}
	p.logger.Info("trained model version recorded", "user_id", job.UserID, "model_version", out.ModelVersion)
}

func (p *SuccessProjector) projectStorybook(job *entity.Job) {
	var ref storybookPayloadRef
	if err := json.Unmarshal(job.Payload, &ref); err != nil || ref.PageID == "" {
		p.logger.Warn("storybook payload carries no page_id", "job_id", job.ID)
		return
	}
	pageID, err := uuid.Parse(ref.PageID)
	if err != nil {
		p.logger.Warn("storybook payload page_id is not a uuid", "job_id", job.ID, "page_id", ref.PageID)
		return
	}

	var out storybookOutput
	if err := json.Unmarshal(job.Output, &out); err != nil || len(out.Assets) == 0 {
		p.logger.Warn("storybook output carries no assets", "job_id", job.ID)
		return
	}

	page, err := p.repo.BookRepo.FindPageByID(pageID)
	if err != nil {
		p.logger.Error("failed to load page for candidate projection", "job_id", job.ID, "page_id", pageID, "error", err)
		return
	}

	merged := MergeCandidates(page.Candidates, out.Assets)
	if err := p.repo.BookRepo.AppendPageCandidates(pageID, merged); err != nil {
		p.logger.Error("failed to append page candidates", "job_id", job.ID, "page_id", pageID, "error", err)
		return
	}
	p.logger.Info("page candidates updated", "page_id", pageID, "added", len(out.Assets))
}

// MergeCandidates unions new asset keys into an existing candidate set,
// preserving order and dropping duplicates. Redelivered success events
// therefore leave the set unchanged.
func MergeCandidates(existing datatypes.JSON, incoming []string) datatypes.JSON {
	var keys []string
	if len(existing) > 0 {
		_ = json.Unmarshal(existing, &keys)
	}
	seen := make(map[string]struct{}, len(keys)+len(incoming))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	for _, k := range incoming {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	merged, _ := json.Marshal(keys)
	return datatypes.JSON(merged)
}
