package controller

import (
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/http/controller/dto"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/repository"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/utils"
)

// StartTraining creates a training job for a user and hands it to the
// dispatch queue. The record is returned immediately with its placeholder
// handle; the stream carries the rest of the lifecycle.
func (ctrl *Controller) StartTraining(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StartTrainingRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to bind training request: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		utils.JSON400(c, "Invalid user_id format")
		return
	}

	if _, err := ctrl.Repository.UserRepo.FindByID(userID); err != nil {
		utils.JSON404(c, "User not found")
		return
	}

	photos, err := ctrl.Repository.ReferenceImageRepo.FindByUserID(userID)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to load reference photos: %v", err)
		utils.JSON500(c, "Failed to load reference photos")
		return
	}
	if len(photos) == 0 {
		utils.JSON400(c, "User has no reference photos to train on")
		return
	}

	keys := make([]string, 0, len(photos))
	for _, photo := range photos {
		keys = append(keys, photo.ObjectKey)
	}
	payload, err := json.Marshal(map[string]interface{}{
		"dataset_key":  ctrl.Infra.Minio.PhotoBucket + "/" + userID.String(),
		"photo_keys":   keys,
		"trigger_word": req.TriggerWord,
		"steps":        req.Steps,
	})
	if err != nil {
		utils.JSON500(c, "Failed to build training payload")
		return
	}

	job, err := ctrl.Dispatcher.CreateJob(ctx, entity.JobKindTraining, userID, nil, datatypes.JSON(payload))
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to create training job: %v", err)
		utils.JSON400(c, err.Error())
		return
	}

	if err := ctrl.Infra.Produce.JobService.PublishDispatchJob(ctx, job.ID.String(), job.Kind); err != nil {
		// Record exists and is queued; the poll reconciler cannot help a job
		// that was never dispatched, so surface the failure loudly.
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to publish dispatch message for job %s: %v", job.ID, err)
		utils.JSON500(c, "Job created but dispatch enqueue failed")
		return
	}

	ctrl.invalidateJobCounts(ctx)
	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Job] Training job %s created for user %s", job.ID, userID)
	utils.JSON201(c, job)
}

// StartStorybook creates a page generation job for a book page.
func (ctrl *Controller) StartStorybook(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.StartStorybookRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to bind storybook request: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	bookID, err := uuid.Parse(req.BookID)
	if err != nil {
		utils.JSON400(c, "Invalid book_id format")
		return
	}
	pageID, err := uuid.Parse(req.PageID)
	if err != nil {
		utils.JSON400(c, "Invalid page_id format")
		return
	}

	book, err := ctrl.Repository.BookRepo.FindByID(bookID)
	if err != nil {
		utils.JSON404(c, "Book not found")
		return
	}
	page, err := ctrl.Repository.BookRepo.FindPageByID(pageID)
	if err != nil || page.BookID != bookID {
		utils.JSON404(c, "Page not found in this book")
		return
	}

	owner, err := ctrl.Repository.UserRepo.FindByID(book.UserID)
	if err != nil {
		utils.JSON404(c, "Book owner not found")
		return
	}
	if owner.TrainedModelID == "" {
		utils.JSON400(c, "Owner has no trained model yet; run training first")
		return
	}

	photos, err := ctrl.Repository.ReferenceImageRepo.FindByUserID(owner.ID)
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to load reference photos: %v", err)
		utils.JSON500(c, "Failed to load reference photos")
		return
	}
	keys := make([]string, 0, len(photos))
	for _, photo := range photos {
		keys = append(keys, photo.ObjectKey)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"page_id":        pageID.String(),
		"prompt":         req.Prompt,
		"model_version":  owner.TrainedModelID,
		"reference_keys": keys,
		"num_candidates": req.NumCandidates,
	})
	if err != nil {
		utils.JSON500(c, "Failed to build generation payload")
		return
	}

	job, err := ctrl.Dispatcher.CreateJob(ctx, entity.JobKindStorybook, book.UserID, &bookID, datatypes.JSON(payload))
	if err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to create storybook job: %v", err)
		utils.JSON400(c, err.Error())
		return
	}

	if err := ctrl.Infra.Produce.JobService.PublishDispatchJob(ctx, job.ID.String(), job.Kind); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Failed to publish dispatch message for job %s: %v", job.ID, err)
		utils.JSON500(c, "Job created but dispatch enqueue failed")
		return
	}

	ctrl.invalidateJobCounts(ctx)
	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Job] Storybook job %s created for book %s page %d", job.ID, bookID, page.PageNumber)
	utils.JSON201(c, job)
}

// CancelJob forwards a cancellation to the provider and applies the terminal
// transition on acknowledgment.
func (ctrl *Controller) CancelJob(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid job id format")
		return
	}

	job, err := ctrl.Dispatcher.Cancel(ctx, jobID)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrJobNotFound):
			utils.JSON404(c, "Job not found")
		case errors.Is(err, pipeline.ErrNotCancelable):
			utils.JSON409(c, err.Error())
		default:
			ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Cancel failed for %s: %v", jobID, err)
			utils.JSON500(c, err.Error())
		}
		return
	}

	ctrl.invalidateJobCounts(ctx)
	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Job] Job %s canceled", jobID)
	utils.JSON200(c, job)
}

// GetJob returns the record with its event timeline.
func (ctrl *Controller) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid job id format")
		return
	}

	job, err := ctrl.Repository.JobRepo.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, pipeline.ErrJobNotFound) {
			utils.JSON404(c, "Job not found")
			return
		}
		utils.JSON500(c, "Failed to load job")
		return
	}

	events, err := ctrl.Repository.JobRepo.EventsForJob(c.Request.Context(), jobID)
	if err != nil {
		utils.JSON500(c, "Failed to load job events")
		return
	}

	utils.JSON200(c, gin.H{"job": job, "events": events})
}

// GetJobStatus is the polling fallback: for a non-terminal job with a real
// handle it consults the provider synchronously, funnels the answer through
// ingestion, and returns the now-current record.
func (ctrl *Controller) GetJobStatus(c *gin.Context) {
	ctx := c.Request.Context()

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid job id format")
		return
	}

	job, err := ctrl.Dispatcher.PollStatus(ctx, jobID, true)
	if err != nil {
		if errors.Is(err, pipeline.ErrJobNotFound) {
			utils.JSON404(c, "Job not found")
			return
		}
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Job] Status poll failed for %s: %v", jobID, err)
		utils.JSON500(c, "Failed to refresh job status")
		return
	}

	ctrl.invalidateJobCounts(ctx)
	utils.JSON200(c, job)
}

// ListJobs serves the dashboard's paginated job table. Clients refetch this
// on stream-confirmed status transitions rather than trusting push state.
func (ctrl *Controller) ListJobs(c *gin.Context) {
	var query dto.ListJobsQueryDTO
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.JSON400(c, "Invalid query parameters")
		return
	}

	filter := repository.JobFilter{
		Kind:   query.Kind,
		Status: query.Status,
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	if query.UserID != "" {
		userID, err := uuid.Parse(query.UserID)
		if err != nil {
			utils.JSON400(c, "Invalid user_id format")
			return
		}
		filter.UserID = userID
	}
	if query.BookID != "" {
		bookID, err := uuid.Parse(query.BookID)
		if err != nil {
			utils.JSON400(c, "Invalid book_id format")
			return
		}
		filter.BookID = bookID
	}

	jobs, total, err := ctrl.Repository.JobRepo.List(c.Request.Context(), filter)
	if err != nil {
		utils.JSON500(c, "Failed to list jobs")
		return
	}

	utils.JSON200(c, gin.H{"jobs": jobs, "total": total})
}
