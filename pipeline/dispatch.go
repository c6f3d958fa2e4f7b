package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

// Provider is the external model API surface the dispatcher drives. Submit
// builds the provider-side run from the job's payload and returns the real
// external handle.
type Provider interface {
	Submit(ctx context.Context, job *entity.Job) (string, error)
	Status(ctx context.Context, handle string) (ProviderEvent, error)
	Cancel(ctx context.Context, handle string) error
}

// Dispatcher owns job creation, submission to the provider with
// retry-and-backoff up to the attempts cap, cancellation, and the
// synchronous status-poll fallback.
type Dispatcher struct {
	store       JobStore
	provider    Provider
	ingestor    *Ingestor
	notifier    Notifier
	backoff     BackoffStrategy
	maxAttempts int
	logger      *slog.Logger
}

type DispatcherConfig struct {
	MaxAttempts int
	Backoff     BackoffStrategy
}

func NewDispatcher(store JobStore, provider Provider, ingestor *Ingestor, notifier Notifier, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Backoff == nil {
		cfg.Backoff = ExponentialBackoff{Initial: 2 * time.Second, Max: time.Minute}
	}
	return &Dispatcher{
		store:       store,
		provider:    provider,
		ingestor:    ingestor,
		notifier:    notifier,
		backoff:     cfg.Backoff,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
	}
}

// CreateJob validates and persists a new job record in queued status with a
// placeholder external handle, so the record is visible to listings and the
// stream before the provider round-trip happens. Submission itself runs
// later via Dispatch.
func (d *Dispatcher) CreateJob(ctx context.Context, kind string, userID uuid.UUID, bookID *uuid.UUID, payload datatypes.JSON) (*entity.Job, error) {
	if kind != entity.JobKindTraining && kind != entity.JobKindStorybook {
		return nil, fmt.Errorf("unsupported job kind %q", kind)
	}
	if userID == uuid.Nil {
		return nil, errors.New("job owner is required")
	}
	if kind == entity.JobKindStorybook && bookID == nil {
		return nil, errors.New("storybook jobs require a book reference")
	}
	if len(payload) == 0 {
		return nil, errors.New("job payload is required")
	}

	now := time.Now()
	job := &entity.Job{
		ID:            uuid.New(),
		Kind:          kind,
		Status:        StatusQueued,
		ExternalJobID: NewPlaceholderHandle(kind),
		UserID:        userID,
		BookID:        bookID,
		Payload:       payload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	event := &entity.JobEvent{
		ID:        uuid.New(),
		JobID:     job.ID,
		Type:      EventCreated,
		Message:   fmt.Sprintf("%s job accepted", kind),
		CreatedAt: now,
	}
	if err := d.store.Create(ctx, job, event); err != nil {
		return nil, fmt.Errorf("create job record: %w", err)
	}

	d.notifier.Publish(job)
	return job, nil
}

// Dispatch submits a queued job to the provider, retrying with backoff on
// dispatch failure until the attempts cap forces a terminal failure. It is
// invoked by the queue consumer; re-invoking it for an already-dispatched or
// terminal job is a no-op. The record is never left uninspectable: every
// failed attempt lands in the event ledger, and exhaustion lands in a
// terminal failed status.
func (d *Dispatcher) Dispatch(ctx context.Context, jobID uuid.UUID) error {
	for {
		job, err := d.store.Get(ctx, jobID)
		if err != nil {
			return fmt.Errorf("load job %s: %w", jobID, err)
		}
		if job.Status != StatusQueued {
			d.logger.Info("skipping dispatch for non-queued job", "job_id", jobID, "status", job.Status)
			return nil
		}
		if job.Attempts >= d.maxAttempts {
			return d.failExhausted(ctx, job)
		}

		attempt := job.Attempts + 1
		handle, submitErr := d.provider.Submit(ctx, job)
		if submitErr == nil {
			return d.confirmDispatch(ctx, job, attempt, handle)
		}

		d.logger.Warn("dispatch attempt failed", "job_id", jobID, "attempt", attempt, "error", submitErr)
		if err := d.recordFailedAttempt(ctx, job, attempt, submitErr); err != nil {
			return err
		}
		if attempt >= d.maxAttempts {
			continue // next iteration reloads and finalizes
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.backoff.Delay(attempt)):
		}
	}
}

func (d *Dispatcher) confirmDispatch(ctx context.Context, job *entity.Job, attempt int, handle string) error {
	event := &entity.JobEvent{
		ID:        uuid.New(),
		JobID:     job.ID,
		Type:      EventDispatched,
		Message:   fmt.Sprintf("submitted to provider as %s (attempt %d)", handle, attempt),
		CreatedAt: time.Now(),
	}
	patch := TransitionPatch{
		Status:        strPtr(StatusStarting),
		Attempts:      intPtr(attempt),
		ExternalJobID: strPtr(handle),
	}
	updated, err := d.store.ApplyTransition(ctx, job.ID, []string{StatusQueued}, patch, event)
	if err != nil {
		if errors.Is(err, ErrTransitionConflict) {
			// Canceled between submit and confirm; the provider run will be
			// reconciled by its own terminal event.
			d.logger.Warn("job left queued during dispatch confirmation", "job_id", job.ID)
			return nil
		}
		return fmt.Errorf("confirm dispatch for job %s: %w", job.ID, err)
	}
	d.notifier.Publish(updated)
	return nil
}

func (d *Dispatcher) recordFailedAttempt(ctx context.Context, job *entity.Job, attempt int, submitErr error) error {
	event := &entity.JobEvent{
		ID:        uuid.New(),
		JobID:     job.ID,
		Type:      EventError,
		Message:   fmt.Sprintf("dispatch attempt %d failed: %v", attempt, submitErr),
		CreatedAt: time.Now(),
	}
	patch := TransitionPatch{Attempts: intPtr(attempt)}
	updated, err := d.store.ApplyTransition(ctx, job.ID, []string{StatusQueued}, patch, event)
	if err != nil {
		if errors.Is(err, ErrTransitionConflict) {
			return nil
		}
		return fmt.Errorf("record failed attempt for job %s: %w", job.ID, err)
	}
	d.notifier.Publish(updated)
	return nil
}

func (d *Dispatcher) failExhausted(ctx context.Context, job *entity.Job) error {
	now := time.Now()
	event := &entity.JobEvent{
		ID:        uuid.New(),
		JobID:     job.ID,
		Type:      EventError,
		Message:   fmt.Sprintf("giving up after %d dispatch attempts", job.Attempts),
		CreatedAt: now,
	}
	patch := TransitionPatch{
		Status:      strPtr(StatusFailed),
		Error:       strPtr(ErrAttemptsExhausted.Error()),
		CompletedAt: timePtr(now),
	}
	updated, err := d.store.ApplyTransition(ctx, job.ID, []string{StatusQueued}, patch, event)
	if err != nil {
		if errors.Is(err, ErrTransitionConflict) {
			return nil
		}
		return fmt.Errorf("finalize exhausted job %s: %w", job.ID, err)
	}
	d.notifier.Publish(updated)
	return fmt.Errorf("job %s: %w", job.ID, ErrAttemptsExhausted)
}

// Cancel forwards a user-initiated cancellation to the provider and, on
// acknowledgment, applies the terminal transition. A provider rejection is
// surfaced to the caller and leaves the record untouched; cancellation is
// never retried.
func (d *Dispatcher) Cancel(ctx context.Context, jobID uuid.UUID) (*entity.Job, error) {
	job, err := d.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(job.Status) {
		return nil, fmt.Errorf("job %s is already %s: %w", jobID, job.Status, ErrNotCancelable)
	}
	if IsPlaceholderHandle(job.ExternalJobID) {
		return nil, fmt.Errorf("job %s has not reached the provider yet: %w", jobID, ErrNotCancelable)
	}

	if err := d.provider.Cancel(ctx, job.ExternalJobID); err != nil {
		return nil, fmt.Errorf("provider rejected cancellation for job %s: %w", jobID, err)
	}

	now := time.Now()
	event := &entity.JobEvent{
		ID:        uuid.New(),
		JobID:     job.ID,
		Type:      EventCanceled,
		Message:   "canceled by operator",
		CreatedAt: now,
	}
	patch := TransitionPatch{
		Status:      strPtr(StatusCanceled),
		CompletedAt: timePtr(now),
	}
	updated, err := d.store.ApplyTransition(ctx, jobID, []string{StatusQueued, StatusStarting, StatusProcessing}, patch, event)
	if err != nil {
		if errors.Is(err, ErrTransitionConflict) {
			return nil, fmt.Errorf("job %s reached a terminal status first: %w", jobID, ErrNotCancelable)
		}
		return nil, fmt.Errorf("apply cancellation for job %s: %w", jobID, err)
	}
	d.notifier.Publish(updated)
	return updated, nil
}

// PollStatus is the polling fallback: for a non-terminal job with a real
// external handle it asks the provider for the current state and funnels the
// answer through the same ingestion path the webhook uses, then returns the
// now-current record. force marks a caller-requested corrective re-sync that
// may override a terminal status; automated reconciliation is asynchronous
// delivery and must pass false, or a stale provider answer racing a webhook
// could regress a terminal record.
func (d *Dispatcher) PollStatus(ctx context.Context, jobID uuid.UUID, force bool) (*entity.Job, error) {
	job, err := d.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if IsTerminal(job.Status) || IsPlaceholderHandle(job.ExternalJobID) {
		return job, nil
	}

	evt, err := d.provider.Status(ctx, job.ExternalJobID)
	if err != nil {
		return nil, fmt.Errorf("poll provider for job %s: %w", jobID, err)
	}
	evt.Handle = job.ExternalJobID

	updated, err := d.ingestor.Apply(ctx, evt, force)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return job, nil
	}
	return updated, nil
}
