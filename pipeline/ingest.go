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

// conflictRetries bounds the re-read-and-reapply loop when a concurrent
// update wins the conditional write first.
const conflictRetries = 3

// Ingestor is the single funnel every provider event goes through, whether
// it arrived by webhook or by status poll. It resolves the external handle,
// enforces forward-only ordering and terminal stickiness, applies the
// transition atomically, and notifies the broadcaster.
type Ingestor struct {
	store    JobStore
	notifier Notifier
	logger   *slog.Logger

	// onSucceeded runs after a job is transitioned into succeeded, on the
	// instance that won the conditional write. Used to project job output
	// into domain records (page candidates, trained model versions).
	onSucceeded func(ctx context.Context, job *entity.Job)
}

func NewIngestor(store JobStore, notifier Notifier, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// OnSucceeded registers the success projection. Must be called before the
// ingestor starts receiving events.
func (ing *Ingestor) OnSucceeded(fn func(ctx context.Context, job *entity.Job)) {
	ing.onSucceeded = fn
}

// Apply reconciles one provider event into the matching job record. Events
// for unknown handles, stale events, and redeliveries against terminal
// records are discarded without error: the webhook endpoint acks
// unconditionally and must never make the provider retry-storm. force allows
// a caller-requested re-sync to overwrite a terminal status (manual status
// re-check); asynchronous delivery never sets it.
func (ing *Ingestor) Apply(ctx context.Context, evt ProviderEvent, force bool) (*entity.Job, error) {
	for i := 0; i < conflictRetries; i++ {
		job, err := ing.store.GetByExternalID(ctx, evt.Handle)
		if err != nil {
			if errors.Is(err, ErrJobNotFound) {
				ing.logger.Warn("discarding event for unknown external handle", "handle", evt.Handle, "provider_status", evt.Status)
				return nil, nil
			}
			return nil, fmt.Errorf("resolve external handle: %w", err)
		}

		if IsTerminal(job.Status) && !force {
			ing.logger.Info("discarding event for terminal job", "job_id", job.ID, "status", job.Status, "provider_status", evt.Status)
			return job, nil
		}

		local, err := MapProviderStatus(evt.Status)
		if err != nil {
			ing.logger.Warn("discarding unmappable provider event", "job_id", job.ID, "error", err)
			return job, nil
		}

		updated, err := ing.applyOnce(ctx, job, local, evt, force)
		if errors.Is(err, ErrTransitionConflict) {
			// Another event won the conditional write; re-read and
			// re-evaluate against the fresh status.
			continue
		}
		if err != nil {
			return nil, err
		}
		if updated != nil {
			if updated.Status == StatusSucceeded && job.Status != StatusSucceeded && ing.onSucceeded != nil {
				ing.onSucceeded(ctx, updated)
			}
			ing.notifier.Publish(updated)
			return updated, nil
		}
		return job, nil
	}
	return nil, fmt.Errorf("job %s: %w", evt.Handle, ErrTransitionConflict)
}

// applyOnce attempts a single conditional write against the status the
// caller just read. A nil job result with nil error means the event carried
// nothing to apply.
func (ing *Ingestor) applyOnce(ctx context.Context, job *entity.Job, local string, evt ProviderEvent, force bool) (*entity.Job, error) {
	patch := TransitionPatch{}
	if evt.Progress != nil {
		// Progress is monotonically non-decreasing within a run; a stale
		// redelivery carrying a lower value must not wind it back.
		if clamped := ClampProgress(*evt.Progress); clamped > job.Progress {
			patch.Progress = intPtr(clamped)
		}
	}

	if local == job.Status {
		// Same lifecycle stage: record progress movement, suppress a
		// duplicate lifecycle event.
		if patch.Progress == nil {
			return nil, nil
		}
		return ing.store.ApplyTransition(ctx, job.ID, []string{job.Status}, patch, nil)
	}

	if !CanAdvance(job.Status, local) && !force {
		ing.logger.Info("discarding stale out-of-order event", "job_id", job.ID, "current", job.Status, "incoming", local)
		return nil, nil
	}

	now := time.Now()
	patch.Status = strPtr(local)
	if local == StatusProcessing && job.StartedAt == nil {
		patch.StartedAt = timePtr(now)
	}
	if IsTerminal(local) {
		if job.CompletedAt == nil {
			patch.CompletedAt = timePtr(now)
		}
		if local == StatusFailed {
			message := evt.Error
			if message == "" {
				message = "provider reported failure"
			}
			patch.Error = strPtr(message)
		}
		if local == StatusSucceeded && len(evt.Output) > 0 {
			patch.Output = datatypes.JSON(evt.Output)
		}
	}

	event := &entity.JobEvent{
		ID:        uuid.New(),
		JobID:     job.ID,
		Type:      eventTypeForStatus(local),
		Message:   ingestMessage(local, evt),
		CreatedAt: now,
	}
	if len(evt.Raw) > 0 {
		event.Metadata = datatypes.JSON(evt.Raw)
	}

	return ing.store.ApplyTransition(ctx, job.ID, []string{job.Status}, patch, event)
}

func ingestMessage(local string, evt ProviderEvent) string {
	switch local {
	case StatusStarting:
		return "provider acknowledged the run"
	case StatusProcessing:
		if evt.Progress != nil {
			return fmt.Sprintf("provider processing, %d%% complete", ClampProgress(*evt.Progress))
		}
		return "provider processing"
	case StatusSucceeded:
		return "provider reported completion"
	case StatusFailed:
		if evt.Error != "" {
			return "provider reported failure: " + evt.Error
		}
		return "provider reported failure"
	case StatusCanceled:
		return "provider confirmed cancellation"
	default:
		return "provider status update"
	}
}
