package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

var (
	// ErrJobNotFound is returned when no job matches the given id or
	// external handle.
	ErrJobNotFound = errors.New("job not found")

	// ErrTransitionConflict is returned by ApplyTransition when the job's
	// current status no longer matches the expected set, meaning another
	// caller won the update.
	ErrTransitionConflict = errors.New("job transition conflict")

	// ErrNotCancelable is returned when cancellation is requested for a job
	// that is terminal or has never reached the provider.
	ErrNotCancelable = errors.New("job is not cancelable")

	// ErrAttemptsExhausted tags the terminal failure written when dispatch
	// retries hit the configured cap.
	ErrAttemptsExhausted = errors.New("dispatch attempts exhausted")
)

// TransitionPatch is a partial update applied to a job record together with
// an optional event append, in one atomic store operation. Nil fields are
// left untouched.
type TransitionPatch struct {
	Status        *string
	Progress      *int
	Attempts      *int
	ExternalJobID *string
	Error         *string
	Output        datatypes.JSON
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

// JobStore is the persistence contract the pipeline mutates jobs through.
// ApplyTransition must be conditional on the caller's view of the current
// status (matched in the database, not in application memory) so concurrent
// updates for the same record have exactly one winner.
type JobStore interface {
	Create(ctx context.Context, job *entity.Job, event *entity.JobEvent) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	GetByExternalID(ctx context.Context, handle string) (*entity.Job, error)
	AppendEvent(ctx context.Context, event *entity.JobEvent) error

	// ApplyTransition updates the job only if its current status is in
	// expectStatus, inserting the event (when non-nil) in the same database
	// transaction. Returns ErrTransitionConflict when the guard fails and
	// the refreshed record on success.
	ApplyTransition(ctx context.Context, id uuid.UUID, expectStatus []string, patch TransitionPatch, event *entity.JobEvent) (*entity.Job, error)
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func timePtr(t time.Time) *time.Time { return &t }
