package pipeline

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memStore is an in-memory JobStore with the same conditional-update
// semantics as the Postgres repository: ApplyTransition only succeeds when
// the stored status matches the caller's expectation.
type memStore struct {
	mu     sync.Mutex
	jobs   map[uuid.UUID]*entity.Job
	events map[uuid.UUID][]entity.JobEvent
}

func newMemStore() *memStore {
	return &memStore{
		jobs:   make(map[uuid.UUID]*entity.Job),
		events: make(map[uuid.UUID][]entity.JobEvent),
	}
}

func (m *memStore) Create(_ context.Context, job *entity.Job, event *entity.JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	if event != nil {
		m.events[job.ID] = append(m.events[job.ID], *event)
	}
	return nil
}

func (m *memStore) Get(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) GetByExternalID(_ context.Context, handle string) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		if job.ExternalJobID == handle {
			cp := *job
			return &cp, nil
		}
	}
	return nil, ErrJobNotFound
}

func (m *memStore) AppendEvent(_ context.Context, event *entity.JobEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[event.JobID] = append(m.events[event.JobID], *event)
	return nil
}

func (m *memStore) ApplyTransition(_ context.Context, id uuid.UUID, expectStatus []string, patch TransitionPatch, event *entity.JobEvent) (*entity.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	matched := false
	for _, status := range expectStatus {
		if job.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrTransitionConflict
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.Attempts != nil {
		job.Attempts = *patch.Attempts
	}
	if patch.ExternalJobID != nil {
		job.ExternalJobID = *patch.ExternalJobID
	}
	if patch.Error != nil {
		job.Error = *patch.Error
	}
	if patch.Output != nil {
		job.Output = patch.Output
	}
	if patch.StartedAt != nil {
		job.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		job.CompletedAt = patch.CompletedAt
	}
	job.UpdatedAt = time.Now()
	if event != nil {
		m.events[id] = append(m.events[id], *event)
	}
	cp := *job
	return &cp, nil
}

func (m *memStore) eventsFor(id uuid.UUID) []entity.JobEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.JobEvent, len(m.events[id]))
	copy(out, m.events[id])
	return out
}

func (m *memStore) seed(job *entity.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
}
