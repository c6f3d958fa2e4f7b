package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

func newTestIngestor(store *memStore) (*Ingestor, *Broadcaster) {
	b := NewBroadcaster(testLogger())
	return NewIngestor(store, b, testLogger()), b
}

func seedJob(store *memStore, status, handle string) *entity.Job {
	job := &entity.Job{
		ID:            uuid.New(),
		Kind:          entity.JobKindTraining,
		Status:        status,
		ExternalJobID: handle,
		UserID:        uuid.New(),
		CreatedAt:     time.Now(),
	}
	store.seed(job)
	return job
}

func TestIngestor_HappyPathLifecycle(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	job := seedJob(store, StatusStarting, "ft-100")
	ctx := context.Background()

	progress := 40
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-100", Status: "processing", Progress: &progress}, false); err != nil {
		t.Fatalf("processing event: %v", err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusProcessing || got.Progress != 40 {
		t.Fatalf("after processing event: status=%s progress=%d", got.Status, got.Progress)
	}
	if got.StartedAt == nil {
		t.Fatal("StartedAt not set on processing entry")
	}

	output := json.RawMessage(`{"model_version":"v2"}`)
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-100", Status: "succeeded", Output: output}, false); err != nil {
		t.Fatalf("succeeded event: %v", err)
	}
	got, _ = store.Get(ctx, job.ID)
	if got.Status != StatusSucceeded {
		t.Fatalf("final status = %s, want succeeded", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("CompletedAt not set on terminal entry")
	}
	if len(got.Output) == 0 {
		t.Fatal("output not attached on success")
	}

	events := store.eventsFor(job.ID)
	if len(events) != 2 {
		t.Fatalf("appended %d events, want 2 (progress, completed)", len(events))
	}
	if events[0].Type != EventProgress || events[1].Type != EventCompleted {
		t.Errorf("event types = [%s, %s]", events[0].Type, events[1].Type)
	}
}

func TestIngestor_UnknownHandleIsDiscarded(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	job := seedJob(store, StatusProcessing, "ft-200")

	updated, err := ing.Apply(context.Background(), ProviderEvent{Handle: "xyz-999", Status: "succeeded"}, false)
	if err != nil {
		t.Fatalf("Apply returned error for unknown handle: %v", err)
	}
	if updated != nil {
		t.Error("Apply returned a record for an unknown handle")
	}

	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != StatusProcessing {
		t.Errorf("unrelated job mutated: status = %s", got.Status)
	}
}

func TestIngestor_TerminalStatusIsSticky(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	job := seedJob(store, StatusStarting, "ft-300")
	ctx := context.Background()

	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-300", Status: "succeeded"}, false); err != nil {
		t.Fatalf("succeeded event: %v", err)
	}
	// Stale processing event redelivered after the terminal one.
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-300", Status: "processing"}, false); err != nil {
		t.Fatalf("stale event: %v", err)
	}

	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusSucceeded {
		t.Errorf("terminal status regressed to %s", got.Status)
	}
	events := store.eventsFor(job.ID)
	if len(events) != 1 {
		t.Errorf("stale event appended to ledger: %d events, want 1", len(events))
	}
}

func TestIngestor_DuplicateTerminalEventIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	job := seedJob(store, StatusProcessing, "ft-400")
	ctx := context.Background()

	evt := ProviderEvent{Handle: "ft-400", Status: "succeeded"}
	if _, err := ing.Apply(ctx, evt, false); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	first, _ := store.Get(ctx, job.ID)

	if _, err := ing.Apply(ctx, evt, false); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	second, _ := store.Get(ctx, job.ID)

	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Error("CompletedAt changed on redelivery")
	}
	if events := store.eventsFor(job.ID); len(events) != 1 {
		t.Errorf("terminal event double-appended: %d events, want 1", len(events))
	}
}

func TestIngestor_OutOfOrderConvergesToTimestampOrder(t *testing.T) {
	t.Parallel()

	// Any delivery order of these events must converge on the same final
	// status as timestamp order (forward-only property).
	lifecycle := []ProviderEvent{
		{Status: "pending"},
		{Status: "processing"},
		{Status: "succeeded"},
	}
	orders := [][]int{
		{0, 1, 2},
		{0, 2, 1},
		{1, 0, 2},
		{1, 2, 0},
		{2, 0, 1},
		{2, 1, 0},
	}

	for _, order := range orders {
		store := newMemStore()
		ing, _ := newTestIngestor(store)
		job := seedJob(store, StatusQueued, "ft-500")
		ctx := context.Background()

		for _, i := range order {
			evt := lifecycle[i]
			evt.Handle = "ft-500"
			if _, err := ing.Apply(ctx, evt, false); err != nil {
				t.Fatalf("order %v: %v", order, err)
			}
		}
		got, _ := store.Get(ctx, job.ID)
		if got.Status != StatusSucceeded {
			t.Errorf("order %v converged on %s, want succeeded", order, got.Status)
		}
	}
}

func TestIngestor_ProgressIsClampedAndAdvisory(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	job := seedJob(store, StatusProcessing, "ft-600")
	ctx := context.Background()

	over := 180
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-600", Status: "processing", Progress: &over}, false); err != nil {
		t.Fatalf("overflowing progress: %v", err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Progress != 100 {
		t.Errorf("progress = %d, want clamped 100", got.Progress)
	}
	// Same stage: progress recorded, but no lifecycle event appended.
	if events := store.eventsFor(job.ID); len(events) != 0 {
		t.Errorf("progress-only update appended %d lifecycle events", len(events))
	}

	// A missing progress field never blocks the transition.
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-600", Status: "succeeded"}, false); err != nil {
		t.Fatalf("terminal without progress: %v", err)
	}
	got, _ = store.Get(ctx, job.ID)
	if got.Status != StatusSucceeded {
		t.Errorf("status = %s, want succeeded", got.Status)
	}
}

func TestIngestor_ProgressNeverRegresses(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	job := seedJob(store, StatusProcessing, "ft-650")
	ctx := context.Background()

	forty := 40
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-650", Status: "processing", Progress: &forty}, false); err != nil {
		t.Fatal(err)
	}

	// A stale redelivery with a lower value is a no-op.
	thirty := 30
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-650", Status: "processing", Progress: &thirty}, false); err != nil {
		t.Fatal(err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Progress != 40 {
		t.Errorf("progress = %d after stale redelivery, want 40", got.Progress)
	}

	// Equal progress is also a no-op, not a fresh write.
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-650", Status: "processing", Progress: &forty}, false); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Get(ctx, job.ID)
	if got.Progress != 40 {
		t.Errorf("progress = %d after duplicate value, want 40", got.Progress)
	}

	sixty := 60
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-650", Status: "processing", Progress: &sixty}, false); err != nil {
		t.Fatal(err)
	}
	got, _ = store.Get(ctx, job.ID)
	if got.Progress != 60 {
		t.Errorf("progress = %d, want 60", got.Progress)
	}
}

func TestIngestor_ForcedResyncOverridesTerminal(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	job := seedJob(store, StatusFailed, "ft-700")
	ctx := context.Background()

	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-700", Status: "succeeded"}, true); err != nil {
		t.Fatalf("forced resync: %v", err)
	}
	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusSucceeded {
		t.Errorf("forced resync left status %s, want succeeded", got.Status)
	}
	_ = job
}

func TestIngestor_PublishesSnapshotAfterApply(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, b := newTestIngestor(store)
	seedJob(store, StatusStarting, "ft-800")

	var seen []string
	b.Subscribe(func(job *entity.Job) { seen = append(seen, job.Status) })

	if _, err := ing.Apply(context.Background(), ProviderEvent{Handle: "ft-800", Status: "running"}, false); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != StatusProcessing {
		t.Errorf("broadcast snapshots = %v, want [processing]", seen)
	}
}

func TestIngestor_SuccessHookRunsOnceOnTerminalEntry(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	ing, _ := newTestIngestor(store)
	seedJob(store, StatusProcessing, "ft-900")
	ctx := context.Background()

	var hookRuns int
	ing.OnSucceeded(func(_ context.Context, job *entity.Job) {
		hookRuns++
		if job.Status != StatusSucceeded {
			t.Errorf("hook saw status %s, want succeeded", job.Status)
		}
	})

	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-900", Status: "processing"}, false); err != nil {
		t.Fatal(err)
	}
	if hookRuns != 0 {
		t.Fatalf("hook ran on non-terminal event")
	}

	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-900", Status: "succeeded"}, false); err != nil {
		t.Fatal(err)
	}
	// Redelivery of the terminal event is discarded and must not re-run
	// the projection.
	if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-900", Status: "succeeded"}, false); err != nil {
		t.Fatal(err)
	}
	if hookRuns != 1 {
		t.Fatalf("hook ran %d times, want 1", hookRuns)
	}
}
