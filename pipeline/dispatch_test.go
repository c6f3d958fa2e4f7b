package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

// fakeProvider scripts the model API: submit outcomes are consumed in order,
// and cancel/status behavior is configurable per test.
type fakeProvider struct {
	mu            sync.Mutex
	submitResults []error
	submitCalls   int
	handlePrefix  string
	cancelErr     error
	cancelCalls   int
	statusEvent   ProviderEvent
	statusErr     error
	statusFn      func() (ProviderEvent, error)
}

func (f *fakeProvider) Submit(_ context.Context, _ *entity.Job) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++
	if len(f.submitResults) > 0 {
		err := f.submitResults[0]
		f.submitResults = f.submitResults[1:]
		if err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s-%d", f.handlePrefix, f.submitCalls), nil
}

func (f *fakeProvider) Status(_ context.Context, _ string) (ProviderEvent, error) {
	if f.statusFn != nil {
		return f.statusFn()
	}
	return f.statusEvent, f.statusErr
}

func (f *fakeProvider) Cancel(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	return f.cancelErr
}

func newTestDispatcher(store *memStore, provider *fakeProvider, maxAttempts int) (*Dispatcher, *Broadcaster) {
	b := NewBroadcaster(testLogger())
	ing := NewIngestor(store, b, testLogger())
	d := NewDispatcher(store, provider, ing, b, DispatcherConfig{
		MaxAttempts: maxAttempts,
		Backoff:     ConstantBackoff{Interval: time.Millisecond},
	}, testLogger())
	return d, b
}

func trainingPayload() datatypes.JSON {
	return datatypes.JSON(`{"dataset_key":"reference-photos/u1/bundle.zip"}`)
}

func TestCreateJob_Validation(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	d, _ := newTestDispatcher(store, &fakeProvider{handlePrefix: "ft"}, 3)
	ctx := context.Background()

	if _, err := d.CreateJob(ctx, "render", uuid.New(), nil, trainingPayload()); err == nil {
		t.Error("accepted unsupported kind")
	}
	if _, err := d.CreateJob(ctx, entity.JobKindTraining, uuid.Nil, nil, trainingPayload()); err == nil {
		t.Error("accepted missing owner")
	}
	if _, err := d.CreateJob(ctx, entity.JobKindTraining, uuid.New(), nil, nil); err == nil {
		t.Error("accepted empty payload")
	}
	if _, err := d.CreateJob(ctx, entity.JobKindStorybook, uuid.New(), nil, trainingPayload()); err == nil {
		t.Error("accepted storybook job without book reference")
	}
}

func TestCreateJob_StartsQueuedWithPlaceholder(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	d, _ := newTestDispatcher(store, &fakeProvider{handlePrefix: "ft"}, 3)

	job, err := d.CreateJob(context.Background(), entity.JobKindTraining, uuid.New(), nil, trainingPayload())
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != StatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
	if !IsPlaceholderHandle(job.ExternalJobID) {
		t.Errorf("external handle %q is not a placeholder", job.ExternalJobID)
	}
	events := store.eventsFor(job.ID)
	if len(events) != 1 || events[0].Type != EventCreated {
		t.Errorf("creation ledger = %v", events)
	}
}

func TestDispatch_SuccessReplacesPlaceholder(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{handlePrefix: "ft"}
	d, _ := newTestDispatcher(store, provider, 3)
	ctx := context.Background()

	job, err := d.CreateJob(ctx, entity.JobKindTraining, uuid.New(), nil, trainingPayload())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(ctx, job.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusStarting {
		t.Errorf("status = %s, want starting", got.Status)
	}
	if IsPlaceholderHandle(got.ExternalJobID) {
		t.Error("placeholder handle not replaced after dispatch")
	}
	if got.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", got.Attempts)
	}
	events := store.eventsFor(job.ID)
	if len(events) != 2 || events[1].Type != EventDispatched {
		t.Errorf("ledger after dispatch = %v", events)
	}
}

func TestDispatch_ExhaustedAttemptsFailTerminally(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{
		handlePrefix:  "ft",
		submitResults: []error{errors.New("connection reset"), errors.New("connection reset")},
	}
	d, _ := newTestDispatcher(store, provider, 2)
	ctx := context.Background()

	job, err := d.CreateJob(ctx, entity.JobKindTraining, uuid.New(), nil, trainingPayload())
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatch(ctx, job.ID); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("Dispatch error = %v, want ErrAttemptsExhausted", err)
	}

	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusFailed {
		t.Errorf("status = %s, want failed", got.Status)
	}
	if got.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", got.Attempts)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set on exhaustion")
	}
	if got.Error == "" {
		t.Error("error field empty on exhaustion")
	}
	if !IsPlaceholderHandle(got.ExternalJobID) {
		t.Error("placeholder should survive when no dispatch ever succeeded")
	}
	if provider.submitCalls != 2 {
		t.Errorf("provider called %d times, want 2", provider.submitCalls)
	}
}

func TestDispatch_SecondAttemptRecovers(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{
		handlePrefix:  "ft",
		submitResults: []error{errors.New("timeout"), nil},
	}
	d, _ := newTestDispatcher(store, provider, 3)
	ctx := context.Background()

	job, _ := d.CreateJob(ctx, entity.JobKindTraining, uuid.New(), nil, trainingPayload())
	if err := d.Dispatch(ctx, job.ID); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(ctx, job.ID)
	if got.Status != StatusStarting || got.Attempts != 2 {
		t.Errorf("status=%s attempts=%d, want starting/2", got.Status, got.Attempts)
	}
}

func TestDispatch_SkipsNonQueuedJob(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{handlePrefix: "ft"}
	d, _ := newTestDispatcher(store, provider, 3)

	job := seedJob(store, StatusProcessing, "ft-1")
	if err := d.Dispatch(context.Background(), job.ID); err != nil {
		t.Fatal(err)
	}
	if provider.submitCalls != 0 {
		t.Error("provider contacted for a non-queued job")
	}
}

func TestCancel_RejectsPlaceholderAndTerminal(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{handlePrefix: "ft"}
	d, _ := newTestDispatcher(store, provider, 3)
	ctx := context.Background()

	queued := seedJob(store, StatusQueued, NewPlaceholderHandle(entity.JobKindTraining))
	if _, err := d.Cancel(ctx, queued.ID); !errors.Is(err, ErrNotCancelable) {
		t.Errorf("cancel with placeholder handle: %v, want ErrNotCancelable", err)
	}

	done := seedJob(store, StatusSucceeded, "ft-done")
	if _, err := d.Cancel(ctx, done.ID); !errors.Is(err, ErrNotCancelable) {
		t.Errorf("cancel of terminal job: %v, want ErrNotCancelable", err)
	}
	if provider.cancelCalls != 0 {
		t.Error("provider cancel called for uncancelable jobs")
	}
}

func TestCancel_ProviderRejectionLeavesRecordUnchanged(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{handlePrefix: "ft", cancelErr: errors.New("too late")}
	d, _ := newTestDispatcher(store, provider, 3)

	job := seedJob(store, StatusProcessing, "ft-2")
	if _, err := d.Cancel(context.Background(), job.ID); err == nil {
		t.Fatal("provider rejection not surfaced")
	}
	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != StatusProcessing {
		t.Errorf("record mutated after rejected cancel: %s", got.Status)
	}
}

func TestCancel_ConcurrentCallsHaveOneWinner(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{handlePrefix: "ft"}
	d, _ := newTestDispatcher(store, provider, 3)
	job := seedJob(store, StatusProcessing, "ft-3")

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = d.Cancel(context.Background(), job.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else if !errors.Is(err, ErrNotCancelable) {
			t.Errorf("loser got unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("%d cancellations won, want exactly 1", winners)
	}

	got, _ := store.Get(context.Background(), job.ID)
	if got.Status != StatusCanceled {
		t.Errorf("final status = %s, want canceled", got.Status)
	}
	if events := store.eventsFor(job.ID); len(events) != 1 {
		t.Errorf("cancellation appended %d events, want 1", len(events))
	}
}

func TestPollStatus_FunnelsThroughIngestion(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	progress := 65
	provider := &fakeProvider{
		handlePrefix: "ft",
		statusEvent:  ProviderEvent{Status: "running", Progress: &progress},
	}
	d, _ := newTestDispatcher(store, provider, 3)

	job := seedJob(store, StatusStarting, "ft-4")
	got, err := d.PollStatus(context.Background(), job.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusProcessing || got.Progress != 65 {
		t.Errorf("polled record: status=%s progress=%d", got.Status, got.Progress)
	}
	if events := store.eventsFor(job.ID); len(events) != 1 || events[0].Type != EventProgress {
		t.Errorf("poll did not flow through the ingestion ledger path: %v", events)
	}
}

func TestPollStatus_SkipsTerminalAndPlaceholder(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	provider := &fakeProvider{handlePrefix: "ft", statusErr: errors.New("should not be called")}
	d, _ := newTestDispatcher(store, provider, 3)
	ctx := context.Background()

	done := seedJob(store, StatusSucceeded, "ft-5")
	if got, err := d.PollStatus(ctx, done.ID, false); err != nil || got.Status != StatusSucceeded {
		t.Errorf("terminal poll: job=%v err=%v", got, err)
	}

	pending := seedJob(store, StatusQueued, NewPlaceholderHandle(entity.JobKindStorybook))
	if got, err := d.PollStatus(ctx, pending.ID, false); err != nil || got.Status != StatusQueued {
		t.Errorf("placeholder poll: job=%v err=%v", got, err)
	}
}

func TestPollStatus_StaleAnswerCannotRegressTerminalRecord(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	b := NewBroadcaster(testLogger())
	ing := NewIngestor(store, b, testLogger())
	var hookRuns int
	ing.OnSucceeded(func(_ context.Context, _ *entity.Job) { hookRuns++ })

	ctx := context.Background()
	job := seedJob(store, StatusProcessing, "ft-6")

	// The provider answers the poll with a snapshot taken before a
	// succeeded webhook landed for the same run.
	provider := &fakeProvider{
		statusFn: func() (ProviderEvent, error) {
			if _, err := ing.Apply(ctx, ProviderEvent{Handle: "ft-6", Status: "succeeded"}, false); err != nil {
				t.Errorf("interleaved webhook: %v", err)
			}
			return ProviderEvent{Status: "processing"}, nil
		},
	}
	d := NewDispatcher(store, provider, ing, b, DispatcherConfig{
		MaxAttempts: 3,
		Backoff:     ConstantBackoff{Interval: time.Millisecond},
	}, testLogger())

	got, err := d.PollStatus(ctx, job.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusSucceeded {
		t.Errorf("status = %s after stale poll answer, want succeeded", got.Status)
	}
	stored, _ := store.Get(ctx, job.ID)
	if stored.Status != StatusSucceeded {
		t.Errorf("stored status = %s, want succeeded", stored.Status)
	}
	if hookRuns != 1 {
		t.Errorf("success hook ran %d times, want 1", hookRuns)
	}
}
