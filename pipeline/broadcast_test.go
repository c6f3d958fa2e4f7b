package pipeline

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

func TestBroadcaster_DeliversInPublishOrder(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	var got []string
	unsubscribe := b.Subscribe(func(job *entity.Job) {
		got = append(got, job.Status)
	})
	defer unsubscribe()

	for _, status := range []string{StatusQueued, StatusStarting, StatusProcessing, StatusSucceeded} {
		b.Publish(&entity.Job{ID: uuid.New(), Status: status})
	}

	want := []string{StatusQueued, StatusStarting, StatusProcessing, StatusSucceeded}
	if len(got) != len(want) {
		t.Fatalf("received %d snapshots, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBroadcaster_PanickingSubscriberIsIsolated(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	received := 0
	b.Subscribe(func(*entity.Job) { panic("bad subscriber") })
	b.Subscribe(func(*entity.Job) { received++ })
	b.Subscribe(func(*entity.Job) { panic("another bad subscriber") })

	b.Publish(&entity.Job{ID: uuid.New(), Status: StatusProcessing})
	b.Publish(&entity.Job{ID: uuid.New(), Status: StatusSucceeded})

	if received != 2 {
		t.Errorf("healthy subscriber received %d publishes, want 2", received)
	}
}

func TestBroadcaster_UnsubscribeStopsDelivery(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	received := 0
	unsubscribe := b.Subscribe(func(*entity.Job) { received++ })

	b.Publish(&entity.Job{ID: uuid.New()})
	unsubscribe()
	b.Publish(&entity.Job{ID: uuid.New()})

	if received != 1 {
		t.Errorf("subscriber received %d publishes after unsubscribe, want 1", received)
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("SubscriberCount() = %d after unsubscribe, want 0", n)
	}
}

func TestBroadcaster_SubscribeDuringPublish(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster(testLogger())

	// Subscribing from inside a callback must not deadlock or corrupt the
	// subscriber set: the publish path iterates a snapshot.
	b.Subscribe(func(*entity.Job) {
		b.Subscribe(func(*entity.Job) {})
	})
	b.Publish(&entity.Job{ID: uuid.New()})

	if n := b.SubscriberCount(); n != 2 {
		t.Errorf("SubscriberCount() = %d, want 2", n)
	}
}
