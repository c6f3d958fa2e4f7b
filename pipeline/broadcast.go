package pipeline

import (
	"log/slog"
	"sync"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

// Notifier receives a fresh job snapshot after every record change.
type Notifier interface {
	Publish(job *entity.Job)
}

// Broadcaster is the process-scoped fan-out hub. It is constructed once at
// startup and injected into the transport layer; every subscriber sees every
// publish issued after it subscribed, in publish order.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int64]func(*entity.Job)
	nextID int64
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[int64]func(*entity.Job)),
		logger: logger,
	}
}

// Subscribe registers a callback and returns its unsubscribe func. The
// callback must not block; slow consumers should buffer on their own side.
func (b *Broadcaster) Subscribe(fn func(*entity.Job)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the snapshot to every current subscriber. The subscriber
// set is snapshotted first so subscribe/unsubscribe during delivery is safe,
// and each callback runs behind a recover so one panicking subscriber cannot
// starve the rest.
func (b *Broadcaster) Publish(job *entity.Job) {
	b.mu.RLock()
	callbacks := make([]func(*entity.Job), 0, len(b.subs))
	for _, fn := range b.subs {
		callbacks = append(callbacks, fn)
	}
	b.mu.RUnlock()

	for _, fn := range callbacks {
		b.deliver(fn, job)
	}
}

func (b *Broadcaster) deliver(fn func(*entity.Job), job *entity.Job) {
	defer func() {
		if r := recover(); r != nil && b.logger != nil {
			b.logger.Error("job subscriber panicked", "job_id", job.ID, "panic", r)
		}
	}()
	fn(job)
}

// SubscriberCount reports the current number of subscribers. Used by the
// dashboard's health view.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
