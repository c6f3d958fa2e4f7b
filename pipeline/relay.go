package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

// RelayChannel is the Redis channel job snapshots are relayed on.
const RelayChannel = "storybook.job.updates"

type relayEnvelope struct {
	Origin string     `json:"origin"`
	Job    entity.Job `json:"job"`
}

// Relay bridges job snapshots across process instances through Redis pub/sub.
// A webhook can land on any instance; Publish pushes the snapshot to the
// local broadcaster and onto the Redis channel, and Run feeds snapshots from
// other instances into the local broadcaster so every connected stream client
// sees them. Origin tagging keeps an instance from re-delivering its own
// publishes.
type Relay struct {
	rdb         *redis.Client
	broadcaster *Broadcaster
	instanceID  string
	logger      *slog.Logger
}

func NewRelay(rdb *redis.Client, broadcaster *Broadcaster, logger *slog.Logger) *Relay {
	return &Relay{
		rdb:         rdb,
		broadcaster: broadcaster,
		instanceID:  uuid.NewString(),
		logger:      logger,
	}
}

// Publish implements Notifier.
func (r *Relay) Publish(job *entity.Job) {
	r.broadcaster.Publish(job)

	payload, err := json.Marshal(relayEnvelope{Origin: r.instanceID, Job: *job})
	if err != nil {
		r.logger.Error("failed to encode relay envelope", "job_id", job.ID, "error", err)
		return
	}
	if err := r.rdb.Publish(context.Background(), RelayChannel, payload).Err(); err != nil {
		// Local subscribers already got the snapshot; cross-instance fanout
		// degrades to the client's periodic refetch.
		r.logger.Warn("failed to relay job snapshot", "job_id", job.ID, "error", err)
	}
}

// Run blocks consuming the relay channel until ctx is canceled.
func (r *Relay) Run(ctx context.Context) {
	pubsub := r.rdb.Subscribe(ctx, RelayChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope relayEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				r.logger.Warn("discarding malformed relay message", "error", err)
				continue
			}
			if envelope.Origin == r.instanceID {
				continue
			}
			job := envelope.Job
			r.broadcaster.Publish(&job)
		}
	}
}
