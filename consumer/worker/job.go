package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/infra"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/infra/produce"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/repository"
)

// reconcilerBatchSize caps how many stalled jobs one poll sweep refreshes.
const reconcilerBatchSize = 50

// JobConsumer drains the dispatch queue and drives provider submissions.
// It also runs the poll reconciler: a ticker that re-checks non-terminal
// jobs with a real external handle, covering webhooks that never arrive.
type JobConsumer struct {
	channel    *amqp.Channel
	infra      *infra.Infra
	repository *repository.Repository
	dispatcher *pipeline.Dispatcher
}

func NewJobConsumer(channel *amqp.Channel, infra *infra.Infra, repo *repository.Repository, dispatcher *pipeline.Dispatcher) *JobConsumer {
	return &JobConsumer{
		channel:    channel,
		infra:      infra,
		repository: repo,
		dispatcher: dispatcher,
	}
}

func (c *JobConsumer) Start(ctx context.Context, pollInterval time.Duration) error {
	if err := c.startDispatchConsumer(ctx); err != nil {
		return fmt.Errorf("failed to start job consumer: %w", err)
	}
	go c.runPollReconciler(ctx, pollInterval)
	return nil
}

func (c *JobConsumer) startDispatchConsumer(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.JobDispatchQueue,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register dispatch consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Job Consumer] Started listening for dispatch messages on queue: %s", produce.JobDispatchQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Job Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Job Consumer] Channel closed")
					return
				}
				c.handleDispatch(ctx, msg)
			}
		}
	}()

	return nil
}

// handleDispatch runs the full submit-with-retry cycle for one job. The
// message is acked in every outcome that the dispatcher resolved itself
// (success, exhaustion, job no longer queued); only transport-level
// problems are nacked for redelivery.
func (c *JobConsumer) handleDispatch(ctx context.Context, msg amqp.Delivery) {
	var payload produce.JobDispatchMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Job Consumer] Failed to unmarshal dispatch message")
		_ = msg.Nack(false, false)
		return
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Job Consumer] Invalid job ID: %s", payload.JobID)
		_ = msg.Nack(false, false)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Job Consumer] Dispatching job %s (kind=%s)", jobID, payload.Kind)

	if err := c.dispatcher.Dispatch(ctx, jobID); err != nil {
		switch {
		case errors.Is(err, pipeline.ErrAttemptsExhausted):
			// Terminal failure is already recorded on the job; the message
			// did its work.
			c.infra.Logger.ErrorWithContextf(ctx, err, "[Job Consumer] Job %s exhausted its attempts", jobID)
			_ = msg.Ack(false)
		case errors.Is(err, pipeline.ErrJobNotFound):
			c.infra.Logger.WarningWithContextf(ctx, "[Job Consumer] Job %s no longer exists", jobID)
			_ = msg.Ack(false)
		case errors.Is(err, context.Canceled):
			// Shutdown mid-dispatch: requeue so another worker picks it up.
			_ = msg.Nack(false, true)
		default:
			c.infra.Logger.ErrorWithContextf(ctx, err, "[Job Consumer] Dispatch failed for job %s: %v", jobID, err)
			_ = msg.Nack(false, true)
		}
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Job Consumer] Job %s handed to provider", jobID)
	_ = msg.Ack(false)
}

// runPollReconciler periodically polls the provider for jobs that have a
// real handle but no terminal status yet. The results flow through the
// same ingestion funnel as webhooks, so a lost callback only delays an
// update by one interval.
func (c *JobConsumer) runPollReconciler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.infra.Logger.InfoWithContextf(ctx, "[Job Consumer] Poll reconciler running every %s", interval)

	for {
		select {
		case <-ctx.Done():
			c.infra.Logger.InfoWithContextf(ctx, "[Job Consumer] Poll reconciler shutting down...")
			return
		case <-ticker.C:
			c.reconcileOnce(ctx)
		}
	}
}

func (c *JobConsumer) reconcileOnce(ctx context.Context) {
	jobs, err := c.repository.JobRepo.FindNonTerminalWithRealHandle(ctx, reconcilerBatchSize)
	if err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Job Consumer] Failed to list jobs for reconciliation: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Job Consumer] Reconciling %d in-flight job(s)", len(jobs))

	for _, job := range jobs {
		if ctx.Err() != nil {
			return
		}
		// Automated reconciliation never forces: a stale provider answer
		// racing a webhook must not override a terminal record.
		if _, err := c.dispatcher.PollStatus(ctx, job.ID, false); err != nil {
			c.infra.Logger.WarningWithContextf(ctx, "[Job Consumer] Poll failed for job %s: %v", job.ID, err)
		}
	}
}
