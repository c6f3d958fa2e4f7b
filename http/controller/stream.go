package controller

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/utils"
)

// streamBufferSize bounds how far a slow client can lag before updates are
// dropped. Dropped snapshots are fine: clients refetch on transitions and
// every later snapshot supersedes earlier ones.
const streamBufferSize = 16

// StreamJobUpdates serves the live job feed over SSE. An optional book_id
// query narrows the feed to one book. Heartbeat comments keep idle
// connections alive through proxies.
func (ctrl *Controller) StreamJobUpdates(c *gin.Context) {
	ctx := c.Request.Context()

	bookFilter := uuid.Nil
	if raw := c.Query("book_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			utils.JSON400(c, "Invalid book_id format")
			return
		}
		bookFilter = parsed
	}

	updates := make(chan *entity.Job, streamBufferSize)
	unsubscribe := ctrl.Broadcaster.Subscribe(func(job *entity.Job) {
		select {
		case updates <- job:
		default:
		}
	})
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Open the stream immediately so the client knows it is connected
	// before the first job update arrives.
	fmt.Fprint(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	heartbeat := time.NewTicker(ctrl.Config.EnvConfig.Dispatch.HeartbeatInterval)
	defer heartbeat.Stop()

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[Stream] Client %s subscribed (book filter: %s)", c.ClientIP(), bookFilter)

	for {
		select {
		case <-ctx.Done():
			ctrl.Infra.Logger.InfoWithContextf(ctx, "[Stream] Client %s disconnected", c.ClientIP())
			return
		case <-heartbeat.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		case job := <-updates:
			if bookFilter != uuid.Nil && (job.BookID == nil || *job.BookID != bookFilter) {
				continue
			}
			c.SSEvent("job", job)
			c.Writer.Flush()
		}
	}
}
