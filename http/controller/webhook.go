package controller

import (
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/pipeline"
	"github.com/mytorahtale/my-torah-complete-admin-dashboard/utils"
)

type webhookPayloadDTO struct {
	JobID    string          `json:"job_id"`
	Status   string          `json:"status"`
	Progress *int            `json:"progress,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// HandleModelWebhook receives provider callbacks and funnels them through
// ingestion. Once the signature checks out the ack is unconditional:
// malformed payloads, unknown handles, stale statuses, and even local
// persistence failures are logged and acknowledged so the provider never
// retry-storms on our state. A lost event is picked up by the poll
// reconciler on its next sweep.
func (ctrl *Controller) HandleModelWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSON400(c, "Failed to read request body")
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	expected := utils.ComputeHMACSHA256(ctrl.Config.EnvConfig.ModelAPI.WebhookSecret, body)
	if !utils.SecureCompare(signature, expected) {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Webhook] Rejected callback with bad signature from %s", c.ClientIP())
		utils.JSON401(c, "Invalid webhook signature")
		return
	}

	var payload webhookPayloadDTO
	if err := json.Unmarshal(body, &payload); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Webhook] Discarding malformed payload: %v", err)
		utils.JSON200(c, gin.H{"received": true})
		return
	}
	if payload.JobID == "" || payload.Status == "" {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[Webhook] Discarding payload missing job_id or status")
		utils.JSON200(c, gin.H{"received": true})
		return
	}

	evt := pipeline.ProviderEvent{
		Handle:   payload.JobID,
		Status:   payload.Status,
		Progress: payload.Progress,
		Output:   payload.Output,
		Error:    payload.Error,
		Raw:      body,
	}

	if _, err := ctrl.Ingestor.Apply(ctx, evt, false); err != nil {
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[Webhook] Failed to apply event for handle %s: %v", payload.JobID, err)
	} else {
		ctrl.invalidateJobCounts(ctx)
	}

	utils.JSON200(c, gin.H{"received": true})
}
