package pipeline

import "encoding/json"

// Job event types as they appear in the job_events ledger.
const (
	EventCreated    = "created"
	EventDispatched = "dispatched"
	EventStarted    = "started"
	EventProgress   = "progress"
	EventCompleted  = "completed"
	EventError      = "error"
	EventCanceled   = "canceled"
)

// ProviderEvent is a normalized status callback from the model API, arriving
// either through the webhook endpoint or a synchronous status poll. Raw keeps
// the untouched provider payload for the event ledger.
type ProviderEvent struct {
	Handle   string          `json:"handle"`
	Status   string          `json:"status"`
	Progress *int            `json:"progress,omitempty"`
	Output   json.RawMessage `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

// eventTypeForStatus names the ledger event appended when a record enters
// the given local status.
func eventTypeForStatus(status string) string {
	switch status {
	case StatusStarting:
		return EventStarted
	case StatusProcessing:
		return EventProgress
	case StatusSucceeded:
		return EventCompleted
	case StatusFailed:
		return EventError
	case StatusCanceled:
		return EventCanceled
	default:
		return EventProgress
	}
}
