// Package pipeline contains the job orchestration core: dispatching runs to
// the external model API, reconciling provider events into job records, and
// fanning out record snapshots to live subscribers.
package pipeline

import "fmt"

const (
	StatusQueued     = "queued"
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// statusRank orders the lifecycle so stale events can never move a record
// backwards. Terminal states share a rank; entering one is final.
var statusRank = map[string]int{
	StatusQueued:     0,
	StatusStarting:   1,
	StatusProcessing: 2,
	StatusSucceeded:  3,
	StatusFailed:     3,
	StatusCanceled:   3,
}

func IsTerminal(status string) bool {
	return statusRank[status] == 3
}

// CanAdvance reports whether a transition from → to is a strictly forward
// move on the lifecycle graph.
func CanAdvance(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if fromRank == 3 {
		return false
	}
	return toRank > fromRank
}

// providerStatusTable maps the model API's status vocabulary onto ours.
// The mapping is explicit; unknown values are rejected, never guessed.
var providerStatusTable = map[string]string{
	"queued":     StatusStarting,
	"pending":    StatusStarting,
	"starting":   StatusStarting,
	"processing": StatusProcessing,
	"running":    StatusProcessing,
	"succeeded":  StatusSucceeded,
	"completed":  StatusSucceeded,
	"failed":     StatusFailed,
	"error":      StatusFailed,
	"canceled":   StatusCanceled,
	"cancelled":  StatusCanceled,
}

func MapProviderStatus(providerStatus string) (string, error) {
	local, ok := providerStatusTable[providerStatus]
	if !ok {
		return "", fmt.Errorf("unrecognized provider status %q", providerStatus)
	}
	return local, nil
}

// ClampProgress bounds a raw provider progress value to [0,100]. Progress is
// advisory display state; it never drives transitions.
func ClampProgress(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > 100 {
		return 100
	}
	return raw
}
