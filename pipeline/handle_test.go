package pipeline

import (
	"strings"
	"testing"

	"github.com/mytorahtale/my-torah-complete-admin-dashboard/entity"
)

func TestPlaceholderHandle(t *testing.T) {
	t.Parallel()

	h := NewPlaceholderHandle(entity.JobKindTraining)
	if !IsPlaceholderHandle(h) {
		t.Errorf("NewPlaceholderHandle produced %q, not recognized as placeholder", h)
	}
	if !strings.Contains(h, entity.JobKindTraining) {
		t.Errorf("placeholder %q does not carry the job kind", h)
	}

	other := NewPlaceholderHandle(entity.JobKindTraining)
	if h == other {
		t.Error("two placeholder handles collided")
	}

	if IsPlaceholderHandle("ft-abc123") {
		t.Error("provider handle misclassified as placeholder")
	}
}
