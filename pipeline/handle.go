package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// placeholderPrefix marks external handles that were synthesized locally.
// A job carries one from creation until the provider's create call returns
// the real handle, so the record can be listed and broadcast before the
// network round-trip completes. No provider call may target a placeholder.
const placeholderPrefix = "local-"

func NewPlaceholderHandle(kind string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s%s-%d-%s", placeholderPrefix, kind, time.Now().UnixMilli(), suffix)
}

func IsPlaceholderHandle(handle string) bool {
	return strings.HasPrefix(handle, placeholderPrefix)
}
