package pipeline

import (
	"math"
	"time"
)

// BackoffStrategy computes the delay before retry attempt n (1-indexed).
// Strategies are stateless and safe for concurrent use.
type BackoffStrategy interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff always waits the same interval.
type ConstantBackoff struct {
	Interval time.Duration
}

func (c ConstantBackoff) Delay(_ int) time.Duration {
	return c.Interval
}

// ExponentialBackoff doubles the delay each attempt:
// min(Initial * 2^(attempt-1), Max).
type ExponentialBackoff struct {
	Initial time.Duration
	Max     time.Duration
}

func (e ExponentialBackoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(attempt-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}
