package imagegen

import "time"

// RetryPolicy controls per-request retry behavior. It is a plain value so
// the schedule and the retryable predicate can be tested on their own.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     []time.Duration
	Retryable   func(error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second},
		Retryable:   IsRetryable,
	}
}

// Delay returns the wait before the given retry (attempt is 1-based, the
// attempt that just failed). Past the end of the schedule the last entry
// repeats.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 0
	}
	if attempt > len(p.Backoff) {
		return p.Backoff[len(p.Backoff)-1]
	}
	if attempt < 1 {
		return p.Backoff[0]
	}
	return p.Backoff[attempt-1]
}
