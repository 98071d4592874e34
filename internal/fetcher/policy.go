// Package fetcher performs outbound HTTP requests with bounded retries,
// escalating per-attempt timeouts and a permit-based concurrency limit.
package fetcher

import (
	"errors"
	"time"
)

// RetryPolicy describes how many times a request is attempted and how long each
// attempt and each pause may last. Index i of Timeouts governs attempt i and
// index i of Backoff is slept after attempt i fails. Shorter sequences repeat
// their last element.
type RetryPolicy struct {
	MaxRetries int
	Timeouts   []time.Duration
	Backoff    []time.Duration
}

var (
	errNegativeRetries    = errors.New("max retries must not be negative")
	errNoTimeouts         = errors.New("at least one per-attempt timeout is required")
	errDecreasingTimeouts = errors.New("per-attempt timeouts must not decrease")
)

// Attempts is the total number of attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// TimeoutFor returns the timeout of attempt i.
func (p RetryPolicy) TimeoutFor(i int) time.Duration {
	return clampIndex(p.Timeouts, i)
}

// BackoffFor returns the pause after failed attempt i.
func (p RetryPolicy) BackoffFor(i int) time.Duration {
	return clampIndex(p.Backoff, i)
}

// Budget is the longest a single Fetch can take under this policy.
func (p RetryPolicy) Budget() time.Duration {
	var total time.Duration
	for i := range p.Attempts() {
		total += p.TimeoutFor(i)
		if i < p.MaxRetries {
			total += p.BackoffFor(i)
		}
	}
	return total
}

// Validate checks that the policy can be executed.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return errNegativeRetries
	}
	if len(p.Timeouts) == 0 {
		return errNoTimeouts
	}
	for i := 1; i < len(p.Timeouts); i++ {
		if p.Timeouts[i] < p.Timeouts[i-1] {
			return errDecreasingTimeouts
		}
	}
	return nil
}

func clampIndex(seq []time.Duration, i int) time.Duration {
	if len(seq) == 0 {
		return 0
	}
	if i >= len(seq) {
		return seq[len(seq)-1]
	}
	return seq[i]
}
