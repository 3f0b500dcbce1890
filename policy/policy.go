package policy

import (
	"errors"
	"math"
	"time"
)

// DefaultBackoffBase is substituted whenever the backoff_base config
// value fails to parse as an integer.
const DefaultBackoffBase = 2

// ErrInvalidRunAt is returned by ParseRunAt when the input is not a
// valid ISO-8601 timestamp.
var ErrInvalidRunAt = errors.New("policy: invalid run_at")

// NextDelay computes the exponential backoff delay for a job that has
// just failed: base ** attempts seconds, where attempts is the
// attempt count *after* increment.
func NextDelay(attempts uint32, base int) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	seconds := math.Pow(float64(base), float64(attempts))
	return time.Duration(seconds * float64(time.Second))
}

// IsTerminal reports whether a job that has just failed (newAttempts
// already incremented) has exhausted its retry budget and must move
// to the dead-letter state rather than being scheduled for retry.
func IsTerminal(newAttempts uint32, maxRetries uint32) bool {
	return newAttempts >= maxRetries
}

// ResolveRunAt returns the instant at which a failed job becomes
// eligible for its next attempt.
func ResolveRunAt(now time.Time, base int, newAttempts uint32) time.Time {
	return now.Add(NextDelay(newAttempts, base))
}

// ParseRunAt parses an ISO-8601 run_at string supplied at enqueue time.
//
// If the parsed instant carries no UTC offset, localTZ is attached
// before converting to UTC. A naive timestamp is never accepted as-is:
// it is always explicitly localized first.
//
// If the resulting instant is at or before now, ParseRunAt returns a
// nil time (meaning "run now", i.e. the job should be enqueued as
// Pending rather than Scheduled). Otherwise it returns the UTC instant.
// Malformed input yields ErrInvalidRunAt.
func ParseRunAt(s string, now time.Time, localTZ *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// time.RFC3339 requires an offset; fall back to a layout that
		// accepts a naive (offset-less) timestamp so it can be
		// explicitly localized below instead of silently rejected.
		const naiveLayout = "2006-01-02T15:04:05"
		naive, naiveErr := time.ParseInLocation(naiveLayout, s, localTZ)
		if naiveErr != nil {
			return nil, ErrInvalidRunAt
		}
		t = naive
	}
	utc := t.UTC()
	if !utc.After(now.UTC()) {
		return nil, nil
	}
	return &utc, nil
}
