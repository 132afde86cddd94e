package worker

import "github.com/google/uuid"

// NewIdempotencyKey returns a key that is never reused. Square deduplicates
// creates by key, so a resubmission with a recycled key would return the
// stalled checkout instead of a new one.
func NewIdempotencyKey() string {
	return uuid.NewString()
}
