package infra

import (
	"math/rand"
	"time"
)

const (
	// Standard backoff constants
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential backoff ceiling for a given
// retry count. Logic: baseDelay * 2^retryCount, capped at maxDelay.
// If retryCount is negative, it returns baseDelay.
func CalculateBackoff(retryCount int) time.Duration {
	if retryCount < 0 {
		return baseDelay
	}

	// 2^30 is already > 1 billion seconds > maxDelay.
	if retryCount > 30 {
		return maxDelay
	}

	backoff := baseDelay * time.Duration(1<<retryCount)

	if backoff > maxDelay {
		return maxDelay
	}

	return backoff
}

// JitteredBackoff returns a full-jitter delay: uniform in
// (0, CalculateBackoff(retryCount)]. Spreads reconnect storms when many
// workers lose the same upstream at once.
func JitteredBackoff(retryCount int) time.Duration {
	ceiling := CalculateBackoff(retryCount)
	return time.Duration(rand.Int63n(int64(ceiling))) + 1
}
