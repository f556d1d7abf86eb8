// File: internal/enroll/retry.go
package enroll

import (
	"context"
	"time"
)

// retryUntil invokes fn up to attempts times, pausing between tries, until fn
// reports success or the context is canceled. The UI renders asynchronously;
// every stage that polls for an element or an extracted value goes through
// this instead of hand-rolling its own sleep loop.
func retryUntil(ctx context.Context, attempts int, pause time.Duration, fn func() bool) bool {
	for i := 0; i < attempts; i++ {
		if fn() {
			return true
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(pause):
		case <-ctx.Done():
			return false
		}
	}
	return false
}
