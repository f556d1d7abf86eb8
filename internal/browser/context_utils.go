// File: internal/browser/context_utils.go
package browser

import "context"

// combineContext creates a context derived from ctx1 (the session context,
// which carries the CDP connection info) that is canceled when either ctx1 or
// ctx2 (the operational context) is canceled. Deriving from ctx1 preserves the
// chromedp target values; ctx2 contributes only its lifecycle.
func combineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combinedCtx.Done():
		}
	}()

	return combinedCtx, cancel
}
