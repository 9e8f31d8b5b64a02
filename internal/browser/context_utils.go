// internal/browser/context_utils.go
package browser

import "context"

// CombineContext derives a context from ctx1 that is additionally canceled
// when ctx2 ends. chromedp contexts carry the CDP connection, so the derived
// context must come from the session side.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(ctx1)

	go func() {
		select {
		case <-ctx2.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
