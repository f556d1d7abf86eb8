// File: internal/enroll/surface.go
package enroll

import (
	"context"
	"time"
)

// Surface is the slice of browser capability the enrollment stages consume.
// *browser.Session satisfies it; tests drive the stages with scripted fakes.
type Surface interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	PressEnter(ctx context.Context) error
	PageText(ctx context.Context) (string, error)
	PageHTML(ctx context.Context) (string, error)
	Sleep(ctx context.Context, d time.Duration) error

	ClickByLabel(ctx context.Context, scope string, labels, exclude []string) (bool, error)
	ClickAnyButtonExcept(ctx context.Context, exclude []string) (bool, error)
	FillFirstEmptyInput(ctx context.Context, value string) (bool, error)
	FillFirstMatchingInput(ctx context.Context, candidates []string, value string) (bool, error)
}

// SurfaceCloser is a Surface bound to a real tab that must be released.
type SurfaceCloser interface {
	Surface
	Close()
}

// SessionSource hands out isolated browser surfaces, one per workflow.
type SessionSource interface {
	NewSurface(ctx context.Context) (SurfaceCloser, error)
}

// SessionSourceFunc adapts a function to the SessionSource interface.
type SessionSourceFunc func(ctx context.Context) (SurfaceCloser, error)

func (f SessionSourceFunc) NewSurface(ctx context.Context) (SurfaceCloser, error) {
	return f(ctx)
}

// CodeSource produces a one-time code for a shared secret.
type CodeSource interface {
	Code(ctx context.Context, secret string) (string, error)
}
