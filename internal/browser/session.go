// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
)

// tagAttr marks the element a JS probe selected so the follow-up chromedp
// action can address it with a stable selector.
const tagAttr = "data-enroll-target"

// trackerHosts are aborted at the fetch layer regardless of resource type.
var trackerHosts = []string{
	"google-analytics", "googletagmanager", "doubleclick", "facebook", "twitter",
}

// Session is one isolated browser tab driving a single account's enrollment.
// It is never shared between workflows.
type Session struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config
	logger *zap.Logger

	onClose func()
	closed  bool
}

func newSession(allocCtx context.Context, cfg *config.Config, logger *zap.Logger) (*Session, error) {
	id := uuid.New().String()
	tabCtx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:     id,
		ctx:    tabCtx,
		cancel: cancel,
		cfg:    cfg,
		logger: logger.With(zap.String("session_id", id[:8])),
	}

	if cfg.Browser.BlockResources {
		s.interceptResources()
		if err := chromedp.Run(tabCtx, fetch.Enable()); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to enable request interception: %w", err)
		}
	}

	if err := chromedp.Run(tabCtx, network.SetCacheDisabled(true)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to disable cache: %w", err)
	}

	s.logger.Debug("Browser session created.")
	return s, nil
}

// interceptResources aborts image/style/font/media loads and tracker hosts.
// The enrollment flow only needs the documents and scripts; dropping the rest
// roughly halves per-account wall time.
func (s *Session) interceptResources() {
	chromedp.ListenTarget(s.ctx, func(ev interface{}) {
		paused, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}
		go func() {
			c := chromedp.FromContext(s.ctx)
			ectx := cdp.WithExecutor(s.ctx, c.Target)
			if blockRequest(paused) {
				_ = fetch.FailRequest(paused.RequestID, network.ErrorReasonBlockedByClient).Do(ectx)
			} else {
				_ = fetch.ContinueRequest(paused.RequestID).Do(ectx)
			}
		}()
	})
}

func blockRequest(ev *fetch.EventRequestPaused) bool {
	switch ev.ResourceType {
	case network.ResourceTypeImage, network.ResourceTypeStylesheet,
		network.ResourceTypeFont, network.ResourceTypeMedia:
		return true
	}
	url := strings.ToLower(ev.Request.URL)
	for _, host := range trackerHosts {
		if strings.Contains(url, host) {
			return true
		}
	}
	return false
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Close releases the tab. Safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.logger.Debug("Closing browser session.")
	s.cancel()
	if s.onClose != nil {
		s.onClose()
	}
}

// run executes chromedp actions under the combined session + operation contexts.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, opCancel := combineContext(s.ctx, ctx)
	defer opCancel()

	if timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(opCtx, timeout)
		defer cancel()
	}
	return chromedp.Run(opCtx, actions...)
}

// Navigate loads the URL and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	err := s.run(ctx, s.cfg.Browser.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Location returns the tab's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, 5*time.Second, chromedp.Location(&url)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return url, nil
}

// WaitVisible blocks until the selector is visible or the implicit wait expires.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	err := s.run(ctx, s.cfg.Browser.ImplicitWait,
		chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err != nil {
		return fmt.Errorf("element %q did not become visible: %w", selector, err)
	}
	return nil
}

// Fill clears the matched input and types the value into it.
func (s *Session) Fill(ctx context.Context, selector, value string) error {
	err := s.run(ctx, s.cfg.Browser.ImplicitWait,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("failed to fill %q: %w", selector, err)
	}
	return nil
}

// Click scrolls the matched element into view and clicks it.
func (s *Session) Click(ctx context.Context, selector string) error {
	err := s.run(ctx, s.cfg.Browser.ImplicitWait,
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click failed for %q: %w", selector, err)
	}
	return nil
}

// PressEnter sends an Enter keypress to the focused element.
func (s *Session) PressEnter(ctx context.Context) error {
	if err := s.run(ctx, 5*time.Second, chromedp.KeyEvent(kb.Enter)); err != nil {
		return fmt.Errorf("enter keypress failed: %w", err)
	}
	return nil
}

// PageText returns the rendered text of the whole document.
func (s *Session) PageText(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, 10*time.Second,
		chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	if err != nil {
		return "", fmt.Errorf("failed to snapshot page text: %w", err)
	}
	return text, nil
}

// PageHTML returns the document's outer HTML for DOM-scoped extraction.
func (s *Session) PageHTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 10*time.Second,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("failed to snapshot page HTML: %w", err)
	}
	return html, nil
}

// Sleep waits for the duration, honoring both the session and operation contexts.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	opCtx, opCancel := combineContext(s.ctx, ctx)
	defer opCancel()

	select {
	case <-time.After(d):
		return nil
	case <-opCtx.Done():
		return opCtx.Err()
	}
}
