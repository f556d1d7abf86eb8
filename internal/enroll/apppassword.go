// File: internal/enroll/apppassword.go
package enroll

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
	"github.com/xkilldash9x/enroll-cli/internal/secrets"
)

// nameInputCandidates locate the app-name field across the page's known
// renderings, most specific first.
var nameInputCandidates = []string{
	`input[aria-label*="app" i]`,
	`input#app-name`,
	`input[name="appName"]`,
	`input[type="text"]:not([disabled])`,
}

// AppPasswords issues a device credential on the app-passwords page. The page
// only exists once two-step verification is active, so the stage always runs
// after activation.
type AppPasswords struct {
	surface   Surface
	cfg       *config.Config
	extractor *secrets.Extractor
	logger    *zap.Logger
}

func NewAppPasswords(surface Surface, cfg *config.Config, logger *zap.Logger) *AppPasswords {
	return &AppPasswords{
		surface:   surface,
		cfg:       cfg,
		extractor: secrets.NewExtractor(logger),
		logger:    logger.Named("app-password"),
	}
}

// Issue creates one app password named label and returns it, or "" when the
// page refuses or the credential never appears. The settings backend lags the
// activation toggle, so an unavailable page gets one recovery round before
// the stage gives up.
func (p *AppPasswords) Issue(ctx context.Context, label string) string {
	s := p.surface

	// Let the activation state propagate before asking for the page.
	_ = s.Sleep(ctx, p.cfg.Enroll.ModalWait)

	if !p.openPage(ctx) {
		return ""
	}

	if p.unavailable(ctx) {
		p.logger.Info("App passwords page not ready; retrying after re-activation.")
		if clicked, _ := s.ClickByLabel(ctx, "", activateOn, navExclusions); clicked {
			_ = s.Sleep(ctx, p.cfg.Enroll.PostLoginSettle)
		}
		if !p.openPage(ctx) || p.unavailable(ctx) {
			p.logger.Warn("App passwords remain unavailable.")
			return ""
		}
	}

	filled := retryUntil(ctx, p.cfg.Enroll.ExtractAttempts, time.Second, func() bool {
		ok, err := s.FillFirstMatchingInput(ctx, nameInputCandidates, label)
		if err != nil {
			p.logger.Debug("Name input probe failed.", zap.Error(err))
		}
		return ok
	})
	if !filled {
		p.logger.Warn("App name input not found.")
		return ""
	}
	_ = s.Sleep(ctx, p.cfg.Enroll.ActionDelay)

	clicked, err := s.ClickByLabel(ctx, "", []string{"create"}, navExclusions)
	if err != nil {
		p.logger.Debug("Create probe failed.", zap.Error(err))
	}
	if !clicked {
		p.logger.Warn("Create control not found.")
		return ""
	}
	_ = s.Sleep(ctx, p.cfg.Enroll.ModalWait)

	var credential string
	retryUntil(ctx, p.cfg.Enroll.ExtractAttempts, time.Second, func() bool {
		text, err := s.PageText(ctx)
		if err != nil {
			return false
		}
		html, err := s.PageHTML(ctx)
		if err != nil {
			html = ""
		}
		credential = p.extractor.IssuedCredential(text, html)
		return credential != ""
	})
	if credential == "" {
		p.logger.Warn("Generated credential never appeared.")
		return ""
	}

	p.logger.Info("App password issued.")
	if dismissed, _ := s.ClickByLabel(ctx, "", []string{"done"}, nil); dismissed {
		_ = s.Sleep(ctx, p.cfg.Enroll.ActionDelay)
	}
	return credential
}

func (p *AppPasswords) openPage(ctx context.Context) bool {
	s := p.surface

	loc, err := s.Location(ctx)
	if err != nil {
		return false
	}
	target := p.cfg.Provider.AccountBase + accountIndex(loc) + "/apppasswords"
	if err := s.Navigate(ctx, target); err != nil {
		p.logger.Warn("App passwords page unreachable.", zap.Error(err))
		return false
	}
	_ = s.Sleep(ctx, p.cfg.Enroll.PostLoginSettle)
	return true
}

// unavailable reports whether the page is telling us two-step verification
// has not propagated yet.
func (p *AppPasswords) unavailable(ctx context.Context) bool {
	text, err := p.surface.PageText(ctx)
	if err != nil {
		return true
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, "not available") ||
		strings.Contains(lower, "turn on 2-step verification")
}
