// File: internal/enroll/totpsetup.go
package enroll

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
	"github.com/xkilldash9x/enroll-cli/internal/secrets"
)

// Labels walked during authenticator enrollment. All matched case-insensitively
// as substrings of the rendered control text.
var (
	setupTriggerLabels = []string{
		"set up authenticator", "set up", "get started", "add authenticator",
	}
	manualEntryLabels = []string{
		"can't scan", "cant scan", "unable to scan", "enter manually", "enter a setup key",
	}
	advanceLabels = []string{"next"}
	submitLabels  = []string{"verify", "submit", "done", "confirm"}
	activateOn    = []string{"turn on 2-step verification", "turn on"}
)

// TOTPSetup drives the authenticator enrollment pages: opening the 2FA
// settings, revealing and extracting the shared secret, verifying a generated
// code, and flipping the account-wide two-step toggle.
type TOTPSetup struct {
	surface   Surface
	cfg       *config.Config
	extractor *secrets.Extractor
	codes     CodeSource
	logger    *zap.Logger
}

func NewTOTPSetup(surface Surface, cfg *config.Config, codes CodeSource, logger *zap.Logger) *TOTPSetup {
	return &TOTPSetup{
		surface:   surface,
		cfg:       cfg,
		extractor: secrets.NewExtractor(logger),
		codes:     codes,
		logger:    logger.Named("totp-setup"),
	}
}

// NavigateTo2FA opens the authenticator settings page under the session's
// account index and reports whether it loaded.
func (t *TOTPSetup) NavigateTo2FA(ctx context.Context) bool {
	s := t.surface

	loc, err := s.Location(ctx)
	if err != nil {
		t.logger.Warn("Failed to read location before 2FA navigation.", zap.Error(err))
		return false
	}
	target := t.cfg.Provider.AccountBase + accountIndex(loc) + "/two-step-verification/authenticator"
	if err := s.Navigate(ctx, target); err != nil {
		t.logger.Warn("2FA settings page unreachable.", zap.Error(err))
		return false
	}
	_ = s.Sleep(ctx, t.cfg.Enroll.PostLoginSettle)

	loc, err = s.Location(ctx)
	if err != nil {
		return false
	}
	ok := strings.Contains(loc, "authenticator") || strings.Contains(loc, "two-step-verification")
	if !ok {
		t.logger.Warn("Redirected away from 2FA settings.", zap.String("location", loc))
	}
	return ok
}

// SetupAuthenticator walks the enrollment dialog and returns the extracted
// shared secret plus the last code submitted for verification. The secret is
// returned even when verification fails; it was issued the moment the dialog
// revealed it and the caller must persist it.
func (t *TOTPSetup) SetupAuthenticator(ctx context.Context) (secret, code string) {
	s := t.surface

	_ = s.Sleep(ctx, t.cfg.Enroll.ActionDelay)

	clicked, err := s.ClickByLabel(ctx, "", setupTriggerLabels, navExclusions)
	if err != nil {
		t.logger.Debug("Setup trigger probe failed.", zap.Error(err))
	}
	if clicked {
		_ = s.Sleep(ctx, t.cfg.Enroll.PostLoginSettle)
	}

	// The dialog opens on a QR code; switch it to the text key.
	if text, err := s.PageText(ctx); err == nil {
		lower := strings.ToLower(text)
		if strings.Contains(lower, "scan") || strings.Contains(lower, "qr") {
			if clicked, err := s.ClickByLabel(ctx, "", manualEntryLabels, nil); err == nil && clicked {
				_ = s.Sleep(ctx, t.cfg.Enroll.ModalWait)
			}
		}
	}

	secret = t.extractSecret(ctx)
	if secret == "" {
		t.logger.Warn("No shared secret found on the enrollment dialog.")
		return "", ""
	}
	t.logger.Info("Shared secret extracted.")

	t.advancePastKey(ctx)
	_ = s.Sleep(ctx, t.cfg.Enroll.PostLoginSettle)

	code, err = t.codes.Code(ctx, secret)
	if err != nil {
		t.logger.Warn("Code generation failed; secret kept.", zap.Error(err))
		return secret, ""
	}

	if t.VerifyCode(ctx, code) {
		return secret, code
	}

	// Codes roll every 30 seconds; one retry with a fresh code covers the
	// window-boundary case.
	_ = s.Sleep(ctx, time.Second)
	fresh, err := t.codes.Code(ctx, secret)
	if err == nil && fresh != code {
		if t.VerifyCode(ctx, fresh) {
			return secret, fresh
		}
		code = fresh
	}
	t.logger.Warn("Code verification did not confirm.")
	return secret, code
}

// extractSecret polls the page snapshots until a plausible shared secret
// appears or the attempt budget runs out.
func (t *TOTPSetup) extractSecret(ctx context.Context) string {
	var secret string
	retryUntil(ctx, t.cfg.Enroll.ExtractAttempts, time.Second, func() bool {
		text, err := t.surface.PageText(ctx)
		if err != nil {
			t.logger.Debug("Page text snapshot failed.", zap.Error(err))
			return false
		}
		html, err := t.surface.PageHTML(ctx)
		if err != nil {
			html = ""
		}
		secret = t.extractor.SharedSecret(text, html)
		return secret != ""
	})
	return secret
}

// advancePastKey dismisses the setup-key panel so the verification input
// appears. Prefers a dialog-scoped Next, then a page-wide one, then Enter.
func (t *TOTPSetup) advancePastKey(ctx context.Context) {
	s := t.surface

	clicked, err := s.ClickByLabel(ctx, `[role="dialog"]`, advanceLabels, navExclusions)
	if err != nil {
		t.logger.Debug("Dialog-scoped advance failed.", zap.Error(err))
	}
	if !clicked {
		clicked, _ = s.ClickByLabel(ctx, "", advanceLabels, navExclusions)
	}
	if !clicked {
		if err := s.PressEnter(ctx); err != nil {
			t.logger.Debug("Enter fallback failed.", zap.Error(err))
		}
	}
	_ = s.Sleep(ctx, time.Second)
}

// VerifyCode types the code into the first empty input and submits it.
func (t *TOTPSetup) VerifyCode(ctx context.Context, code string) bool {
	if code == "" {
		return false
	}
	s := t.surface

	filled, err := s.FillFirstEmptyInput(ctx, code)
	if err != nil {
		t.logger.Debug("Verification input probe failed.", zap.Error(err))
	}
	if !filled {
		t.logger.Warn("No verification input found.")
		return false
	}
	_ = s.Sleep(ctx, t.cfg.Enroll.ActionDelay)

	clicked, err := s.ClickByLabel(ctx, "", submitLabels, navExclusions)
	if err != nil {
		t.logger.Debug("Verification submit probe failed.", zap.Error(err))
	}
	if clicked {
		_ = s.Sleep(ctx, t.cfg.Enroll.ModalWait)
	}
	return clicked
}

// Activate2FA flips the account-wide two-step toggle. Returns true when the
// settings page already reports the feature on or the toggle was clicked.
func (t *TOTPSetup) Activate2FA(ctx context.Context) bool {
	s := t.surface

	loc, err := s.Location(ctx)
	if err != nil {
		return false
	}
	target := t.cfg.Provider.AccountBase + accountIndex(loc) + "/signinoptions/twosv"
	if err := s.Navigate(ctx, target); err != nil {
		t.logger.Warn("Two-step settings page unreachable.", zap.Error(err))
		return false
	}
	_ = s.Sleep(ctx, t.cfg.Enroll.PostLoginSettle)

	if text, err := s.PageText(ctx); err == nil {
		if strings.Contains(strings.ToLower(text), "is on") {
			t.logger.Info("Two-step verification already active.")
			return true
		}
	}

	clicked, err := s.ClickByLabel(ctx, "", activateOn, navExclusions)
	if err != nil {
		t.logger.Debug("Activation toggle probe failed.", zap.Error(err))
	}
	if !clicked {
		t.logger.Warn("Activation toggle not found.")
		return false
	}
	_ = s.Sleep(ctx, t.cfg.Enroll.PostLoginSettle)

	// A confirmation dialog may follow the toggle.
	if confirmed, _ := s.ClickByLabel(ctx, "", []string{"turn on"}, navExclusions); confirmed {
		_ = s.Sleep(ctx, t.cfg.Enroll.PostLoginSettle)
	}
	return true
}
