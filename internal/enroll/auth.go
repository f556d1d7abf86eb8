// File: internal/enroll/auth.go
package enroll

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
)

// challengeMarkers are URL fragments that indicate an interstitial page has
// been inserted between the password form and the account surface.
var challengeMarkers = []string{"speedbump", "challenge", "gaplustos"}

// affirmativeLabels are the accept/continue labels interstitials use, in the
// locales the flow has been observed in. Matched case-insensitively.
var affirmativeLabels = []string{
	"i agree", "accept", "continue", "next", "get started",
	"skip", "not now", "remind me later",
	"weiter", "akzeptieren", "verstanden",
}

// navExclusions are label words a challenge click must never match; clicking
// them walks the flow backwards.
var navExclusions = []string{"back", "cancel", "close"}

// Authenticator signs an account into the identity surface and clears any
// interstitial challenge pages that follow the password form.
type Authenticator struct {
	surface     Surface
	cfg         *config.Config
	accountHost string
	logger      *zap.Logger
}

func NewAuthenticator(surface Surface, cfg *config.Config, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		surface:     surface,
		cfg:         cfg,
		accountHost: hostOf(cfg.Provider.AccountBase),
		logger:      logger.Named("auth"),
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// Login walks the two-step sign-in form and reports whether the session landed
// on the account surface. Any error along the way degrades to false; the
// caller classifies the whole run from stage outcomes, not from errors.
func (a *Authenticator) Login(ctx context.Context, email, password string) bool {
	s := a.surface

	if err := s.Navigate(ctx, a.cfg.Provider.SignInURL); err != nil {
		a.logger.Warn("Sign-in page unreachable.", zap.Error(err))
		return false
	}

	if err := s.WaitVisible(ctx, "#identifierId"); err != nil {
		a.logger.Warn("Identifier field never appeared.", zap.Error(err))
		return false
	}
	if err := s.Fill(ctx, "#identifierId", email); err != nil {
		a.logger.Warn("Failed to enter identifier.", zap.Error(err))
		return false
	}
	_ = s.Sleep(ctx, a.cfg.Enroll.ActionDelay)
	if err := s.Click(ctx, "#identifierNext"); err != nil {
		a.logger.Warn("Identifier submit failed.", zap.Error(err))
		return false
	}

	if err := s.WaitVisible(ctx, `input[type="password"]`); err != nil {
		a.logger.Warn("Password field never appeared.", zap.Error(err))
		return false
	}
	_ = s.Sleep(ctx, a.cfg.Enroll.ActionDelay)
	if err := s.Fill(ctx, `input[type="password"]`, password); err != nil {
		a.logger.Warn("Failed to enter password.", zap.Error(err))
		return false
	}
	_ = s.Sleep(ctx, a.cfg.Enroll.ActionDelay)
	if err := s.Click(ctx, "#passwordNext"); err != nil {
		a.logger.Warn("Password submit failed.", zap.Error(err))
		return false
	}

	_ = s.Sleep(ctx, a.cfg.Enroll.PostLoginSettle)

	loc, err := s.Location(ctx)
	if err != nil {
		a.logger.Warn("Failed to read post-login location.", zap.Error(err))
		return false
	}
	if isChallenge(loc) {
		a.logger.Info("Interstitial challenge detected.", zap.String("location", loc))
		if !a.resolveChallenge(ctx) {
			a.logger.Warn("Could not clear interstitial challenge.")
			return false
		}
		loc, err = s.Location(ctx)
		if err != nil {
			return false
		}
	}

	ok := strings.Contains(loc, a.accountHost)
	if !ok {
		a.logger.Warn("Login did not reach the account surface.", zap.String("location", loc))
	}
	return ok
}

func isChallenge(location string) bool {
	lower := strings.ToLower(location)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// resolveChallenge tries a bounded number of rounds to click through the
// interstitial. Each round prefers a recognized affirmative label and falls
// back to any visible button that is not a backwards navigation.
func (a *Authenticator) resolveChallenge(ctx context.Context) bool {
	s := a.surface
	rounds := a.cfg.Enroll.ChallengeRounds
	if rounds <= 0 {
		rounds = 1
	}

	return retryUntil(ctx, rounds, a.cfg.Enroll.ActionDelay, func() bool {
		clicked, err := s.ClickByLabel(ctx, "", affirmativeLabels, navExclusions)
		if err != nil {
			a.logger.Debug("Challenge probe failed.", zap.Error(err))
		}
		if !clicked {
			clicked, err = s.ClickAnyButtonExcept(ctx, navExclusions)
			if err != nil {
				a.logger.Debug("Challenge fallback probe failed.", zap.Error(err))
			}
		}
		if !clicked {
			return false
		}
		_ = s.Sleep(ctx, a.cfg.Enroll.ModalWait)

		loc, err := s.Location(ctx)
		if err != nil {
			return false
		}
		return !isChallenge(loc)
	})
}
