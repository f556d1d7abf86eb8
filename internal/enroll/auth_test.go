// File: internal/enroll/auth_test.go
package enroll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
)

// scriptedSurface drives a stage through a canned page sequence. Locations are
// consumed in order; the final entry repeats.
type scriptedSurface struct {
	stubSurface

	locations     []string
	locationCalls int

	clickByLabel func(labels []string) bool
	anyButton    bool

	pageText     string
	pageHTML     string
	fillEmpty    bool
	fillMatching bool

	fills  []string
	clicks []string
}

func (s *scriptedSurface) Location(context.Context) (string, error) {
	loc := ""
	if len(s.locations) > 0 {
		i := s.locationCalls
		if i >= len(s.locations) {
			i = len(s.locations) - 1
		}
		loc = s.locations[i]
	}
	s.locationCalls++
	return loc, nil
}

func (s *scriptedSurface) Fill(_ context.Context, selector, value string) error {
	s.fills = append(s.fills, selector)
	return nil
}

func (s *scriptedSurface) Click(_ context.Context, selector string) error {
	s.clicks = append(s.clicks, selector)
	return nil
}

func (s *scriptedSurface) ClickByLabel(_ context.Context, _ string, labels, _ []string) (bool, error) {
	if s.clickByLabel == nil {
		return false, nil
	}
	return s.clickByLabel(labels), nil
}

func (s *scriptedSurface) ClickAnyButtonExcept(context.Context, []string) (bool, error) {
	return s.anyButton, nil
}

func (s *scriptedSurface) PageText(context.Context) (string, error) { return s.pageText, nil }
func (s *scriptedSurface) PageHTML(context.Context) (string, error) { return s.pageHTML, nil }

func (s *scriptedSurface) FillFirstEmptyInput(_ context.Context, value string) (bool, error) {
	if s.fillEmpty {
		s.fills = append(s.fills, "empty-input:"+value)
	}
	return s.fillEmpty, nil
}

func (s *scriptedSurface) FillFirstMatchingInput(_ context.Context, _ []string, value string) (bool, error) {
	if s.fillMatching {
		s.fills = append(s.fills, "matching-input:"+value)
	}
	return s.fillMatching, nil
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	// Collapse the human-pacing delays so tests run instantly.
	cfg.Enroll.ActionDelay = 0
	cfg.Enroll.PostLoginSettle = 0
	cfg.Enroll.ModalWait = 0
	cfg.Enroll.VerifyTimeout = time.Second
	cfg.Enroll.ExtractAttempts = 1
	return cfg
}

func TestLoginReachesAccountSurface(t *testing.T) {
	surface := &scriptedSurface{
		locations: []string{"https://myaccount.google.com/u/0/"},
	}
	auth := NewAuthenticator(surface, testConfig(), zap.NewNop())

	ok := auth.Login(context.Background(), "a@example.com", "pw")

	assert.True(t, ok)
	assert.Equal(t, []string{"#identifierId", `input[type="password"]`}, surface.fills)
	assert.Equal(t, []string{"#identifierNext", "#passwordNext"}, surface.clicks)
}

func TestLoginFailsWhenStuckOnSignIn(t *testing.T) {
	surface := &scriptedSurface{
		locations: []string{"https://accounts.google.com/signin/rejected"},
	}
	auth := NewAuthenticator(surface, testConfig(), zap.NewNop())

	assert.False(t, auth.Login(context.Background(), "a@example.com", "pw"))
}

func TestLoginClearsChallengeByLabel(t *testing.T) {
	surface := &scriptedSurface{
		locations: []string{
			"https://accounts.google.com/speedbump/gaplustos",
			"https://myaccount.google.com/u/0/",
			"https://myaccount.google.com/u/0/",
		},
		clickByLabel: func(labels []string) bool {
			return assert.ObjectsAreEqual(affirmativeLabels, labels)
		},
	}
	auth := NewAuthenticator(surface, testConfig(), zap.NewNop())

	assert.True(t, auth.Login(context.Background(), "a@example.com", "pw"))
}

func TestLoginChallengeFallsBackToAnyButton(t *testing.T) {
	surface := &scriptedSurface{
		locations: []string{
			"https://accounts.google.com/signin/challenge",
			"https://myaccount.google.com/u/0/",
			"https://myaccount.google.com/u/0/",
		},
		anyButton: true,
	}
	auth := NewAuthenticator(surface, testConfig(), zap.NewNop())

	assert.True(t, auth.Login(context.Background(), "a@example.com", "pw"))
}

func TestLoginFailsWhenChallengeNeverClears(t *testing.T) {
	surface := &scriptedSurface{
		locations: []string{"https://accounts.google.com/signin/challenge"},
		clickByLabel: func([]string) bool {
			return true
		},
	}
	auth := NewAuthenticator(surface, testConfig(), zap.NewNop())

	assert.False(t, auth.Login(context.Background(), "a@example.com", "pw"))
}
