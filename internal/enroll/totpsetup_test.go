// File: internal/enroll/totpsetup_test.go
package enroll

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type codeFunc func(ctx context.Context, secret string) (string, error)

func (f codeFunc) Code(ctx context.Context, secret string) (string, error) {
	return f(ctx, secret)
}

func staticCode(code string) codeFunc {
	return func(context.Context, string) (string, error) { return code, nil }
}

func TestNavigateTo2FA(t *testing.T) {
	t.Run("keeps the account index", func(t *testing.T) {
		surface := &scriptedSurface{
			locations: []string{
				"https://myaccount.google.com/u/2/security",
				"https://myaccount.google.com/u/2/two-step-verification/authenticator",
			},
		}
		setup := NewTOTPSetup(surface, testConfig(), staticCode("123456"), zap.NewNop())

		assert.True(t, setup.NavigateTo2FA(context.Background()))
	})

	t.Run("fails when redirected away", func(t *testing.T) {
		surface := &scriptedSurface{
			locations: []string{
				"https://myaccount.google.com/u/0/security",
				"https://myaccount.google.com/u/0/security",
			},
		}
		setup := NewTOTPSetup(surface, testConfig(), staticCode("123456"), zap.NewNop())

		assert.False(t, setup.NavigateTo2FA(context.Background()))
	})
}

func TestSetupAuthenticator(t *testing.T) {
	t.Run("extracts secret and verifies code", func(t *testing.T) {
		surface := &scriptedSurface{
			pageText:     "Enter this setup key:\nabcd efgh jklm nopq",
			fillEmpty:    true,
			clickByLabel: func([]string) bool { return true },
		}
		setup := NewTOTPSetup(surface, testConfig(), staticCode("123456"), zap.NewNop())

		secret, code := setup.SetupAuthenticator(context.Background())

		assert.Equal(t, "abcd efgh jklm nopq", secret)
		assert.Equal(t, "123456", code)
		assert.Contains(t, surface.fills, "empty-input:123456")
	})

	t.Run("keeps the secret when verification fails", func(t *testing.T) {
		calls := 0
		surface := &scriptedSurface{
			pageText:     "Setup key: abcd efgh jklm nopq",
			fillEmpty:    false, // verification input never appears
			clickByLabel: func([]string) bool { return true },
		}
		codes := codeFunc(func(context.Context, string) (string, error) {
			calls++
			return fmt.Sprintf("%06d", calls), nil
		})
		setup := NewTOTPSetup(surface, testConfig(), codes, zap.NewNop())

		secret, _ := setup.SetupAuthenticator(context.Background())

		assert.Equal(t, "abcd efgh jklm nopq", secret)
	})

	t.Run("keeps the secret when code generation fails", func(t *testing.T) {
		surface := &scriptedSurface{
			pageText:     "Setup key: abcd efgh jklm nopq",
			clickByLabel: func([]string) bool { return true },
		}
		codes := codeFunc(func(context.Context, string) (string, error) {
			return "", fmt.Errorf("api down")
		})
		setup := NewTOTPSetup(surface, testConfig(), codes, zap.NewNop())

		secret, code := setup.SetupAuthenticator(context.Background())

		assert.Equal(t, "abcd efgh jklm nopq", secret)
		assert.Empty(t, code)
	})

	t.Run("no secret on the page", func(t *testing.T) {
		surface := &scriptedSurface{
			pageText:     "Set up your authenticator app",
			clickByLabel: func([]string) bool { return false },
		}
		setup := NewTOTPSetup(surface, testConfig(), staticCode("123456"), zap.NewNop())

		secret, code := setup.SetupAuthenticator(context.Background())

		assert.Empty(t, secret)
		assert.Empty(t, code)
	})
}

func TestActivate2FA(t *testing.T) {
	t.Run("already active", func(t *testing.T) {
		surface := &scriptedSurface{
			locations:    []string{"https://myaccount.google.com/u/0/security"},
			pageText:     "2-Step Verification is on",
			clickByLabel: func([]string) bool { return false },
		}
		setup := NewTOTPSetup(surface, testConfig(), staticCode("123456"), zap.NewNop())

		assert.True(t, setup.Activate2FA(context.Background()))
	})

	t.Run("clicks the toggle", func(t *testing.T) {
		surface := &scriptedSurface{
			locations:    []string{"https://myaccount.google.com/u/0/security"},
			pageText:     "Protect your account with 2-Step Verification",
			clickByLabel: func([]string) bool { return true },
		}
		setup := NewTOTPSetup(surface, testConfig(), staticCode("123456"), zap.NewNop())

		assert.True(t, setup.Activate2FA(context.Background()))
	})

	t.Run("toggle missing", func(t *testing.T) {
		surface := &scriptedSurface{
			locations:    []string{"https://myaccount.google.com/u/0/security"},
			pageText:     "Protect your account",
			clickByLabel: func([]string) bool { return false },
		}
		setup := NewTOTPSetup(surface, testConfig(), staticCode("123456"), zap.NewNop())

		assert.False(t, setup.Activate2FA(context.Background()))
	})
}

func TestAppPasswordIssue(t *testing.T) {
	t.Run("issues a credential", func(t *testing.T) {
		surface := &scriptedSurface{
			locations:    []string{"https://myaccount.google.com/u/0/apppasswords"},
			pageText:     "Your app password is\nwxyz abcd efgh ijkl",
			fillMatching: true,
			clickByLabel: func([]string) bool { return true },
		}
		p := NewAppPasswords(surface, testConfig(), zap.NewNop())

		got := p.Issue(context.Background(), "mail-client")

		assert.Equal(t, "wxyz abcd efgh ijkl", got)
		assert.Contains(t, surface.fills, "matching-input:mail-client")
	})

	t.Run("page never becomes available", func(t *testing.T) {
		surface := &scriptedSurface{
			locations:    []string{"https://myaccount.google.com/u/0/apppasswords"},
			pageText:     "App passwords are not available for this account",
			clickByLabel: func([]string) bool { return false },
		}
		p := NewAppPasswords(surface, testConfig(), zap.NewNop())

		assert.Empty(t, p.Issue(context.Background(), "mail-client"))
	})

	t.Run("name input missing", func(t *testing.T) {
		surface := &scriptedSurface{
			locations:    []string{"https://myaccount.google.com/u/0/apppasswords"},
			pageText:     "Create a new app password",
			fillMatching: false,
			clickByLabel: func([]string) bool { return false },
		}
		p := NewAppPasswords(surface, testConfig(), zap.NewNop())

		assert.Empty(t, p.Issue(context.Background(), "mail-client"))
	})
}
