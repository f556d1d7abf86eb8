// File: internal/secrets/validate.go
package secrets

import (
	"regexp"
	"strings"
)

// Secret keys shorter than this (whitespace stripped) are never valid.
const minSecretLength = 16

// maxSecretLength bounds ungrouped keys; anything longer is UI noise.
const maxSecretLength = 64

// secretDenylist holds UI-chrome words that disqualify a candidate outright.
// These show up when a text scan accidentally captures button labels or page
// copy instead of the key itself.
var secretDenylist = []string{
	"GOOGLEAUTHENTICATOR", "AUTHENTICATOR", "SETUP", "SCAN",
	"CLICK", "BUTTON", "NEXT", "VERIFY", "CODE", "ENTER",
	"PRIVACY", "TERMS", "HELP", "ABOUT",
}

var (
	base32Charset = regexp.MustCompile(`^[A-Z2-7\s]+$`)
	// Grouped presentation: 3-7 groups of 4 followed by a final group of 4.
	groupedSecret = regexp.MustCompile(`^([A-Za-z0-9]{4}\s+){3,7}[A-Za-z0-9]{4}$`)
	base32Body    = regexp.MustCompile(`^[A-Za-z2-7]+$`)

	issuedCredential = regexp.MustCompile(`^[a-z]{4}\s[a-z]{4}\s[a-z]{4}\s[a-z]{4}$`)
)

// IsValidSharedSecret reports whether text is a plausible Base32 shared secret
// as rendered by the enrollment UI, either in the grouped "xxxx xxxx xxxx xxxx"
// presentation or as a contiguous Base32 string.
func IsValidSharedSecret(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	stripped := stripWhitespace(text)
	if len(stripped) < minSecretLength {
		return false
	}

	cleaned := strings.ToUpper(stripped)
	for _, word := range secretDenylist {
		if strings.Contains(cleaned, word) {
			return false
		}
	}

	if !base32Charset.MatchString(strings.ToUpper(text)) {
		return false
	}

	if groupedSecret.MatchString(text) {
		return true
	}

	return len(stripped) <= maxSecretLength && base32Body.MatchString(stripped)
}

// IsValidIssuedCredential reports whether text matches the issued-credential
// presentation: exactly four groups of four lowercase letters separated by
// single spaces.
func IsValidIssuedCredential(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if len(text) < 12 {
		return false
	}
	return issuedCredential.MatchString(text)
}

func stripWhitespace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
