// File: internal/enroll/types.go
package enroll

import (
	"regexp"
	"time"
)

// Account is one enrollment job's input. Immutable; only ever persisted again
// when the run fails and the pair is written back for retry.
type Account struct {
	Email    string
	Password string
}

// Status classifies a finished workflow. Every run terminates in exactly one
// of these; nothing "pending" is ever persisted.
type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

// Result is the outcome of one account's end-to-end workflow. Fields are
// populated monotonically as stages succeed and the struct is never mutated
// after Run returns it.
type Result struct {
	Email              string
	SecretKey          string
	TOTPCode           string
	AppPassword        string
	Status             Status
	Message            string
	Elapsed            time.Duration
	TwoFAActive        bool
	AppPasswordCreated bool
}

// Classify maps the three stage outcomes onto a final status and message.
//
//	secret + activated + issued  -> complete
//	secret + activated           -> partial (credential issuance failed)
//	secret                       -> partial (activation failed)
//	no secret                    -> failed
func Classify(secret string, activated, issued bool) (Status, string) {
	switch {
	case secret != "" && activated && issued:
		return StatusComplete, "Success"
	case secret != "" && activated:
		return StatusPartial, "2FA active, app password failed"
	case secret != "":
		return StatusPartial, "Authenticator setup, activation failed"
	default:
		return StatusFailed, "Setup failed"
	}
}

var accountIndexPattern = regexp.MustCompile(`/u/(\d+)/`)

// accountIndex extracts the session's account-index path segment from the
// current location. Every account-scoped navigation is prefixed with it.
// Defaults to "/u/0" when the location carries no index.
func accountIndex(location string) string {
	if m := accountIndexPattern.FindStringSubmatch(location); m != nil {
		return "/u/" + m[1]
	}
	return "/u/0"
}
