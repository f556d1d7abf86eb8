// File: internal/secrets/validate_test.go
package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/enroll-cli/internal/secrets"
)

func TestIsValidSharedSecret(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{
			name:  "grouped four by four",
			input: "abcd efgh jklm nopq",
			want:  true,
		},
		{
			name:  "grouped eight groups",
			input: "abcd efgh jklm nopq rstu vwxy zabc defg",
			want:  true,
		},
		{
			name:  "contiguous base32",
			input: "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP",
			want:  true,
		},
		{
			name:  "lowercase contiguous base32",
			input: "jbswy3dpehpk3pxp",
			want:  true,
		},
		{
			name:  "too short after stripping",
			input: "JBSWY3DP",
			want:  false,
		},
		{
			name:  "denylisted ui copy",
			input: "GOOGLEAUTHENTICATOR",
			want:  false,
		},
		{
			name:  "denylist word embedded",
			input: "ABCDVERIFYABCDABCD",
			want:  false,
		},
		{
			name:  "non base32 characters",
			input: "abcd 1289 ijkl mnop",
			want:  false,
		},
		{
			name:  "ungrouped over max length",
			input: "ABCDEFGHJKLMNPQRSTUVWXYZABCDEFGHJKLMNPQRSTUVWXYZABCDEFGHJKLMNPQRS",
			want:  false,
		},
		{
			name:  "empty",
			input: "",
			want:  false,
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, secrets.IsValidSharedSecret(tc.input))
		})
	}
}

func TestIsValidIssuedCredential(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  bool
	}{
		{
			name:  "canonical four groups",
			input: "abcd efgh ijkl mnop",
			want:  true,
		},
		{
			name:  "uppercase input is normalized",
			input: "ABCD EFGH IJKL MNOP",
			want:  true,
		},
		{
			name:  "hyphen separated",
			input: "abcd-efgh-ijkl-mnop",
			want:  false,
		},
		{
			name:  "short group",
			input: "abc defg hijk lmno",
			want:  false,
		},
		{
			name:  "digits not allowed",
			input: "abcd efg4 ijkl mnop",
			want:  false,
		},
		{
			name:  "too many groups",
			input: "abcd efgh ijkl mnop qrst",
			want:  false,
		},
		{
			name:  "empty",
			input: "",
			want:  false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, secrets.IsValidIssuedCredential(tc.input))
		})
	}
}
