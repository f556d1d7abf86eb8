// File: internal/totp/totp.go
package totp

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Standard TOTP parameters (RFC 6238 defaults).
const (
	timeStep = 30 * time.Second
	digits   = 6
)

// Generator produces one-time codes for a Base32 shared secret. It prefers a
// remote token API and degrades to local generation when the API is
// unreachable or returns garbage.
type Generator struct {
	apiURL string
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// NewGenerator builds a Generator from configuration.
func NewGenerator(cfg config.TOTPConfig, logger *zap.Logger) *Generator {
	timeout := cfg.APITimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Generator{
		apiURL: strings.TrimRight(cfg.APIURL, "/"),
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("totp"),
		now:    time.Now,
	}
}

// tokenResponse mirrors the remote API's JSON payload.
type tokenResponse struct {
	Token string `json:"token"`
}

// Code returns a one-time code for the given shared secret. The remote API is
// tried first; any failure there falls through to local generation.
func (g *Generator) Code(ctx context.Context, secret string) (string, error) {
	clean := strings.ToUpper(stripSpaces(secret))

	if g.apiURL != "" {
		if code, err := g.fromAPI(ctx, clean); err == nil {
			return code, nil
		} else {
			g.logger.Debug("Remote token API unavailable, generating locally.", zap.Error(err))
		}
	}

	return GenerateLocal(clean, g.now())
}

func (g *Generator) fromAPI(ctx context.Context, cleanSecret string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"/"+cleanSecret, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build token request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tr.Token == "" {
		return "", fmt.Errorf("token API response missing token")
	}
	return tr.Token, nil
}

// GenerateLocal computes a standard TOTP code for the Base32 secret at the
// given instant. Exported so tests can pin the clock.
func GenerateLocal(secret string, at time.Time) (string, error) {
	clean := strings.ToUpper(stripSpaces(secret))
	// The rendered key omits padding; restore it for the decoder.
	if pad := len(clean) % 8; pad != 0 {
		clean += strings.Repeat("=", 8-pad)
	}

	key, err := base32.StdEncoding.DecodeString(clean)
	if err != nil {
		return "", fmt.Errorf("secret is not valid base32: %w", err)
	}

	counter := uint64(at.Unix() / int64(timeStep.Seconds()))
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226.
	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, value%mod), nil
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
