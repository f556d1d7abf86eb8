// File: internal/enroll/runner.go
package enroll

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
)

// Stages is the per-account workflow broken into its five operations, in the
// order Run invokes them. Implemented by liveStages over a real browser
// surface; tests substitute scripted outcomes.
type Stages interface {
	Login(ctx context.Context, email, password string) bool
	NavigateTo2FA(ctx context.Context) bool
	SetupAuthenticator(ctx context.Context) (secret, code string)
	Activate2FA(ctx context.Context) bool
	IssueCredential(ctx context.Context, label string) string
}

type liveStages struct {
	auth  *Authenticator
	totp  *TOTPSetup
	appPw *AppPasswords
}

func (l *liveStages) Login(ctx context.Context, email, password string) bool {
	return l.auth.Login(ctx, email, password)
}
func (l *liveStages) NavigateTo2FA(ctx context.Context) bool { return l.totp.NavigateTo2FA(ctx) }
func (l *liveStages) SetupAuthenticator(ctx context.Context) (string, string) {
	return l.totp.SetupAuthenticator(ctx)
}
func (l *liveStages) Activate2FA(ctx context.Context) bool { return l.totp.Activate2FA(ctx) }
func (l *liveStages) IssueCredential(ctx context.Context, label string) string {
	return l.appPw.Issue(ctx, label)
}

// StageFactory builds the stage set for one surface.
type StageFactory func(surface Surface) Stages

// Runner executes the full enrollment workflow for single accounts. It owns no
// browser state itself; every Run acquires a fresh surface and releases it
// before returning.
type Runner struct {
	cfg       *config.Config
	sessions  SessionSource
	codes     CodeSource
	newStages StageFactory
	logger    *zap.Logger
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithStageFactory substitutes the stage construction, primarily so tests can
// script stage outcomes without a browser.
func WithStageFactory(f StageFactory) RunnerOption {
	return func(r *Runner) { r.newStages = f }
}

func NewRunner(cfg *config.Config, sessions SessionSource, codes CodeSource, logger *zap.Logger, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:      cfg,
		sessions: sessions,
		codes:    codes,
		logger:   logger.Named("runner"),
	}
	r.newStages = func(surface Surface) Stages {
		return &liveStages{
			auth:  NewAuthenticator(surface, cfg, logger),
			totp:  NewTOTPSetup(surface, cfg, codes, logger),
			appPw: NewAppPasswords(surface, cfg, logger),
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives one account end to end and always returns a classified Result.
// Stage failures short-circuit the remaining stages but never escape as
// errors or panics; the elapsed time covers session acquisition through
// session release.
func (r *Runner) Run(ctx context.Context, account Account, label string) Result {
	start := time.Now()
	log := r.logger.With(zap.String("email", account.Email))
	log.Info("Starting enrollment workflow.")

	res := Result{Email: account.Email}

	var secret, code, credential string
	var activated bool
	abortMessage := r.execute(ctx, account, label, &secret, &code, &activated, &credential)

	res.SecretKey = secret
	res.TOTPCode = code
	res.AppPassword = credential
	res.TwoFAActive = activated
	res.AppPasswordCreated = credential != ""

	status, message := Classify(secret, activated, credential != "")
	res.Status = status
	if status == StatusFailed && abortMessage != "" {
		res.Message = abortMessage
	} else {
		res.Message = message
	}
	res.Elapsed = time.Since(start)

	log.Info("Enrollment workflow finished.",
		zap.String("status", string(res.Status)),
		zap.String("message", res.Message),
		zap.Duration("elapsed", res.Elapsed),
	)
	return res
}

// execute runs the stages over a fresh surface, returning a message for the
// abort point when the run never produced a secret. Panics from the automation
// layer are contained here so one account cannot take down a batch.
func (r *Runner) execute(ctx context.Context, account Account, label string, secret, code *string, activated *bool, credential *string) (abortMessage string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Workflow panicked.",
				zap.String("email", account.Email), zap.Any("panic", rec))
			abortMessage = fmt.Sprintf("workflow fault: %v", rec)
		}
	}()

	surface, err := r.sessions.NewSurface(ctx)
	if err != nil {
		r.logger.Error("Browser session unavailable.", zap.Error(err))
		return "browser session unavailable: " + err.Error()
	}
	defer surface.Close()

	st := r.newStages(surface)

	if !st.Login(ctx, account.Email, account.Password) {
		return "Login failed"
	}
	if !st.NavigateTo2FA(ctx) {
		return "Failed to open 2FA settings"
	}
	*secret, *code = st.SetupAuthenticator(ctx)
	if *secret == "" {
		return "Failed to configure authenticator"
	}
	*activated = st.Activate2FA(ctx)
	if label != "" {
		*credential = st.IssueCredential(ctx, label)
	}
	return ""
}
