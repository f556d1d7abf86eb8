// -- cmd/components.go --
package cmd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/browser"
	"github.com/xkilldash9x/enroll-cli/internal/enroll"
	"github.com/xkilldash9x/enroll-cli/internal/observability"
	"github.com/xkilldash9x/enroll-cli/internal/totp"
)

// components holds the initialized services shared by the run and bulk
// commands.
type components struct {
	BrowserManager *browser.Manager
	Runner         *enroll.Runner
}

// Shutdown gracefully closes all components.
func (c *components) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if c.BrowserManager != nil {
		if err := c.BrowserManager.Shutdown(shutdownCtx); err != nil {
			observability.GetLogger().Warn("Error during browser manager shutdown", zap.Error(err))
		}
	}
}

// initializeComponents handles dependency injection for an enrollment run.
func initializeComponents(ctx context.Context, logger *zap.Logger) (*components, error) {
	manager, err := browser.NewManager(ctx, appConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser manager: %w", err)
	}

	sessions := enroll.SessionSourceFunc(func(ctx context.Context) (enroll.SurfaceCloser, error) {
		session, err := manager.NewSession(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	})

	generator := totp.NewGenerator(appConfig.TOTP, logger)
	runner := enroll.NewRunner(appConfig, sessions, generator, logger)

	return &components{BrowserManager: manager, Runner: runner}, nil
}
