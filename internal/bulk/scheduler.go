// File: internal/bulk/scheduler.go
package bulk

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/enroll-cli/internal/config"
	"github.com/xkilldash9x/enroll-cli/internal/enroll"
)

// Workflow is the per-account unit of work the scheduler fans out.
// *enroll.Runner satisfies it.
type Workflow interface {
	Run(ctx context.Context, account enroll.Account, label string) enroll.Result
}

// Partition splits accounts into consecutive batches of at most size entries.
// The final batch holds the remainder; order is preserved.
func Partition(accounts []enroll.Account, size int) [][]enroll.Account {
	if size <= 0 {
		size = 1
	}
	var batches [][]enroll.Account
	for start := 0; start < len(accounts); start += size {
		end := start + size
		if end > len(accounts) {
			end = len(accounts)
		}
		batches = append(batches, accounts[start:end])
	}
	return batches
}

// Scheduler runs a roster of accounts batch by batch. Within a batch every
// account gets its own goroutine with a staggered start; batches never
// overlap, and the inter-batch delay only ever separates two batches.
type Scheduler struct {
	cfg      *config.Config
	workflow Workflow
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewScheduler(cfg *config.Config, workflow Workflow, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		workflow: workflow,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Bulk.StartRate), 1),
		logger:   logger.Named("scheduler"),
	}
}

// Run processes every account and returns one result per account, aggregated
// at batch boundaries in batch order. A canceled context stops scheduling new
// work; accounts never started are reported as failed so the roster and the
// result set stay the same length.
func (s *Scheduler) Run(ctx context.Context, accounts []enroll.Account, label string) []enroll.Result {
	batches := Partition(accounts, s.cfg.Bulk.BatchSize)
	s.logger.Info("Bulk run starting.",
		zap.Int("accounts", len(accounts)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", s.cfg.Bulk.BatchSize),
	)

	results := make([]enroll.Result, 0, len(accounts))
	for i, batch := range batches {
		if i > 0 {
			select {
			case <-time.After(s.cfg.Bulk.BatchDelay):
			case <-ctx.Done():
			}
		}
		if ctx.Err() != nil {
			s.logger.Warn("Bulk run canceled; remaining accounts marked failed.",
				zap.Int("remaining", len(accounts)-len(results)))
			for _, account := range accounts[len(results):] {
				results = append(results, canceledResult(account))
			}
			return results
		}

		s.logger.Info("Batch starting.", zap.Int("batch", i+1), zap.Int("size", len(batch)))
		results = append(results, s.runBatch(ctx, batch, label)...)
	}
	return results
}

// runBatch fans one batch out, one goroutine per account, and blocks until
// every workflow in it has finished.
func (s *Scheduler) runBatch(ctx context.Context, batch []enroll.Account, label string) []enroll.Result {
	results := make([]enroll.Result, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	for i, account := range batch {
		offset := time.Duration(i) * s.cfg.Bulk.StaggerDelay
		g.Go(func() error {
			select {
			case <-time.After(offset):
			case <-gctx.Done():
				results[i] = canceledResult(account)
				return nil
			}
			if err := s.limiter.Wait(gctx); err != nil {
				results[i] = canceledResult(account)
				return nil
			}
			results[i] = s.workflow.Run(gctx, account, label)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func canceledResult(account enroll.Account) enroll.Result {
	return enroll.Result{
		Email:   account.Email,
		Status:  enroll.StatusFailed,
		Message: "run canceled before start",
	}
}
