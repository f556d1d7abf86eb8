// File: internal/bulk/report.go
package bulk

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/enroll"
)

// Report aggregates a finished run and remembers where each bucket was
// written.
type Report struct {
	Complete []enroll.Result
	Partial  []enroll.Result
	Failed   []enroll.Result

	ResultsFile string
	PartialFile string
	FailedFile  string
}

// Summarize buckets results by status. Bucket order follows result order.
func Summarize(results []enroll.Result) *Report {
	r := &Report{}
	for _, res := range results {
		switch res.Status {
		case enroll.StatusComplete:
			r.Complete = append(r.Complete, res)
		case enroll.StatusPartial:
			r.Partial = append(r.Partial, res)
		default:
			r.Failed = append(r.Failed, res)
		}
	}
	return r
}

// Write persists the run's buckets under dir. Fully enrolled and partially
// enrolled accounts land in pipe-delimited text files; failed accounts go to
// a CSV shaped exactly like the input roster so it can be fed straight back
// in. Empty buckets produce no file.
func (r *Report) Write(dir string, roster []enroll.Account, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	if len(r.Complete) > 0 {
		path := filepath.Join(dir, "results_"+stamp+".txt")
		if err := writeLines(path, r.Complete, completeLine); err != nil {
			return err
		}
		r.ResultsFile = path
		logger.Info("Completed enrollments written.", zap.String("file", path), zap.Int("count", len(r.Complete)))
	}

	if len(r.Partial) > 0 {
		path := filepath.Join(dir, "partial_"+stamp+".txt")
		if err := writeLines(path, r.Partial, partialLine); err != nil {
			return err
		}
		r.PartialFile = path
		logger.Info("Partial enrollments written.", zap.String("file", path), zap.Int("count", len(r.Partial)))
	}

	if len(r.Failed) > 0 {
		path := filepath.Join(dir, "failed_"+stamp+".csv")
		if err := writeFailedCSV(path, r.Failed, roster); err != nil {
			return err
		}
		r.FailedFile = path
		logger.Info("Failed accounts written for retry.", zap.String("file", path), zap.Int("count", len(r.Failed)))
	}
	return nil
}

func completeLine(res enroll.Result) string {
	return fmt.Sprintf("%s | %s | %s", res.Email, res.AppPassword, res.SecretKey)
}

func partialLine(res enroll.Result) string {
	return fmt.Sprintf("%s | PARTIAL | %s", res.Email, res.SecretKey)
}

func writeLines(path string, results []enroll.Result, line func(enroll.Result) string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	for _, res := range results {
		if _, err := fmt.Fprintln(f, line(res)); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	return f.Close()
}

// writeFailedCSV writes the failed accounts with their passwords restored
// from the input roster.
func writeFailedCSV(path string, failed []enroll.Result, roster []enroll.Account) error {
	passwords := make(map[string]string, len(roster))
	for _, account := range roster {
		passwords[account.Email] = account.Password
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"email", "password"}); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, res := range failed {
		if err := w.Write([]string{res.Email, passwords[res.Email]}); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return f.Close()
}

// AppendResult appends one enrollment outcome to the rolling results file.
// Used by single-account runs so repeated invocations accumulate in place.
// Complete runs record the credential; partial runs keep their extracted
// secret under the PARTIAL marker. Failed runs have nothing worth keeping.
func AppendResult(dir string, res enroll.Result) error {
	var line string
	switch res.Status {
	case enroll.StatusComplete:
		line = completeLine(res)
	case enroll.StatusPartial:
		line = partialLine(res)
	default:
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, "results.txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}
