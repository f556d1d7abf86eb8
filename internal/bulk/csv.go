// File: internal/bulk/csv.go
package bulk

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/enroll"
)

// LoadAccounts reads the credential roster from a CSV file. The header row is
// matched case-insensitively for "email" and "password" columns; when no
// header is present the first two columns are used. Rows missing either value
// are skipped, not fatal.
func LoadAccounts(path string, logger *zap.Logger) ([]enroll.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()

	accounts, skipped, err := parseAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if skipped > 0 {
		logger.Warn("Skipped incomplete account rows.",
			zap.String("file", path), zap.Int("skipped", skipped))
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no usable accounts in %s", path)
	}
	logger.Info("Accounts loaded.", zap.String("file", path), zap.Int("count", len(accounts)))
	return accounts, nil
}

func parseAccounts(r io.Reader) ([]enroll.Account, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, err
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	emailCol, passCol := 0, 1
	start := 0
	if hdrEmail, hdrPass, ok := headerColumns(records[0]); ok {
		emailCol, passCol = hdrEmail, hdrPass
		start = 1
	}

	var accounts []enroll.Account
	skipped := 0
	for _, rec := range records[start:] {
		if len(rec) <= emailCol || len(rec) <= passCol {
			skipped++
			continue
		}
		email := strings.TrimSpace(rec[emailCol])
		password := strings.TrimSpace(rec[passCol])
		if email == "" || password == "" {
			skipped++
			continue
		}
		accounts = append(accounts, enroll.Account{Email: email, Password: password})
	}
	return accounts, skipped, nil
}

func headerColumns(row []string) (emailCol, passCol int, ok bool) {
	emailCol, passCol = -1, -1
	for i, field := range row {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "email", "e-mail", "username":
			emailCol = i
		case "password", "pass":
			passCol = i
		}
	}
	return emailCol, passCol, emailCol >= 0 && passCol >= 0
}
