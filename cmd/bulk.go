// -- cmd/bulk.go --
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/enroll-cli/internal/bulk"
	"github.com/xkilldash9x/enroll-cli/internal/observability"
)

// newBulkCmd creates and configures the `bulk` command.
func newBulkCmd() *cobra.Command {
	bulkCmd := &cobra.Command{
		Use:   "bulk [accounts.csv]",
		Short: "Enroll every account in a CSV roster, batch by batch",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("enroll.credential_label", cmd.Flags().Lookup("label")); err != nil {
				return err
			}
			if err := viper.BindPFlag("bulk.batch_size", cmd.Flags().Lookup("batch-size")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Re-resolve sizes after flag binding so overrides land.
			appConfig.Bulk.BatchSize = viper.GetInt("bulk.batch_size")
			if appConfig.Bulk.BatchSize <= 0 {
				return fmt.Errorf("batch size must be positive")
			}
			return runBulk(cmd, args[0], viper.GetString("enroll.credential_label"))
		},
	}

	bulkCmd.Flags().StringP("label", "l", "", "Name for issued app passwords (overrides config/env)")
	bulkCmd.Flags().IntP("batch-size", "b", 0, "Concurrent enrollments per batch (overrides config/env)")

	return bulkCmd
}

// runBulk loads the roster, runs the scheduler over it, and writes the
// bucketed report files.
func runBulk(cmd *cobra.Command, path, label string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	accounts, err := bulk.LoadAccounts(path, logger)
	if err != nil {
		return err
	}

	components, err := initializeComponents(ctx, logger)
	if err != nil {
		return err
	}
	defer components.Shutdown()

	scheduler := bulk.NewScheduler(appConfig, components.Runner, logger)
	results := scheduler.Run(ctx, accounts, label)

	report := bulk.Summarize(results)
	if err := report.Write(appConfig.Output.Dir, accounts, logger); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nProcessed %d accounts: %d complete, %d partial, %d failed\n",
		len(results), len(report.Complete), len(report.Partial), len(report.Failed))
	if report.ResultsFile != "" {
		fmt.Fprintf(out, "  complete: %s\n", report.ResultsFile)
	}
	if report.PartialFile != "" {
		fmt.Fprintf(out, "  partial:  %s\n", report.PartialFile)
	}
	if report.FailedFile != "" {
		fmt.Fprintf(out, "  retry:    %s\n", report.FailedFile)
	}
	return nil
}
