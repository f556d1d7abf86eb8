// -- cmd/run.go --
package cmd

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/bulk"
	"github.com/xkilldash9x/enroll-cli/internal/enroll"
	"github.com/xkilldash9x/enroll-cli/internal/observability"
)

// newRunCmd creates and configures the `run` command for a single account.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Enroll a single account and issue an app password",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line flags override
			// values from the config file and environment.
			if err := viper.BindPFlag("enroll.credential_label", cmd.Flags().Lookup("label")); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")

			reader := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()
			var err error
			if email == "" {
				if email, err = prompt(reader, out, "Email: "); err != nil {
					return fmt.Errorf("no email provided")
				}
			}
			if password == "" {
				if password, err = prompt(reader, out, "Password: "); err != nil {
					return fmt.Errorf("no password provided")
				}
			}
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}

			return runSingle(cmd, email, password, viper.GetString("enroll.credential_label"))
		},
	}

	runCmd.Flags().StringP("email", "e", "", "Account email address")
	runCmd.Flags().StringP("password", "p", "", "Account password")
	runCmd.Flags().StringP("label", "l", "", "Name for the issued app password (overrides config/env)")

	return runCmd
}

// runSingle drives one account end to end and appends the outcome to the
// rolling results file.
func runSingle(cmd *cobra.Command, email, password, label string) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	components, err := initializeComponents(ctx, logger)
	if err != nil {
		return err
	}
	defer components.Shutdown()

	account := enroll.Account{Email: email, Password: password}
	res := components.Runner.Run(ctx, account, label)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s: %s (%s)\n", res.Email, res.Status, res.Message)
	if res.SecretKey != "" {
		fmt.Fprintf(out, "  secret:       %s\n", res.SecretKey)
	}
	if res.AppPassword != "" {
		fmt.Fprintf(out, "  app password: %s\n", res.AppPassword)
	}

	// Partial outcomes carry an extracted secret that must survive the run.
	if err := bulk.AppendResult(appConfig.Output.Dir, res); err != nil {
		logger.Warn("Failed to append result file.", zap.Error(err))
	}
	return nil
}
