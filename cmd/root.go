// -- cmd/root.go --
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/enroll-cli/internal/config"
	"github.com/xkilldash9x/enroll-cli/internal/observability"
)

var (
	cfgFile string

	// appConfig is the validated configuration, populated in PersistentPreRunE
	// before any command logic runs.
	appConfig *config.Config
)

// rootCmd represents the base command when called without any subcommands.
// Bare invocation drops into the interactive menu.
var rootCmd = &cobra.Command{
	Use:   "enroll-cli",
	Short: "Bulk two-factor enrollment and app-password provisioning.",
	// Version is dynamically set at build time. See cmd/version.go.
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// This function runs before any command, setting up config and logging.
		if err := initializeConfig(); err != nil {
			return err
		}

		cfg, err := config.NewConfigFromViper(viper.GetViper())
		if err != nil {
			// Initialize a fallback logger so the error still lands somewhere.
			observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "enroll-cli"})
			return err
		}
		appConfig = cfg

		observability.InitializeLogger(cfg.Logger)
		observability.GetLogger().Info("Starting enroll-cli", zap.String("version", Version))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newBulkCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initializeConfig reads in config file and ENV variables if set.
func initializeConfig() error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ENROLL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars.
	}
	return nil
}

// runInteractive is the menu shown on a bare invocation: pick a single
// enrollment, a bulk CSV run, or exit.
func runInteractive(cmd *cobra.Command) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	for {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "1) Enroll a single account")
		fmt.Fprintln(out, "2) Bulk enroll from CSV")
		fmt.Fprintln(out, "3) Exit")
		choice, err := prompt(reader, out, "Select an option: ")
		if err != nil {
			return nil
		}

		switch choice {
		case "1":
			email, err := prompt(reader, out, "Email: ")
			if err != nil {
				return nil
			}
			password, err := prompt(reader, out, "Password: ")
			if err != nil {
				return nil
			}
			if err := runSingle(cmd, email, password, appConfig.Enroll.CredentialLabel); err != nil {
				fmt.Fprintf(out, "Run failed: %v\n", err)
			}
		case "2":
			path, err := prompt(reader, out, "CSV file path: ")
			if err != nil {
				return nil
			}
			if err := runBulk(cmd, path, appConfig.Enroll.CredentialLabel); err != nil {
				fmt.Fprintf(out, "Bulk run failed: %v\n", err)
			}
		case "3", "q", "exit":
			return nil
		default:
			fmt.Fprintln(out, "Unrecognized option.")
		}
	}
}

func prompt(reader *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
