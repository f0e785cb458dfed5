package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avdops/azmon-reconciler/internal/app"
	apperrors "github.com/avdops/azmon-reconciler/internal/errors"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "azmon-reconciler",
	Short: "Ensures Azure Monitor resources exist for an Azure Virtual Desktop deployment.",
	Long: `azmon-reconciler reconciles a desired set of Azure Monitor resources
(scheduled query alerts, diagnostic settings, data collection rules and an
action group) against an Azure subscription, creating or updating whatever is
missing through the Azure CLI and reporting per-resource outcomes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		application, bootstrapErr := app.BuildApplicationFromViper(cmd.Context(), viper.GetViper())
		if bootstrapErr != nil {
			fmt.Fprintf(os.Stderr, "ERROR: Application initialization failed: %v\n", bootstrapErr)
			if appErr := (*apperrors.AppError)(nil); errors.As(bootstrapErr, &appErr) {
				if appErr.IsUserFacing {
					fmt.Fprintf(os.Stderr, "Error Details: %s\n", appErr.Message)
					if appErr.SuggestedAction != "" {
						fmt.Fprintf(os.Stderr, "Suggestion: %s\n", appErr.SuggestedAction)
					}
				}
			}
			return bootstrapErr
		}

		runErr := application.Run(cmd.Context())
		if runErr != nil {
			userMsg, suggestion, _ := apperrors.GetUserFacingMessage(runErr)
			fmt.Fprintf(os.Stderr, "ERROR: %s\n", userMsg)
			if suggestion != "" {
				fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
			}
			return runErr
		}

		return nil
	},
}

func Execute(ctx context.Context) {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.StringVarP(&cfgFile, "config", "c", "", "Configuration file path (default is .azmon-reconciler.yaml)")
	flags.String("subscription", "", "Azure subscription ID or name")
	flags.StringP("resource-group", "g", "", "Resource group containing the AVD deployment")
	flags.StringP("workspace", "w", "", "Log Analytics workspace name")
	flags.String("alert-email", "", "Notification address for the action group")
	flags.Int("severity", 4, "Minimum alert severity to provision (0 critical .. 4 verbose)")
	flags.StringP("output", "o", "azmon-results.csv", "CSV export path (empty disables export)")
	flags.Bool("dry-run", false, "Plan only: never issue a mutating call")
	flags.String("policy", "create-only", "Reconciliation policy: create-only or create-or-update")
	flags.Int("concurrency", 5, "Parallel reconciliation workers")
	flags.String("definitions", "", "YAML definitions file extending or replacing the built-in catalog")
	flags.String("log-level", "", "Override log level (debug, info, warn, error)")
	flags.String("log-format", "", "Override log format (text, json)")

	viper.BindPFlag("target.subscription", flags.Lookup("subscription"))
	viper.BindPFlag("target.resource_group", flags.Lookup("resource-group"))
	viper.BindPFlag("target.workspace", flags.Lookup("workspace"))
	viper.BindPFlag("target.alert_email", flags.Lookup("alert-email"))
	viper.BindPFlag("definitions.min_severity", flags.Lookup("severity"))
	viper.BindPFlag("definitions.file", flags.Lookup("definitions"))
	viper.BindPFlag("reporting.output_path", flags.Lookup("output"))
	viper.BindPFlag("settings.dry_run", flags.Lookup("dry-run"))
	viper.BindPFlag("settings.policy", flags.Lookup("policy"))
	viper.BindPFlag("settings.concurrency", flags.Lookup("concurrency"))
	viper.BindPFlag("settings.log_level", flags.Lookup("log-level"))
	viper.BindPFlag("settings.log_format", flags.Lookup("log-format"))

	viper.SetEnvPrefix("AZMON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName(".azmon-reconciler")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return apperrors.Wrap(err, apperrors.CodeConfigReadError, "failed to read config file")
		}
	}

	return nil
}
