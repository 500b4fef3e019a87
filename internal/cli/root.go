// Package cli implements the sharemeow command line: the HTTP server plus
// one-off commands for generating, signing and cache maintenance.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sharemeow/internal/config"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

// Exit codes.
const (
	ExitSuccess      = 0
	ExitUsageError   = 2
	ExitRuntimeError = 4
)

// flagConfig overrides SHAREMEOW_CONFIG when set.
var flagConfig string

var rootCmd = &cobra.Command{
	Use:           "sharemeow",
	Short:         "Render HTML templates to cached, shareable images",
	Long:          "sharemeow renders named HTML templates to JPEG, uploads them to object storage once per parameter set and hands back public URLs.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(signCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)

	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		if cmd != nil && isUsageError(err) {
			fmt.Fprintln(rootCmd.ErrOrStderr(), cmd.UsageString())
			return ExitUsageError
		}
		return ExitRuntimeError
	}
	return ExitSuccess
}

// usageError marks errors caused by bad arguments.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

// loadConfig loads configuration, honoring --config.
func loadConfig() (*config.Config, error) {
	if flagConfig != "" {
		return config.LoadFrom(flagConfig)
	}
	return config.Load()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print sharemeow version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sharemeow version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file (default $SHAREMEOW_CONFIG or sharemeow.yaml)")
}
