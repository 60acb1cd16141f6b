// Package cli implements the confkit command line. The binary exists so
// harness fixtures can be exercised and debugged outside go test: it
// loads a fixture file describing synthetic paths with canned command
// outcomes, runs a configure script against the wrapped sandbox, and
// prints the resolved configuration.
package cli

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"confkit/pkg/logger"
)

// newViper builds the settings registry: flags win over CONFKIT_*
// environment variables, which win over defaults.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CONFKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "console")
	return v
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	v := newViper()
	var log zerolog.Logger

	rootCmd := &cobra.Command{
		Use:           "confkit",
		Short:         "confkit - deterministic harness for configure-script sandboxes",
		Long:          "confkit runs declarative configure scripts against a virtual\nfilesystem and a fake process layer described by a fixture file,\nso script behavior can be inspected without touching the real OS.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			log = logger.New(logger.Config{
				Level:  v.GetString("log-level"),
				Format: v.GetString("log-format"),
			}, os.Stderr)
			return nil
		},
	}

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")

	rootCmd.AddCommand(newRunCmd(v, &log))
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
