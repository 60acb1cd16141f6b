package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// newRunCmd creates the run command.
func newRunCmd(v *viper.Viper, log *zerolog.Logger) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run <fixture.yaml>",
		Short: "Run a configure script against a fixture environment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := LoadFixture(args[0])
			if err != nil {
				return err
			}

			h, err := spec.Build(*log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			script := v.GetString("script")
			if script == "" {
				script = spec.Script
			}
			if script == "" {
				return fmt.Errorf("no configure script: pass --script or set script in the fixture")
			}
			src, err := os.ReadFile(script)
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			if err := h.RunScript(filepath.Base(script), string(src)); err != nil {
				return err
			}

			var result map[string]any
			if name := v.GetString("resolve"); name != "" {
				value, ok, err := h.ResolveOne(name)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no configuration value for %q", name)
				}
				result = map[string]any{name: value}
			} else {
				if err := h.Run(); err != nil {
					return err
				}
				result = h.Snapshot()
			}

			encoded, err := yaml.Marshal(result)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(encoded)
			return err
		},
	}

	runCmd.Flags().String("script", "", "configure script to evaluate (overrides the fixture)")
	runCmd.Flags().String("resolve", "", "resolve a single configuration value instead of the full run")
	return runCmd
}
