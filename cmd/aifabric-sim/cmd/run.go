package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aifabric/netsim/internal/simconfig"
	"github.com/aifabric/netsim/internal/simlog"
)

// runCmd wires the "run" subcommand: load, validate, simulate, emit.
// Grounded on armadactl's submitCmd shape (flag-bound RunE reading one
// file and reporting through the configured logger) translated from
// cobra's older var-based command style into RunE, matching this
// module's own root.go constructor convention.
func runCmd() *cobra.Command {
	var configPath string
	var outputPath string
	var logLevel string
	var jsonLogs bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation from a YAML configuration and print its metrics record.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := simlog.Configure(logLevel, jsonLogs); err != nil {
				return err
			}

			cfg, err := simconfig.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			rec, err := Simulate(cfg)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding metrics: %w", err)
			}

			if outputPath == "" || outputPath == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				return err
			}
			return os.WriteFile(outputPath, append(encoded, '\n'), 0o644)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to the run configuration YAML file (required)")
	cmd.Flags().StringVar(&outputPath, "output", "-", "path to write the metrics record JSON, or - for stdout")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "emit structured JSON logs instead of text")
	cmd.MarkFlagRequired("config")

	return cmd
}
