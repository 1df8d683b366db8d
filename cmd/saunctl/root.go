package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"saun/internal/infra"
)

type rootOptions struct {
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "saunctl",
		Short: "Operate the saun room coach backend",
		Long: `saunctl runs maintenance tasks against the configured database,
blob storage and shopping search provider. Configuration is read from the
same environment variables (and .env file) as the api and worker binaries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case formatTable, formatJSON, formatYAML:
				return nil
			default:
				return fmt.Errorf("unsupported output %q (table, json, yaml)", opts.output)
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", formatTable, "Output format (table, json, yaml)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(newMigrateCmd(opts), newSearchCmd(opts), newSessionCmd(opts))
	return cmd
}

// loadConfig reads the environment and builds a stderr logger for the CLI.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*infra.Config, zerolog.Logger, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	level := zerolog.WarnLevel
	if o.verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Str("cmd", cmd.Name()).Logger()
	return cfg, logger, nil
}
