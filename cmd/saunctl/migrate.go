package main

import (
	"github.com/spf13/cobra"

	"saun/internal/bootstrap"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			store, err := bootstrap.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			return render(cmd.OutOrStdout(), opts.output, map[string]string{"driver": cfg.DatabaseDriver, "status": "migrated"}, nil)
		},
	}
}
