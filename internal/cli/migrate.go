package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"market_journal/internal/app/di"
	"market_journal/internal/platform/db"
)

func newMigrateCmd(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the market_data and trades tables if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.NewConnector(opts.cfg.Database)
			if err != nil {
				return err
			}
			if err := di.MigrateSchema(cmd.Context(), conn, opts.cfg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
