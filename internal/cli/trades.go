package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"market_journal/internal/feature/journal/domain/entity"
)

func newTradesCmd(opts *RootOptions) *cobra.Command {
	var (
		symbol string
		date   string
	)

	cmd := &cobra.Command{
		Use:   "trades",
		Short: "List journal trades (defaults to yesterday, all symbols)",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			trades, err := app.Journal.List(cmd.Context(), symbol, date)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATETIME\tSYMBOL\tNAME\tACTION\tPRICE\tSIZE")
			for _, t := range trades {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%g\t%d\n",
					t.ID, t.ActionDateTime.Format(entity.ActionDateTimeLayout), t.Symbol, t.Name, t.Action, t.ActionPrice, t.Size)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", `symbol filter; empty or "all" matches every symbol`)
	cmd.Flags().StringVar(&date, "date", "", "day YYYY-MM-DD; empty means yesterday (UTC)")

	return cmd
}
