package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newIngestCmd(opts *RootOptions) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ingest [SYMBOL...]",
		Short: "Fetch the trailing window of minute bars and store new rows",
		Long: `Fetch the provider's trailing window of 1-minute bars for each symbol
and insert the rows not already stored. Without arguments the symbols
from ingest.symbols in the settings file are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols := args
			if len(symbols) == 0 {
				symbols = opts.cfg.Ingest.Symbols
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols: pass them as arguments or set ingest.symbols")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			app, err := opts.app(ctx)
			if err != nil {
				return err
			}
			defer app.Close()

			results := app.Ingest.IngestAll(ctx, symbols)

			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tERROR\t%v\n", r.Symbol, r.Err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", r.Symbol, r.Written)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d symbols failed", failed, len(symbols))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "overall deadline for the batch")

	return cmd
}
