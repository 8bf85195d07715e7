package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"market_journal/internal/platform/export"
)

func newExportCmd(opts *RootOptions) *cobra.Command {
	var (
		symbol  string
		date    string
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write one symbol-day of stored bars to csv, json or parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if symbol == "" || date == "" {
				return fmt.Errorf("missing --symbol or --date")
			}
			if outPath == "" {
				return fmt.Errorf("missing --out")
			}
			// 書き込み前に形式を確認
			if _, err := export.SaverForPath(outPath); err != nil {
				return err
			}

			app, err := opts.app(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			bars, err := app.Bars.GetBars(cmd.Context(), symbol, date)
			if err != nil {
				return err
			}
			if err := export.Bars(bars, outPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bars to %s\n", len(bars), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&symbol, "symbol", "", "ticker symbol (e.g. AAPL)")
	cmd.Flags().StringVar(&date, "date", "", "trading day YYYY-MM-DD")
	cmd.Flags().StringVar(&outPath, "out", "", "output file; the extension selects the format")

	return cmd
}
