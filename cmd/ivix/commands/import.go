package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ivix/internal/marketdata"
)

var (
	importOptionsCSV string
	importRatesCSV   string
	importUnderlying string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "CSV 시세를 DB로 적재",
	Long: `옵션/금리 CSV를 market 스키마로 적재합니다 (upsert).

Example:
  go run ./cmd/ivix import --options-csv options.csv --rates-csv shibor.csv
  go run ./cmd/ivix import --rates-csv shibor.csv`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importOptionsCSV, "options-csv", "", "option quotes CSV")
	importCmd.Flags().StringVar(&importRatesCSV, "rates-csv", "", "tenor rates CSV")
	importCmd.Flags().StringVar(&importUnderlying, "underlying", "", "underlying code (default VIX_UNDERLYING)")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importOptionsCSV == "" && importRatesCSV == "" {
		return fmt.Errorf("at least one of --options-csv or --rates-csv is required")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	db, err := a.openDB(ctx)
	if err != nil {
		return err
	}

	store := marketdata.NewPostgresStore(db.Pool, a.log)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	underlying := importUnderlying
	if underlying == "" {
		underlying = a.cfg.VIX.Underlying
	}

	loader := marketdata.NewCSVLoader(importOptionsCSV, importRatesCSV, a.log)
	out := cmd.OutOrStdout()

	if importOptionsCSV != "" {
		quotes, err := loader.LoadOptionQuotes(ctx, underlying, time.Time{}, time.Time{})
		if err != nil {
			return err
		}
		if err := store.SaveOptionQuotes(ctx, underlying, quotes); err != nil {
			return err
		}
		PrintSuccess(out, fmt.Sprintf("imported %d option quotes for %s", len(quotes), underlying))
	}

	if importRatesCSV != "" {
		quotes, err := loader.LoadRateQuotes(ctx, time.Time{}, time.Time{})
		if err != nil {
			return err
		}
		if err := store.SaveRateQuotes(ctx, quotes); err != nil {
			return err
		}
		PrintSuccess(out, fmt.Sprintf("imported %d rate rows", len(quotes)))
	}

	return nil
}
