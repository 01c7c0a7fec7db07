package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/export"
	"github.com/wonny/ivix/internal/marketdata"
	"github.com/wonny/ivix/internal/rates"
	"github.com/wonny/ivix/internal/vix"
)

var (
	curveDate     string
	curveRatesCSV string
	curveDays     []int
)

// curveCmd represents the curve command
var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "금리 기간구조 조회",
	Long: `특정 거래일의 보간된 무위험 금리 곡선(1~365일)을 표시합니다.

결측 테너는 이전 값으로 채우고(ffill), 그래도 없으면 이후 값으로 채웁니다(bfill).

Example:
  go run ./cmd/ivix curve --date 2024-01-05 --rates-csv shibor.csv
  go run ./cmd/ivix curve --date 2024-01-05 --days 1,7,30,45,90`,
	RunE: runCurve,
}

func init() {
	rootCmd.AddCommand(curveCmd)

	curveCmd.Flags().StringVar(&curveDate, "date", "", "trade date (required)")
	curveCmd.Flags().StringVar(&curveRatesCSV, "rates-csv", "", "tenor rates CSV (default: database)")
	curveCmd.Flags().IntSliceVar(&curveDays, "days", nil, "day counts to print (default: tenor points)")
	_ = curveCmd.MarkFlagRequired("date")
}

func runCurve(cmd *cobra.Command, args []string) error {
	date, err := parseBound(curveDate)
	if err != nil {
		return fmt.Errorf("--date: %w", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var rateSrc contracts.RateSource
	if curveRatesCSV != "" {
		rateSrc = marketdata.NewCSVLoader("", curveRatesCSV, a.log)
	} else {
		db, err := a.openDB(cmd.Context())
		if err != nil {
			return err
		}
		rateSrc = marketdata.NewPostgresStore(db.Pool, a.log)
	}

	rateFrom, rateTo := vix.RateWindow(date, date)
	quotes, err := rateSrc.LoadRateQuotes(cmd.Context(), rateFrom, rateTo)
	if err != nil {
		return err
	}

	curves := rates.ResolveAll(quotes)
	curve := curves.Get(date)
	if curve == nil {
		if err := curves.Err(date); err != nil {
			return fmt.Errorf("no curve for %s: %w", curveDate, err)
		}
		return fmt.Errorf("no rate quotes for %s", curveDate)
	}

	days := curveDays
	if len(days) == 0 {
		for _, t := range contracts.AllTenors() {
			days = append(days, t.DayCount())
		}
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, fmt.Sprintf("Rate curve %s", date.Format(contracts.DateLayout)))
	export.WriteCurve(out, curve, days)
	return nil
}
