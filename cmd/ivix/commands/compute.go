package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/ivix/internal/export"
	"github.com/wonny/ivix/internal/vix"
)

var (
	computeFrom       string
	computeTo         string
	computeOptionsCSV string
	computeRatesCSV   string
	computeOut        string
	computeFormat     string
	computeUnderlying string
	computeWorkers    int
	computeSave       bool
	computeSkips      bool
	computeSummary    bool
)

// computeCmd represents the compute command
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "VIX 시계열 계산",
	Long: `옵션 시세와 금리로 일별 VIX를 계산합니다.

입력:
- --options-csv 지정 시 CSV 파일 (trade_date,maturity_date,strike,call_put,close)
- 미지정 시 DATABASE_URL의 market.option_daily / market.shibor
- --rates-csv는 DB 모드에서도 금리 입력만 CSV로 대체

출력:
- 기본: 콘솔 테이블 (--format csv 이면 stdout CSV)
- --out: CSV 파일
- --save: analytics.vix_daily 저장 (DB 필요)

Example:
  go run ./cmd/ivix compute --options-csv options.csv --rates-csv shibor.csv --out vix.csv
  go run ./cmd/ivix compute --from 2024-01-01 --to 2024-03-31 --save --skips`,
	RunE: runCompute,
}

func init() {
	rootCmd.AddCommand(computeCmd)

	computeCmd.Flags().StringVar(&computeFrom, "from", "", "first trade date (YYYY-MM-DD or YYYYMMDD)")
	computeCmd.Flags().StringVar(&computeTo, "to", "", "last trade date")
	computeCmd.Flags().StringVar(&computeOptionsCSV, "options-csv", "", "option quotes CSV")
	computeCmd.Flags().StringVar(&computeRatesCSV, "rates-csv", "", "tenor rates CSV")
	computeCmd.Flags().StringVarP(&computeOut, "out", "o", "", "write records to CSV file")
	computeCmd.Flags().StringVar(&computeFormat, "format", "table", "stdout format (table|csv|none)")
	computeCmd.Flags().StringVar(&computeUnderlying, "underlying", "", "underlying code (default VIX_UNDERLYING)")
	computeCmd.Flags().IntVar(&computeWorkers, "workers", 0, "parallel workers (default VIX_WORKERS)")
	computeCmd.Flags().BoolVar(&computeSave, "save", false, "persist records to the database")
	computeCmd.Flags().BoolVar(&computeSkips, "skips", false, "print skipped dates with reasons")
	computeCmd.Flags().BoolVar(&computeSummary, "summary", true, "print summary statistics")
}

func runCompute(cmd *cobra.Command, args []string) error {
	switch computeFormat {
	case "table", "csv", "none":
	default:
		return fmt.Errorf("unknown format %q", computeFormat)
	}

	from, err := parseBound(computeFrom)
	if err != nil {
		return fmt.Errorf("--from: %w", err)
	}
	to, err := parseBound(computeTo)
	if err != nil {
		return fmt.Errorf("--to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return fmt.Errorf("--to must not be before --from")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(ctx, a, computeOptionsCSV, computeRatesCSV, computeSave)
	if err != nil {
		return err
	}

	underlying := computeUnderlying
	if underlying == "" {
		underlying = a.cfg.VIX.Underlying
	}

	res, err := svc.Run(ctx, vix.Request{
		Underlying: underlying,
		From:       from,
		To:         to,
		Save:       computeSave,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if computeOut != "" {
		if err := export.WriteCSVFile(computeOut, res.Records); err != nil {
			return err
		}
		a.log.WithField("path", computeOut).Info("CSV written")
	}

	switch computeFormat {
	case "csv":
		return export.WriteCSV(out, res.Records)
	case "none":
		return nil
	}

	PrintHeader(out, fmt.Sprintf("VIX %s", underlying))
	export.WriteTable(out, res.Records)

	if computeSkips && res.Results != nil {
		PrintSection(out, "Skipped dates")
		export.WriteSkips(out, res.Results)
	}
	if computeSummary {
		PrintSection(out, "Summary")
		export.WriteSummary(out, export.Summarize(res.Records), export.SkipCounts(res.Results))
	}
	if res.FromCache {
		PrintInfo(out, "served from cache")
	}
	if computeSave {
		PrintSuccess(out, fmt.Sprintf("saved %d records (run %s)", len(res.Records), res.RunID))
	}
	return nil
}

// buildService wires sources, cache and store for one run
func buildService(ctx context.Context, a *app, optionsCSV, ratesCSV string, save bool) (*vix.Service, error) {
	optSrc, rateSrc, err := a.sources(ctx, optionsCSV, ratesCSV)
	if err != nil {
		return nil, err
	}

	workers := computeWorkers
	if workers < 1 {
		workers = a.cfg.VIX.Workers
	}
	opts := []vix.ServiceOption{vix.WithWorkers(workers)}

	// CSV 입력은 파일이 바뀔 수 있으므로 캐시하지 않음
	if optionsCSV == "" {
		cache, err := a.openCache(ctx)
		if err != nil {
			a.log.WithError(err).Warn("Redis unavailable, continuing without cache")
		} else if cache != nil {
			opts = append(opts, vix.WithCache(cache, a.cfg.Redis.TTL))
		}
	}

	if save {
		db, err := a.openDB(ctx)
		if err != nil {
			return nil, err
		}
		repo := vix.NewRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, vix.WithStore(repo))
	}

	return vix.NewService(a.calc, optSrc, rateSrc, a.log, opts...), nil
}
