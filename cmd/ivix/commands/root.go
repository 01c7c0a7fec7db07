package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	methodologyFile string
	verbose         bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ivix",
	Short: "ivix - 옵션 내재 변동성 지수(VIX) 계산기",
	Long: `ivix Unified CLI

옵션 시세와 단기 금리(SHIBOR)로 CBOE 방식의 30일 변동성 지수를 계산합니다.

Usage:
  go run ./cmd/ivix [command]

Examples:
  go run ./cmd/ivix compute --options-csv options.csv --rates-csv shibor.csv
  go run ./cmd/ivix compute --from 2024-01-01 --to 2024-03-31 --save
  go run ./cmd/ivix curve --date 2024-01-05 --rates-csv shibor.csv
  go run ./cmd/ivix scheduler start
  go run ./cmd/ivix test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&methodologyFile, "methodology", "", "methodology YAML (default: VIX_METHODOLOGY_FILE or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
