package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/ivix/internal/marketdata"
	"github.com/wonny/ivix/internal/vix"
	"github.com/wonny/ivix/pkg/config"
	"github.com/wonny/ivix/pkg/database"
	"github.com/wonny/ivix/pkg/logger"
)

var testDBMigrate bool

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "PostgreSQL 연결 테스트",
	Long: `데이터베이스 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 데이터베이스 연결 생성 및 Health Check
- Connection Pool 통계 표시
- --migrate 지정 시 market/analytics 테이블 생성

Example:
  go run ./cmd/ivix test-db
  go run ./cmd/ivix test-db --migrate`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
	testDBCmd.Flags().BoolVar(&testDBMigrate, "migrate", false, "create input/output tables if missing")
}

func runTestDB(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	PrintHeader(out, "ivix Database Connection Test")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	PrintSuccess(out, fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	PrintKeyValue(out, "Database URL", maskPassword(cfg.Database.URL), 14)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess(out, "Database connection established")

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	PrintSection(out, "Health Check")
	PrintKeyValue(out, "Healthy", fmt.Sprintf("%v", status.Healthy), 14)
	PrintKeyValue(out, "Response Time", status.ResponseTime.String(), 14)
	PrintKeyValue(out, "Timestamp", status.Timestamp.Format(time.RFC3339), 14)

	PrintSection(out, "📊 Connection Pool")
	PrintKeyValue(out, "Max", fmt.Sprintf("%d", status.Stats.MaxConns), 14)
	PrintKeyValue(out, "Total", fmt.Sprintf("%d", status.Stats.TotalConns), 14)
	PrintKeyValue(out, "Acquired", fmt.Sprintf("%d", status.Stats.AcquiredConns), 14)
	PrintKeyValue(out, "Idle", fmt.Sprintf("%d", status.Stats.IdleConns), 14)

	if testDBMigrate {
		if err := marketdata.NewPostgresStore(db.Pool, logger.New(cfg)).EnsureSchema(ctx); err != nil {
			return fmt.Errorf("❌ %w", err)
		}
		if err := vix.NewRepository(db.Pool).EnsureSchema(ctx); err != nil {
			return fmt.Errorf("❌ %w", err)
		}
		PrintSuccess(out, "Schema ensured (market.*, analytics.*)")
	}

	fmt.Fprintln(out)
	PrintSuccess(out, "All tests passed!")
	return nil
}
