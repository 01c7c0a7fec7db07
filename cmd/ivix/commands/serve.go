package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/wonny/ivix/internal/api"
	"github.com/wonny/ivix/internal/api/handlers"
	"github.com/wonny/ivix/internal/marketdata"
	"github.com/wonny/ivix/internal/vix"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "VIX 조회 API 서버 시작",
	Long: `저장된 VIX 시계열과 금리 곡선을 조회하는 HTTP API를 시작합니다.

Endpoints:
  GET  /health
  GET  /api/vix?from=&to=&underlying=
  GET  /api/vix/summary?from=&to=
  POST /api/vix/compute   {"from":"2024-01-01","to":"2024-03-31","save":true}
  GET  /api/curve/{date}

Example:
  go run ./cmd/ivix serve
  API_PORT=9090 go run ./cmd/ivix serve
  API_COMPUTE_TIMEOUT=2m go run ./cmd/ivix serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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

	// save=true 요청을 위해 저장소까지 연결
	svc, err := buildService(ctx, a, "", "", true)
	if err != nil {
		return err
	}

	store := marketdata.NewPostgresStore(db.Pool, a.log)
	handler := handlers.NewVixHandler(vix.NewRepository(db.Pool), svc, store, a.cfg.VIX.Underlying, a.log)
	limits := api.ComputeLimits{
		Limiter: rate.NewLimiter(rate.Limit(a.cfg.ComputeRate), a.cfg.ComputeBurst),
		Timeout: a.cfg.ComputeTimeout,
	}
	server := api.New(a.cfg, a.log, api.NewRouter(handler, limits, a.log))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("API server listening on :%s", a.cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
