package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/scheduler"
	"github.com/wonny/ivix/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `VIX 재계산 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/ivix scheduler start
  go run ./cmd/ivix scheduler run vix_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- vix_refresh: VIX_REFRESH_SCHEDULE (기본 평일 17:30), 최근 VIX_REFRESH_DAYS일 재계산 후 저장

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	PrintHeader(out, "ivix Scheduler")

	sched.Start()

	PrintSuccess(out, "Scheduler started successfully")
	for _, name := range sched.Jobs() {
		next, _ := sched.NextRun(name)
		PrintKeyValue(out, name, next.Format("2006-01-02 15:04:05"), 12)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Fprintln(out, "\nShutting down scheduler...")
	sched.Stop()
	PrintSuccess(out, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Registered jobs:")
	for name, st := range sched.Stats() {
		PrintKeyValue(out, name, st.Schedule, 12)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd.Context())
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running job: %s\n", args[0])

	res, err := sched.RunNow(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !res.Success {
		PrintError(out, fmt.Sprintf("%s failed after %d attempts: %s", res.JobName, res.Attempts, res.Error))
		return fmt.Errorf("job %s failed", res.JobName)
	}

	PrintSuccess(out, fmt.Sprintf("%s completed in %.2fs", res.JobName, res.Duration.Seconds()))
	return nil
}

func initScheduler(ctx context.Context) (*app, *scheduler.Scheduler, error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}

	svc, err := buildService(ctx, a, "", "", true)
	if err != nil {
		a.Close()
		return nil, nil, err
	}

	sched := scheduler.New(a.log)
	refresh := jobs.NewVixRefreshJob(svc, a.cfg.VIX.Underlying, a.cfg.VIX.RefreshDays, a.cfg.VIX.RefreshSchedule, a.log)
	if err := sched.AddJob(refresh); err != nil {
		a.Close()
		return nil, nil, err
	}

	from, to := refresh.Window()
	a.log.WithFields(map[string]interface{}{
		"underlying": a.cfg.VIX.Underlying,
		"window":     fmt.Sprintf("%s~%s", from.Format(contracts.DateLayout), to.Format(contracts.DateLayout)),
	}).Debug("Scheduler initialized")

	return a, sched, nil
}
