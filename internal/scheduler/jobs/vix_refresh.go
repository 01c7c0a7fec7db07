package jobs

import (
	"context"
	"time"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/vix"
	"github.com/wonny/ivix/pkg/logger"
)

// SeriesRunner computes and persists a VIX series
type SeriesRunner interface {
	Run(ctx context.Context, req vix.Request) (*vix.RunResult, error)
}

// VixRefreshJob recomputes the trailing window of the series and upserts it.
// 늦게 들어온 시세를 반영하기 위해 최근 N일을 매번 다시 계산
type VixRefreshJob struct {
	runner     SeriesRunner
	underlying string
	days       int
	schedule   string
	now        func() time.Time
	logger     *logger.Logger
}

// NewVixRefreshJob creates a new refresh job
func NewVixRefreshJob(runner SeriesRunner, underlying string, days int, schedule string, log *logger.Logger) *VixRefreshJob {
	return &VixRefreshJob{
		runner:     runner,
		underlying: underlying,
		days:       days,
		schedule:   schedule,
		now:        time.Now,
		logger:     log.WithField("job", "vix_refresh"),
	}
}

// Name returns the job name
func (j *VixRefreshJob) Name() string {
	return "vix_refresh"
}

// Schedule returns the cron schedule
func (j *VixRefreshJob) Schedule() string {
	return j.schedule
}

// Window returns the [from, to] range the next run covers
func (j *VixRefreshJob) Window() (time.Time, time.Time) {
	to := contracts.DateOnly(j.now())
	return to.AddDate(0, 0, -(j.days - 1)), to
}

// Run executes the refresh
func (j *VixRefreshJob) Run(ctx context.Context) error {
	from, to := j.Window()

	res, err := j.runner.Run(ctx, vix.Request{
		Underlying: j.underlying,
		From:       from,
		To:         to,
		Save:       true,
	})
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"from":     from.Format(contracts.DateLayout),
		"to":       to.Format(contracts.DateLayout),
		"computed": len(res.Records),
		"skipped":  len(res.Results) - len(res.Records),
		"run_id":   res.RunID,
	}).Info("VIX refresh completed")

	return nil
}
