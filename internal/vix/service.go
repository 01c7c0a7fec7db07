package vix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/methodology"
	"github.com/wonny/ivix/pkg/logger"
	"github.com/wonny/ivix/pkg/redis"
)

// RateLookbackDays widens the rate window before the first trade date so the
// forward fill has a prior quote to carry. The window is padded by the same
// amount after the last date so backward fill sees the same later quotes
// whether a date is resolved alone or inside a longer run.
const RateLookbackDays = 30

// RateWindow returns the rate load range for trade dates in [from, to].
// Zero bounds stay open.
func RateWindow(from, to time.Time) (time.Time, time.Time) {
	if !from.IsZero() {
		from = from.AddDate(0, 0, -RateLookbackDays)
	}
	if !to.IsZero() {
		to = to.AddDate(0, 0, RateLookbackDays)
	}
	return from, to
}

// SeriesCache caches computed record sets
type SeriesCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RunRecorder persists run metadata
type RunRecorder interface {
	SaveRun(ctx context.Context, run RunInfo) error
}

// Request describes one series computation
type Request struct {
	Underlying string
	From       time.Time
	To         time.Time
	Save       bool
}

// RunResult is the outcome of Service.Run
type RunResult struct {
	RunID     string
	Results   []contracts.DateResult
	Records   []contracts.VixRecord
	FromCache bool
}

// Service loads inputs, computes the series and persists it
// ⭐ SSOT: 입력 로드 → 계산 → 저장 흐름은 여기서만
type Service struct {
	calc     *Calculator
	options  contracts.OptionSource
	rates    contracts.RateSource
	store    contracts.VixStore
	runs     RunRecorder
	cache    SeriesCache
	cacheTTL time.Duration
	workers  int
	logger   *logger.Logger
}

// ServiceOption configures optional collaborators
type ServiceOption func(*Service)

// WithStore enables persistence of computed records
func WithStore(store contracts.VixStore) ServiceOption {
	return func(s *Service) {
		s.store = store
		if rec, ok := store.(RunRecorder); ok {
			s.runs = rec
		}
	}
}

// WithCache enables the series cache
func WithCache(cache SeriesCache, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.cache = cache
		s.cacheTTL = ttl
	}
}

// WithWorkers sets the parallel worker count
func WithWorkers(n int) ServiceOption {
	return func(s *Service) {
		s.workers = n
	}
}

// NewService creates a new VIX service
func NewService(calc *Calculator, options contracts.OptionSource, rateSource contracts.RateSource, log *logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		calc:    calc,
		options: options,
		rates:   rateSource,
		workers: 1,
		logger:  log.WithField("module", "vix_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run computes the series for req
func (s *Service) Run(ctx context.Context, req Request) (*RunResult, error) {
	hash, err := methodology.Hash(s.calc.Methodology())
	if err != nil {
		return nil, err
	}
	cacheKey := redis.SeriesKey(req.Underlying, formatBound(req.From), formatBound(req.To), hash)

	// 저장 요청이 없을 때만 캐시 사용
	if s.cache != nil && !req.Save {
		var cached cachedSeries
		found, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Series cache read failed")
		} else if found {
			s.logger.WithField("key", cacheKey).Debug("Series cache hit")
			return &RunResult{Results: cached.results(), Records: cached.Records, FromCache: true}, nil
		}
	}

	options, err := s.options.LoadOptionQuotes(ctx, req.Underlying, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("load option quotes: %w", err)
	}

	rateFrom, rateTo := RateWindow(req.From, req.To)
	rateQuotes, err := s.rates.LoadRateQuotes(ctx, rateFrom, rateTo)
	if err != nil {
		return nil, fmt.Errorf("load rate quotes: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"underlying": req.Underlying,
		"options":    len(options),
		"rates":      len(rateQuotes),
		"workers":    s.workers,
	}).Info("Computing VIX series")

	results, err := s.calc.ComputeParallel(ctx, Input{
		Options: options,
		Rates:   rateQuotes,
		From:    req.From,
		To:      req.To,
	}, s.workers)
	if err != nil {
		return nil, err
	}

	out := &RunResult{
		RunID:   uuid.New().String(),
		Results: results,
		Records: Collect(results),
	}

	if req.Save {
		if err := s.persist(ctx, req, hash, out); err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, newCachedSeries(out.Results), s.cacheTTL); err != nil {
			s.logger.WithError(err).Warn("Series cache write failed")
		}
	}

	return out, nil
}

func (s *Service) persist(ctx context.Context, req Request, hash string, out *RunResult) error {
	if s.store == nil {
		return fmt.Errorf("save requested but no store configured")
	}

	if err := s.store.SaveRecords(ctx, req.Underlying, out.RunID, out.Records); err != nil {
		return err
	}

	if s.runs != nil {
		run := RunInfo{
			RunID:           out.RunID,
			Underlying:      req.Underlying,
			From:            req.From,
			To:              req.To,
			MethodologyHash: hash,
			Computed:        len(out.Records),
			Skipped:         len(out.Results) - len(out.Records),
		}
		if err := s.runs.SaveRun(ctx, run); err != nil {
			return err
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":  out.RunID,
		"records": len(out.Records),
	}).Info("VIX records saved")

	return nil
}

// cachedSeries is the cache payload. Skips keep their reason and detail so a
// cache hit reports the same skipped dates as the original run.
type cachedSeries struct {
	Records []contracts.VixRecord `json:"records"`
	Skips   []cachedSkip          `json:"skips"`
}

type cachedSkip struct {
	TradeDate time.Time            `json:"trade_date"`
	Reason    contracts.SkipReason `json:"reason"`
	Detail    string               `json:"detail,omitempty"`
}

func newCachedSeries(results []contracts.DateResult) cachedSeries {
	c := cachedSeries{Records: Collect(results), Skips: []cachedSkip{}}
	for _, r := range results {
		if r.Computed() {
			continue
		}
		skip := cachedSkip{TradeDate: r.TradeDate, Reason: r.Reason}
		if r.Err != nil {
			skip.Detail = r.Err.Error()
		}
		c.Skips = append(c.Skips, skip)
	}
	return c
}

// results merges records and skips back into date order
func (c cachedSeries) results() []contracts.DateResult {
	out := make([]contracts.DateResult, 0, len(c.Records)+len(c.Skips))
	i, j := 0, 0
	for i < len(c.Records) || j < len(c.Skips) {
		if j >= len(c.Skips) || (i < len(c.Records) && c.Records[i].TradeDate.Before(c.Skips[j].TradeDate)) {
			out = append(out, contracts.ComputedResult(c.Records[i]))
			i++
			continue
		}
		var err error
		if c.Skips[j].Detail != "" {
			err = errors.New(c.Skips[j].Detail)
		}
		out = append(out, contracts.SkippedResult(c.Skips[j].TradeDate, c.Skips[j].Reason, err))
		j++
	}
	return out
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.Format(contracts.DateLayout)
}
