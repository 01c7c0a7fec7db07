package vix

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/methodology"
	"github.com/wonny/ivix/internal/rates"
	"github.com/wonny/ivix/internal/variance"
	"github.com/wonny/ivix/pkg/logger"
)

// ErrNegativeVariance is returned when the blended variance is below zero
var ErrNegativeVariance = errors.New("vix: negative blended variance")

// Calculator selects near/next terms, estimates their variances and blends
// them into a constant-horizon index value
// ⭐ SSOT: VIX 산출은 여기서만
type Calculator struct {
	cfg       *methodology.Config
	resolver  *rates.Resolver
	estimator *variance.Estimator
	logger    *logger.Logger
}

// NewCalculator creates a calculator for the given methodology
func NewCalculator(cfg *methodology.Config, log *logger.Logger) *Calculator {
	var opts []rates.Option
	if cfg.Rates.FallbackEnabled {
		opts = append(opts, rates.WithFallback(cfg.Rates.DefaultRiskFreeRate))
	}

	return &Calculator{
		cfg:       cfg,
		resolver:  rates.NewResolver(opts...),
		estimator: variance.NewEstimator(cfg.Variance.MinStrikes),
		logger:    log.WithField("module", "vix"),
	}
}

// Methodology returns the calculator's methodology
func (c *Calculator) Methodology() *methodology.Config {
	return c.cfg
}

// term is one maturity of a date's option chain
type term struct {
	days    int
	options []contracts.OptionQuote
}

// selectTerms drops maturities shorter than minDays and returns the rest
// ascending by days to maturity
func selectTerms(options []contracts.OptionQuote, minDays int) []term {
	byDays := make(map[int][]contracts.OptionQuote)
	for _, q := range options {
		d := q.DaysToMaturity()
		if d < minDays {
			continue
		}
		byDays[d] = append(byDays[d], q)
	}

	terms := make([]term, 0, len(byDays))
	for d, qs := range byDays {
		terms = append(terms, term{days: d, options: qs})
	}
	sort.Slice(terms, func(i, j int) bool { return terms[i].days < terms[j].days })
	return terms
}

// ComputeDate computes the record for one trade date. options must all carry
// that trade date; curve may be nil when no rate curve resolved.
func (c *Calculator) ComputeDate(date time.Time, options []contracts.OptionQuote, curve *contracts.RateCurve) contracts.DateResult {
	date = contracts.DateOnly(date)

	if len(options) == 0 {
		return contracts.SkippedResult(date, contracts.SkipNoQuotes, nil)
	}

	terms := selectTerms(options, c.cfg.Maturity.MinDays)
	if len(terms) < 2 {
		return contracts.SkippedResult(date, contracts.SkipInsufficientMaturities,
			fmt.Errorf("%d qualifying maturities", len(terms)))
	}

	// 가장 가까운 두 만기를 그대로 사용 (30일 전후 여부와 무관)
	near, err := c.estimateTerm(terms[0], curve)
	if err != nil {
		return skipFor(date, err)
	}
	next, err := c.estimateTerm(terms[1], curve)
	if err != nil {
		return skipFor(date, err)
	}

	weight, weighted := Blend(near.Maturity, near.Variance, next.Maturity, next.Variance, c.cfg.Maturity.HorizonDays)
	index, err := Index(weighted, c.cfg.Maturity.HorizonDays)
	if err != nil {
		return skipFor(date, err)
	}

	return contracts.ComputedResult(contracts.VixRecord{
		TradeDate:    date,
		Vix:          index,
		NearTerm:     near.Maturity,
		NextTerm:     next.Maturity,
		NearRate:     near.RiskFreeRate,
		NextRate:     next.RiskFreeRate,
		NearVariance: near.Variance,
		NextVariance: next.Variance,
		NearForward:  near.ForwardPrice,
		NextForward:  next.ForwardPrice,
		Weight:       weight,
	})
}

func (c *Calculator) estimateTerm(t term, curve *contracts.RateCurve) (contracts.TermVarianceResult, error) {
	maturity := float64(t.days) / contracts.DaysPerYear

	rate, err := c.resolver.RateFor(curve, maturity)
	if err != nil {
		return contracts.TermVarianceResult{}, err
	}

	res, err := c.estimator.Estimate(t.options, maturity, rate)
	if err != nil {
		return res, fmt.Errorf("term %dd: %w", t.days, err)
	}
	return res, nil
}

// Blend returns the near-term weight and the time-weighted variance
// T1·σ1²·w + T2·σ2²·(1−w) with w = (T2 − T*)/(T2 − T1), T* = horizonDays/365.
// w is not clamped: both terms beyond the horizon extrapolate.
func Blend(nearT, nearVar, nextT, nextVar float64, horizonDays int) (weight, weighted float64) {
	horizon := float64(horizonDays) / contracts.DaysPerYear
	weight = (nextT - horizon) / (nextT - nearT)
	weighted = nearT*nearVar*weight + nextT*nextVar*(1-weight)
	return weight, weighted
}

// Index converts a time-weighted variance into the index level
// 100·sqrt(w·365/horizonDays). Negative variance is an error, never clamped.
func Index(weighted float64, horizonDays int) (float64, error) {
	if math.IsNaN(weighted) || math.IsInf(weighted, 0) {
		return 0, fmt.Errorf("vix: non-finite blended variance %v", weighted)
	}
	if weighted < 0 {
		return 0, fmt.Errorf("%w: %v", ErrNegativeVariance, weighted)
	}
	return 100 * math.Sqrt(weighted*contracts.DaysPerYear/float64(horizonDays)), nil
}

// skipFor maps a computation error onto its skip reason
func skipFor(date time.Time, err error) contracts.DateResult {
	reason := contracts.SkipComputationFailed
	switch {
	case errors.Is(err, variance.ErrMissingContractType):
		reason = contracts.SkipMissingContractType
	case errors.Is(err, variance.ErrInsufficientStrikes):
		reason = contracts.SkipInsufficientStrikes
	case errors.Is(err, ErrNegativeVariance):
		reason = contracts.SkipNegativeVariance
	case errors.Is(err, rates.ErrRateUnavailable):
		reason = contracts.SkipRateUnavailable
	}
	return contracts.SkippedResult(date, reason, err)
}
