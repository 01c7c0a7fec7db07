package rates

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/interp"

	"github.com/wonny/ivix/internal/contracts"
)

// DefaultRiskFreeRate is the conventional fallback when no curve resolves
const DefaultRiskFreeRate = 0.03

var (
	// ErrInsufficientTenors is returned when fewer than two distinct day counts are quoted
	ErrInsufficientTenors = errors.New("rates: at least two distinct tenors required")

	// ErrRateUnavailable is returned when no curve exists and no fallback is configured
	ErrRateUnavailable = errors.New("rates: rate curve unavailable")
)

// Resolver turns sparse tenor quotes into dense day-count curves and looks up
// discount rates for maturities
// ⭐ SSOT: 무위험 이자율 커브 계산은 여기서만
type Resolver struct {
	fallback    float64
	hasFallback bool
}

// Option configures a Resolver
type Option func(*Resolver)

// WithFallback sets the rate returned when a date has no usable curve
func WithFallback(rate float64) Option {
	return func(r *Resolver) {
		r.fallback = rate
		r.hasFallback = true
	}
}

// NewResolver creates a resolver. Without WithFallback a missing curve is an error.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveCurve interpolates decimal tenor rates over day counts 1..365.
// Day counts outside the quoted range are held flat at the nearest boundary.
func ResolveCurve(date time.Time, tenors map[contracts.Tenor]float64) (*contracts.RateCurve, error) {
	type point struct {
		day  int
		rate float64
	}

	// tenor 순서대로 수집, 같은 day count는 처음 값 유지
	seen := make(map[int]bool)
	points := make([]point, 0, len(tenors))
	for _, tenor := range contracts.AllTenors() {
		rate, ok := tenors[tenor]
		if !ok || math.IsNaN(rate) {
			continue
		}
		d := tenor.DayCount()
		if seen[d] {
			continue
		}
		seen[d] = true
		points = append(points, point{day: d, rate: rate})
	}

	if len(points) < 2 {
		return nil, fmt.Errorf("%s: %w (got %d)", date.Format(contracts.DateLayout), ErrInsufficientTenors, len(points))
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].day < points[j].day })

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = float64(p.day)
		ys[i] = p.rate
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fit curve: %w", err)
	}

	lo, hi := xs[0], xs[len(xs)-1]
	curve := &contracts.RateCurve{
		TradeDate: contracts.DateOnly(date),
		Rates:     make([]float64, contracts.CurveDays),
	}
	for d := 1; d <= contracts.CurveDays; d++ {
		x := math.Min(math.Max(float64(d), lo), hi)
		curve.Rates[d-1] = pl.Predict(x)
	}

	return curve, nil
}

// DayCountFor converts a maturity in years to a day count in [1, 365]
func DayCountFor(maturity float64) int {
	days := int(math.Round(maturity * contracts.DaysPerYear))
	if days < 1 {
		days = 1
	}
	if days > contracts.CurveDays {
		days = contracts.CurveDays
	}
	return days
}

// RateFor returns the discount rate for a maturity in years.
// A nil or incomplete curve resolves to the fallback rate when configured.
func (r *Resolver) RateFor(curve *contracts.RateCurve, maturity float64) (float64, error) {
	if !curve.Valid() {
		if r.hasFallback {
			return r.fallback, nil
		}
		return 0, ErrRateUnavailable
	}
	return curve.At(DayCountFor(maturity)), nil
}

// Curves holds the resolved curve per trade date
type Curves struct {
	byDate map[time.Time]*contracts.RateCurve
	errs   map[time.Time]error
}

// Get returns the curve for a date (nil when unresolved)
func (c *Curves) Get(date time.Time) *contracts.RateCurve {
	if c == nil {
		return nil
	}
	return c.byDate[contracts.DateOnly(date)]
}

// Err returns why a date's curve could not be resolved
func (c *Curves) Err(date time.Time) error {
	if c == nil {
		return nil
	}
	return c.errs[contracts.DateOnly(date)]
}

// Len returns the number of resolved curves
func (c *Curves) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byDate)
}

// ResolveAll cleans raw quotes across dates and resolves one curve per date.
// Dates whose curve cannot be built are recorded in Err and left out of Get.
func ResolveAll(quotes []contracts.RateQuote) *Curves {
	curves := &Curves{
		byDate: make(map[time.Time]*contracts.RateCurve),
		errs:   make(map[time.Time]error),
	}

	for _, q := range Clean(quotes) {
		date := contracts.DateOnly(q.TradeDate)
		curve, err := ResolveCurve(date, Decimals(q))
		if err != nil {
			curves.errs[date] = err
			continue
		}
		curves.byDate[date] = curve
	}

	return curves
}

// Decimals converts a row's percent quotes to decimal rates, dropping missing tenors
func Decimals(q contracts.RateQuote) map[contracts.Tenor]float64 {
	out := make(map[contracts.Tenor]float64, len(q.Values))
	for _, tenor := range contracts.AllTenors() {
		if v, ok := q.Get(tenor); ok && !math.IsNaN(v) {
			out[tenor] = v / 100
		}
	}
	return out
}
