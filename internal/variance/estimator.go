package variance

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/wonny/ivix/internal/contracts"
)

// DefaultMinStrikes is the smallest paired strike grid accepted
const DefaultMinStrikes = 3

var (
	// ErrMissingContractType is returned when a term has no calls or no puts
	ErrMissingContractType = errors.New("variance: term lacks calls or puts")

	// ErrInsufficientStrikes is returned when too few strikes carry both a call and a put
	ErrInsufficientStrikes = errors.New("variance: insufficient strikes")

	// ErrInvalidMaturity is returned for non-positive maturities
	ErrInvalidMaturity = errors.New("variance: maturity must be positive")
)

// StrikeRow is one strike of the call/put pivot table
type StrikeRow struct {
	Strike float64
	Call   float64
	Put    float64
	Diff   float64 // ΔK used in the strip sum
}

// Estimator computes model-free implied variance for a single maturity
// ⭐ SSOT: 단일 만기 분산 계산은 여기서만
type Estimator struct {
	minStrikes int
}

// NewEstimator creates an estimator; minStrikes below 2 is raised to 2
func NewEstimator(minStrikes int) *Estimator {
	if minStrikes < 2 {
		minStrikes = 2
	}
	return &Estimator{minStrikes: minStrikes}
}

// Estimate computes the variance of one term from its option quotes.
// options must all share the same maturity.
func (e *Estimator) Estimate(options []contracts.OptionQuote, maturity, rate float64) (contracts.TermVarianceResult, error) {
	result := contracts.TermVarianceResult{
		Maturity:     maturity,
		RiskFreeRate: rate,
	}

	if maturity <= 0 {
		return result, fmt.Errorf("%w: %v", ErrInvalidMaturity, maturity)
	}

	rows, err := BuildStrikeTable(options)
	if err != nil {
		return result, err
	}
	if len(rows) < e.minStrikes {
		return result, fmt.Errorf("%w: %d paired strikes, need %d", ErrInsufficientStrikes, len(rows), e.minStrikes)
	}

	assignDiffs(rows)

	growth := math.Exp(rate * maturity)
	forward := ForwardPrice(rows, growth)

	strikes := make([]float64, len(rows))
	for i, row := range rows {
		strikes[i] = row.Strike
	}
	k0 := AtTheMoneyStrike(strikes, forward)

	var sum float64
	for _, row := range rows {
		q := otmPrice(row, k0)
		sum += row.Diff / (row.Strike * row.Strike) * growth * q
	}

	adj := forward/k0 - 1
	result.ForwardPrice = forward
	result.AtTheMoneyStrike = k0
	result.Variance = 2/maturity*sum - adj*adj/maturity

	return result, nil
}

// BuildStrikeTable pivots quotes into ascending strike rows carrying both a
// call and a put. Duplicate (strike, type) quotes keep the first occurrence;
// strikes quoted on one side only are dropped.
func BuildStrikeTable(options []contracts.OptionQuote) ([]StrikeRow, error) {
	type side struct {
		call, put       float64
		hasCall, hasPut bool
	}

	byStrike := make(map[float64]*side)
	var calls, puts int
	for _, q := range options {
		s, ok := byStrike[q.Strike]
		if !ok {
			s = &side{}
			byStrike[q.Strike] = s
		}
		switch q.Type {
		case contracts.Call:
			calls++
			if !s.hasCall {
				s.call, s.hasCall = q.Close, true
			}
		case contracts.Put:
			puts++
			if !s.hasPut {
				s.put, s.hasPut = q.Close, true
			}
		}
	}

	if calls == 0 || puts == 0 {
		return nil, fmt.Errorf("%w: calls=%d puts=%d", ErrMissingContractType, calls, puts)
	}

	rows := make([]StrikeRow, 0, len(byStrike))
	for strike, s := range byStrike {
		if s.hasCall && s.hasPut {
			rows = append(rows, StrikeRow{Strike: strike, Call: s.call, Put: s.put})
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Strike < rows[j].Strike })
	return rows, nil
}

// assignDiffs sets ΔK: half the distance between neighbours for interior
// strikes, one-sided distance at both edges. Needs at least two rows.
func assignDiffs(rows []StrikeRow) {
	n := len(rows)
	if n < 2 {
		return
	}
	rows[0].Diff = rows[1].Strike - rows[0].Strike
	rows[n-1].Diff = rows[n-1].Strike - rows[n-2].Strike
	for i := 1; i < n-1; i++ {
		rows[i].Diff = (rows[i+1].Strike - rows[i-1].Strike) / 2
	}
}

// ForwardPrice applies put-call parity at the strike where |call - put| is
// smallest (first strike wins ties): F = K + e^{rT}(C - P).
func ForwardPrice(rows []StrikeRow, growth float64) float64 {
	best := 0
	bestDiff := math.Inf(1)
	for i, row := range rows {
		d := math.Abs(row.Call - row.Put)
		if d < bestDiff {
			best, bestDiff = i, d
		}
	}
	row := rows[best]
	return row.Strike + growth*(row.Call-row.Put)
}

// AtTheMoneyStrike returns the largest strike strictly below forward, or the
// smallest strike when none is below it
func AtTheMoneyStrike(strikes []float64, forward float64) float64 {
	k0 := math.NaN()
	lowest := math.Inf(1)
	for _, k := range strikes {
		if k < lowest {
			lowest = k
		}
		if k < forward && (math.IsNaN(k0) || k > k0) {
			k0 = k
		}
	}
	if math.IsNaN(k0) {
		return lowest
	}
	return k0
}

// otmPrice picks the out-of-the-money quote: put below K0, call above,
// the call/put average at K0
func otmPrice(row StrikeRow, k0 float64) float64 {
	switch {
	case row.Strike < k0:
		return row.Put
	case row.Strike > k0:
		return row.Call
	default:
		return (row.Call + row.Put) / 2
	}
}
