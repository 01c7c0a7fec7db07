package variance

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ivix/internal/contracts"
)

var (
	trade    = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	maturity = trade.AddDate(0, 0, 45)
)

func quote(strike float64, typ contracts.ContractType, close float64) contracts.OptionQuote {
	return contracts.OptionQuote{
		TradeDate:    trade,
		MaturityDate: maturity,
		Strike:       strike,
		Type:         typ,
		Close:        close,
	}
}

func chain(strikes, calls, puts []float64) []contracts.OptionQuote {
	var out []contracts.OptionQuote
	for i, k := range strikes {
		out = append(out, quote(k, contracts.Call, calls[i]), quote(k, contracts.Put, puts[i]))
	}
	return out
}

// parityChain builds noiseless quotes satisfying C - P = (F - K)e^{-rT}
func parityChain(strikes []float64, forward, rate, t float64) []contracts.OptionQuote {
	df := math.Exp(-rate * t)
	var out []contracts.OptionQuote
	for _, k := range strikes {
		put := math.Max(k-forward, 0)*df + 0.35
		call := put + (forward-k)*df
		out = append(out, quote(k, contracts.Call, call), quote(k, contracts.Put, put))
	}
	return out
}

func TestAtTheMoneyStrike(t *testing.T) {
	strikes := []float64{95, 98, 100, 102, 105}

	assert.Equal(t, 100.0, AtTheMoneyStrike(strikes, 101))
	assert.Equal(t, 95.0, AtTheMoneyStrike(strikes, 90))
	// strictly below: a forward equal to a strike picks the one beneath it
	assert.Equal(t, 98.0, AtTheMoneyStrike(strikes, 100))
	assert.Equal(t, 105.0, AtTheMoneyStrike(strikes, 120))
}

func TestForwardPrice_PutCallParity(t *testing.T) {
	tests := []struct {
		name    string
		strikes []float64
		forward float64
		rate    float64
		t       float64
	}{
		{"centered grid", []float64{90, 95, 100, 105, 110}, 101.3, 0.025, 45.0 / 365},
		{"fine grid", []float64{2.5, 2.55, 2.6, 2.65, 2.7, 2.75, 2.8}, 2.6371, 0.021, 20.0 / 365},
		{"forward on strike", []float64{95, 97.5, 100, 102.5, 105}, 100, 0.03, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := BuildStrikeTable(parityChain(tt.strikes, tt.forward, tt.rate, tt.t))
			require.NoError(t, err)

			got := ForwardPrice(rows, math.Exp(tt.rate*tt.t))
			assert.InDelta(t, tt.forward, got, 1e-6)
		})
	}
}

func TestForwardPrice_TieBreakFirstStrike(t *testing.T) {
	rows := []StrikeRow{
		{Strike: 95, Call: 3.0, Put: 2.0},
		{Strike: 100, Call: 2.0, Put: 3.0},
		{Strike: 105, Call: 0.5, Put: 6.0},
	}

	// |C-P| = 1 at 95 and at 100: the lower strike wins
	assert.InDelta(t, 96.0, ForwardPrice(rows, 1.0), 1e-12)
}

func TestBuildStrikeTable_DedupKeepsFirst(t *testing.T) {
	quotes := []contracts.OptionQuote{
		quote(100, contracts.Call, 2.0),
		quote(100, contracts.Put, 1.5),
		quote(100, contracts.Call, 9.9),
		quote(95, contracts.Put, 0.5),
		quote(95, contracts.Call, 6.0),
		quote(110, contracts.Call, 0.2), // put missing: dropped
	}

	rows, err := BuildStrikeTable(quotes)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 95.0, rows[0].Strike)
	assert.Equal(t, 100.0, rows[1].Strike)
	assert.Equal(t, 2.0, rows[1].Call)
	assert.Equal(t, 1.5, rows[1].Put)
}

func TestBuildStrikeTable_MissingContractType(t *testing.T) {
	_, err := BuildStrikeTable([]contracts.OptionQuote{
		quote(95, contracts.Call, 6),
		quote(100, contracts.Call, 2),
	})
	assert.True(t, errors.Is(err, ErrMissingContractType))

	_, err = BuildStrikeTable(nil)
	assert.True(t, errors.Is(err, ErrMissingContractType))
}

func TestAssignDiffs(t *testing.T) {
	rows := []StrikeRow{{Strike: 90}, {Strike: 95}, {Strike: 100}, {Strike: 110}}
	assignDiffs(rows)

	assert.Equal(t, 5.0, rows[0].Diff)
	assert.Equal(t, 5.0, rows[1].Diff)
	assert.Equal(t, 7.5, rows[2].Diff)
	assert.Equal(t, 10.0, rows[3].Diff)
}

func TestEstimate_HandComputed(t *testing.T) {
	quotes := chain(
		[]float64{95, 100, 105},
		[]float64{6.0, 2.0, 0.5},
		[]float64{0.8, 2.4, 5.6},
	)

	res, err := NewEstimator(DefaultMinStrikes).Estimate(quotes, 0.1, 0)
	require.NoError(t, err)

	// min |C-P| at 100 → F = 100 + (2.0 - 2.4)
	assert.InDelta(t, 99.6, res.ForwardPrice, 1e-12)
	assert.Equal(t, 95.0, res.AtTheMoneyStrike)

	sum := 5.0/(95*95)*(6.0+0.8)/2 + 5.0/(100*100)*2.0 + 5.0/(105*105)*0.5
	adj := 99.6/95 - 1
	want := 2/0.1*sum - adj*adj/0.1

	assert.InDelta(t, want, res.Variance, 1e-12)
	assert.Equal(t, 0.1, res.Maturity)
	assert.Equal(t, 0.0, res.RiskFreeRate)
}

func TestEstimate_DiscountGrowthApplied(t *testing.T) {
	quotes := chain(
		[]float64{95, 100, 105},
		[]float64{6.0, 2.0, 0.5},
		[]float64{0.8, 2.4, 5.6},
	)
	est := NewEstimator(DefaultMinStrikes)

	flat, err := est.Estimate(quotes, 0.1, 0)
	require.NoError(t, err)
	withRate, err := est.Estimate(quotes, 0.1, 0.03)
	require.NoError(t, err)

	assert.Less(t, withRate.ForwardPrice, flat.ForwardPrice)
	assert.NotEqual(t, flat.Variance, withRate.Variance)
}

func TestEstimate_Errors(t *testing.T) {
	est := NewEstimator(DefaultMinStrikes)

	twoStrikes := chain([]float64{95, 100}, []float64{6, 2}, []float64{1, 3})
	_, err := est.Estimate(twoStrikes, 0.1, 0.02)
	assert.True(t, errors.Is(err, ErrInsufficientStrikes))

	// the same grid is enough once the threshold drops to two
	_, err = NewEstimator(2).Estimate(twoStrikes, 0.1, 0.02)
	assert.NoError(t, err)

	putsOnly := []contracts.OptionQuote{quote(95, contracts.Put, 1), quote(100, contracts.Put, 3)}
	_, err = est.Estimate(putsOnly, 0.1, 0.02)
	assert.True(t, errors.Is(err, ErrMissingContractType))

	_, err = est.Estimate(twoStrikes, 0, 0.02)
	assert.True(t, errors.Is(err, ErrInvalidMaturity))
}

func TestEstimate_ParityChainPositiveVariance(t *testing.T) {
	strikes := []float64{2.3, 2.35, 2.4, 2.45, 2.5, 2.55, 2.6, 2.65, 2.7}
	res, err := NewEstimator(DefaultMinStrikes).Estimate(parityChain(strikes, 2.52, 0.025, 30.0/365), 30.0/365, 0.025)
	require.NoError(t, err)

	assert.InDelta(t, 2.52, res.ForwardPrice, 1e-6)
	assert.Equal(t, 2.5, res.AtTheMoneyStrike)
	assert.Greater(t, res.Variance, 0.0)
}
