package rates

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ivix/internal/contracts"
)

var tradeDate = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

func pct(v float64) *float64 { return &v }

// full tenor set without the 2W point: {1,7,30,90,180,270,365}
func sparseTenors() map[contracts.Tenor]float64 {
	return map[contracts.Tenor]float64{
		contracts.TenorON: 0.0150,
		contracts.Tenor1W: 0.0180,
		contracts.Tenor1M: 0.0200,
		contracts.Tenor3M: 0.0220,
		contracts.Tenor6M: 0.0240,
		contracts.Tenor9M: 0.0250,
		contracts.Tenor1Y: 0.0260,
	}
}

func TestResolveCurve_Interpolation(t *testing.T) {
	curve, err := ResolveCurve(tradeDate, sparseTenors())
	require.NoError(t, err)
	require.True(t, curve.Valid())

	// quoted points are reproduced exactly
	assert.InDelta(t, 0.0150, curve.At(1), 1e-12)
	assert.InDelta(t, 0.0200, curve.At(30), 1e-12)
	assert.InDelta(t, 0.0260, curve.At(365), 1e-12)

	// day 200 lies strictly between the 180 and 270 rates
	r200 := curve.At(200)
	assert.Greater(t, r200, curve.At(180))
	assert.Less(t, r200, curve.At(270))
	assert.InDelta(t, 0.0240+(0.0250-0.0240)*20.0/90.0, r200, 1e-12)

	// 14 days interpolates between 1W and 1M
	assert.InDelta(t, 0.0180+(0.0200-0.0180)*7.0/23.0, curve.At(14), 1e-12)
}

func TestResolveCurve_FlatOutsideQuotedRange(t *testing.T) {
	curve, err := ResolveCurve(tradeDate, map[contracts.Tenor]float64{
		contracts.Tenor1W: 0.018,
		contracts.Tenor6M: 0.024,
	})
	require.NoError(t, err)

	for d := 1; d <= 7; d++ {
		assert.InDelta(t, 0.018, curve.At(d), 1e-12, "day %d", d)
	}
	for d := 180; d <= 365; d++ {
		assert.InDelta(t, 0.024, curve.At(d), 1e-12, "day %d", d)
	}
}

func TestResolveCurve_InsufficientTenors(t *testing.T) {
	_, err := ResolveCurve(tradeDate, map[contracts.Tenor]float64{contracts.Tenor1M: 0.02})
	assert.True(t, errors.Is(err, ErrInsufficientTenors))

	_, err = ResolveCurve(tradeDate, nil)
	assert.True(t, errors.Is(err, ErrInsufficientTenors))
}

func TestDayCountFor(t *testing.T) {
	tests := []struct {
		maturity float64
		want     int
	}{
		{0, 1},
		{0.5 / 365, 1},
		{20.0 / 365, 20},
		{200.0 / 365, 200},
		{1.0, 365},
		{400.0 / 365, 365},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DayCountFor(tt.maturity), "maturity %v", tt.maturity)
	}
}

func TestResolver_RateFor(t *testing.T) {
	curve, err := ResolveCurve(tradeDate, sparseTenors())
	require.NoError(t, err)

	r := NewResolver()

	got, err := r.RateFor(curve, 400.0/365)
	require.NoError(t, err)
	assert.Equal(t, curve.At(365), got)

	got, err = r.RateFor(curve, 200.0/365)
	require.NoError(t, err)
	assert.Equal(t, curve.At(200), got)
}

func TestResolver_Fallback(t *testing.T) {
	_, err := NewResolver().RateFor(nil, 0.1)
	assert.True(t, errors.Is(err, ErrRateUnavailable))

	r := NewResolver(WithFallback(DefaultRiskFreeRate))
	got, err := r.RateFor(nil, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.03, got)
}

func TestClean_ForwardThenBackwardFill(t *testing.T) {
	d1 := tradeDate
	d2 := tradeDate.AddDate(0, 0, 1)
	d3 := tradeDate.AddDate(0, 0, 2)

	// 입력 순서는 날짜 역순
	quotes := []contracts.RateQuote{
		{TradeDate: d3, Values: map[contracts.Tenor]*float64{contracts.TenorON: pct(1.3), contracts.Tenor1Y: nil}},
		{TradeDate: d2, Values: map[contracts.Tenor]*float64{contracts.TenorON: nil, contracts.Tenor1Y: pct(2.6)}},
		{TradeDate: d1, Values: map[contracts.Tenor]*float64{contracts.TenorON: pct(1.1), contracts.Tenor1Y: nil}},
	}

	rows := Clean(quotes)
	require.Len(t, rows, 3)
	assert.Equal(t, d1, rows[0].TradeDate)
	assert.Equal(t, d3, rows[2].TradeDate)

	on := func(i int) float64 { v, _ := rows[i].Get(contracts.TenorON); return v }
	oneY := func(i int) float64 { v, _ := rows[i].Get(contracts.Tenor1Y); return v }

	// ON: d2 borrows the prior date (forward fill)
	assert.Equal(t, 1.1, on(0))
	assert.Equal(t, 1.1, on(1))
	assert.Equal(t, 1.3, on(2))

	// 1Y: d3 forward-fills from d2, d1 backward-fills from d2
	assert.Equal(t, 2.6, oneY(0))
	assert.Equal(t, 2.6, oneY(1))
	assert.Equal(t, 2.6, oneY(2))

	// tenors never quoted stay missing
	_, ok := rows[0].Get(contracts.Tenor9M)
	assert.False(t, ok)

	// input untouched
	_, ok = quotes[1].Get(contracts.TenorON)
	assert.False(t, ok)
}

func TestResolveAll(t *testing.T) {
	d1 := tradeDate
	d2 := tradeDate.AddDate(0, 0, 1)
	d3 := tradeDate.AddDate(0, 0, 3)

	quotes := []contracts.RateQuote{
		{TradeDate: d1, Values: map[contracts.Tenor]*float64{contracts.TenorON: pct(1.5), contracts.Tenor1Y: pct(2.5)}},
		{TradeDate: d2, Values: map[contracts.Tenor]*float64{contracts.TenorON: pct(1.6), contracts.Tenor1Y: nil}},
	}

	curves := ResolveAll(quotes)
	assert.Equal(t, 2, curves.Len())

	c2 := curves.Get(d2)
	require.NotNil(t, c2)
	assert.InDelta(t, 0.016, c2.At(1), 1e-12)
	assert.InDelta(t, 0.025, c2.At(365), 1e-12)

	assert.Nil(t, curves.Get(d3))
	assert.NoError(t, curves.Err(d1))
}

func TestResolveAll_SingleTenorDate(t *testing.T) {
	quotes := []contracts.RateQuote{
		{TradeDate: tradeDate, Values: map[contracts.Tenor]*float64{contracts.Tenor3M: pct(2.2)}},
	}

	curves := ResolveAll(quotes)
	assert.Nil(t, curves.Get(tradeDate))
	assert.True(t, errors.Is(curves.Err(tradeDate), ErrInsufficientTenors))
}
