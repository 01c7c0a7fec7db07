package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/pkg/logger"
)

const optionsCSV = `trade_date,maturity_date,strike,call_put,close
20240105,20240124,2.5,C,0.0650
20240105,20240124,2.5,P,0.0420
2024-01-08,2024-01-24,2.55,P,0.0710
20240105,20240124,-1,C,0.01
20240105,20240124,2.6,X,0.01
`

const ratesCSV = `date,on,1w,2w,1m,3m,6m,9m,1y
20240105,1.6,1.7,,2.0,2.2,,,2.5
20240108,nan,1.72,1.8,2.05,2.25,2.3,2.4,2.5
`

func date(s string) time.Time {
	t, _ := time.Parse(contracts.DateLayout, s)
	return t
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"20240105", date("2024-01-05"), false},
		{"2024-01-05", date("2024-01-05"), false},
		{" 2024-01-05 ", date("2024-01-05"), false},
		{"05/01/2024", time.Time{}, true},
		{"", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadOptionQuotes(t *testing.T) {
	quotes, err := ReadOptionQuotes(strings.NewReader(optionsCSV), time.Time{}, time.Time{}, logger.NewNop())
	require.NoError(t, err)

	// 음수 행사가와 알 수 없는 유형은 건너뜀
	require.Len(t, quotes, 3)
	assert.Equal(t, contracts.OptionQuote{
		TradeDate:    date("2024-01-05"),
		MaturityDate: date("2024-01-24"),
		Strike:       2.5,
		Type:         contracts.Call,
		Close:        0.065,
	}, quotes[0])
	assert.Equal(t, contracts.Put, quotes[1].Type)
	assert.Equal(t, date("2024-01-08"), quotes[2].TradeDate)
}

func TestReadOptionQuotes_DateRange(t *testing.T) {
	quotes, err := ReadOptionQuotes(strings.NewReader(optionsCSV), date("2024-01-06"), time.Time{}, logger.NewNop())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 2.55, quotes[0].Strike)
}

func TestReadOptionQuotes_MissingClose(t *testing.T) {
	in := "trade_date,maturity_date,strike,call_put,close\n" +
		"2024-01-05,2024-01-25,2.5,C,\n" +
		"2024-01-05,2024-01-25,2.5,P,nan\n" +
		"2024-01-05,2024-01-25,2.5,P,abc\n" +
		"2024-01-05,2024-01-25,2.6,C,0.04\n"

	quotes, err := ReadOptionQuotes(strings.NewReader(in), time.Time{}, time.Time{}, logger.NewNop())
	require.NoError(t, err)

	// 종가가 비거나 숫자가 아닌 행은 0 가격이 아니라 건너뜀
	require.Len(t, quotes, 1)
	assert.Equal(t, 2.6, quotes[0].Strike)
	assert.Equal(t, 0.04, quotes[0].Close)
}

func TestReadRateQuotes_BlankIsMissing(t *testing.T) {
	quotes, err := ReadRateQuotes(strings.NewReader(ratesCSV), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, quotes, 2)

	v, ok := quotes[0].Get(contracts.TenorON)
	assert.True(t, ok)
	assert.Equal(t, 1.6, v)

	_, ok = quotes[0].Get(contracts.Tenor2W)
	assert.False(t, ok)
	_, ok = quotes[1].Get(contracts.TenorON)
	assert.False(t, ok, "nan is treated as missing")

	v, ok = quotes[1].Get(contracts.Tenor9M)
	assert.True(t, ok)
	assert.Equal(t, 2.4, v)
}

func TestReadRateQuotes_InvalidCell(t *testing.T) {
	in := "date,on,1w,2w,1m,3m,6m,9m,1y\n20240105,abc,,,,,,,\n"
	_, err := ReadRateQuotes(strings.NewReader(in), time.Time{}, time.Time{})
	assert.ErrorContains(t, err, "line 2")
}

func TestCSVLoader(t *testing.T) {
	dir := t.TempDir()
	optPath := filepath.Join(dir, "options.csv")
	ratePath := filepath.Join(dir, "rates.csv")
	require.NoError(t, os.WriteFile(optPath, []byte(optionsCSV), 0o644))
	require.NoError(t, os.WriteFile(ratePath, []byte(ratesCSV), 0o644))

	loader := NewCSVLoader(optPath, ratePath, logger.NewNop())
	ctx := context.Background()

	opts, err := loader.LoadOptionQuotes(ctx, "ignored", time.Time{}, date("2024-01-05"))
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	rates, err := loader.LoadRateQuotes(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, rates, 2)

	noRates := NewCSVLoader(optPath, "", logger.NewNop())
	rates, err = noRates.LoadRateQuotes(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, rates)

	_, err = NewCSVLoader(filepath.Join(dir, "missing.csv"), "", logger.NewNop()).
		LoadOptionQuotes(ctx, "", time.Time{}, time.Time{})
	assert.Error(t, err)
}

func TestOptionCode(t *testing.T) {
	q := contracts.OptionQuote{MaturityDate: date("2024-01-24"), Strike: 2.55, Type: contracts.Put}
	assert.Equal(t, "510050.SH-20240124-P-2.55", OptionCode("510050.SH", q))
}
