package contracts

import (
	"fmt"
	"strings"
	"time"
)

// CurveDays is the number of day counts in a dense rate curve (1..365)
const CurveDays = 365

// Tenor is a named point of the quoted interest-rate term structure
type Tenor string

const (
	TenorON Tenor = "ON"
	Tenor1W Tenor = "1W"
	Tenor2W Tenor = "2W"
	Tenor1M Tenor = "1M"
	Tenor3M Tenor = "3M"
	Tenor6M Tenor = "6M"
	Tenor9M Tenor = "9M"
	Tenor1Y Tenor = "1Y"
)

// AllTenors returns the closed tenor set in ascending day-count order
func AllTenors() []Tenor {
	return []Tenor{TenorON, Tenor1W, Tenor2W, Tenor1M, Tenor3M, Tenor6M, Tenor9M, Tenor1Y}
}

// DayCount returns the day count a tenor maps to (0 for unknown tenors)
func (t Tenor) DayCount() int {
	switch t {
	case TenorON:
		return 1
	case Tenor1W:
		return 7
	case Tenor2W:
		return 14
	case Tenor1M:
		return 30
	case Tenor3M:
		return 90
	case Tenor6M:
		return 180
	case Tenor9M:
		return 270
	case Tenor1Y:
		return 365
	default:
		return 0
	}
}

// ParseTenor accepts canonical names and common aliases ("on", "1w", "1y")
func ParseTenor(s string) (Tenor, error) {
	t := Tenor(strings.ToUpper(strings.TrimSpace(s)))
	if t.DayCount() == 0 {
		return "", fmt.Errorf("unknown tenor %q", s)
	}
	return t, nil
}

// RateQuote is one raw row of tenor quotes for a trade date.
// Values are percentages (2.5 == 2.5%); a nil pointer marks a missing quote.
type RateQuote struct {
	TradeDate time.Time
	Values    map[Tenor]*float64
}

// Get returns the percent quote for a tenor and whether it is present
func (q RateQuote) Get(t Tenor) (float64, bool) {
	v, ok := q.Values[t]
	if !ok || v == nil {
		return 0, false
	}
	return *v, true
}

// RateCurve is the dense annualized decimal rate curve for one trade date
type RateCurve struct {
	TradeDate time.Time
	Rates     []float64 // Rates[i] is the rate for day count i+1
}

// At returns the rate for a day count, clamped to [1, CurveDays]
func (c *RateCurve) At(day int) float64 {
	if day < 1 {
		day = 1
	}
	if day > len(c.Rates) {
		day = len(c.Rates)
	}
	return c.Rates[day-1]
}

// Valid reports whether the curve spans the full day-count range
func (c *RateCurve) Valid() bool {
	return c != nil && len(c.Rates) == CurveDays
}
