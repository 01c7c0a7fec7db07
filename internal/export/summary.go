package export

import (
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/ivix/internal/contracts"
)

// Summary holds descriptive statistics of a VIX series
type Summary struct {
	Count    int
	Mean     float64
	Std      float64 // sample standard deviation, 0 when Count < 2
	Min      float64
	Max      float64
	Last     float64
	LastDate time.Time
}

// Summarize computes statistics over records in series order
func Summarize(records []contracts.VixRecord) Summary {
	if len(records) == 0 {
		return Summary{}
	}

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.Vix
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		std = 0
	}

	last := records[len(records)-1]
	return Summary{
		Count:    len(values),
		Mean:     mean,
		Std:      std,
		Min:      floats.Min(values),
		Max:      floats.Max(values),
		Last:     last.Vix,
		LastDate: last.TradeDate,
	}
}

// SkipCounts tallies skipped dates by reason
func SkipCounts(results []contracts.DateResult) map[contracts.SkipReason]int {
	counts := make(map[contracts.SkipReason]int)
	for _, res := range results {
		if !res.Computed() {
			counts[res.Reason]++
		}
	}
	return counts
}
