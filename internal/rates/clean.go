package rates

import (
	"math"
	"sort"

	"github.com/wonny/ivix/internal/contracts"
)

// Clean sorts rows by date and fills missing quotes per tenor: forward-fill
// from the previous date, then backward-fill from the next one. The input is
// not modified.
func Clean(quotes []contracts.RateQuote) []contracts.RateQuote {
	rows := make([]contracts.RateQuote, len(quotes))
	for i, q := range quotes {
		values := make(map[contracts.Tenor]*float64, len(contracts.AllTenors()))
		for _, tenor := range contracts.AllTenors() {
			if v, ok := q.Get(tenor); ok && !math.IsNaN(v) {
				v := v
				values[tenor] = &v
			} else {
				values[tenor] = nil
			}
		}
		rows[i] = contracts.RateQuote{TradeDate: contracts.DateOnly(q.TradeDate), Values: values}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TradeDate.Before(rows[j].TradeDate)
	})

	for _, tenor := range contracts.AllTenors() {
		// forward fill
		var last *float64
		for i := range rows {
			if v := rows[i].Values[tenor]; v != nil {
				last = v
			} else if last != nil {
				rows[i].Values[tenor] = last
			}
		}

		// backward fill
		var next *float64
		for i := len(rows) - 1; i >= 0; i-- {
			if v := rows[i].Values[tenor]; v != nil {
				next = v
			} else if next != nil {
				rows[i].Values[tenor] = next
			}
		}
	}

	return rows
}
