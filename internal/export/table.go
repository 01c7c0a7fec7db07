package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/ivix/internal/contracts"
)

// WriteTable renders records as a console table
func WriteTable(w io.Writer, records []contracts.VixRecord) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "VIX", "Near T", "Next T", "r Near", "r Next", "F Near", "F Next", "Weight"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, r := range records {
		table.Append([]string{
			r.TradeDate.Format(contracts.DateLayout),
			fmt.Sprintf("%.2f", r.Vix),
			fmt.Sprintf("%.4f", r.NearTerm),
			fmt.Sprintf("%.4f", r.NextTerm),
			fmt.Sprintf("%.4f%%", r.NearRate*100),
			fmt.Sprintf("%.4f%%", r.NextRate*100),
			fmt.Sprintf("%.4f", r.NearForward),
			fmt.Sprintf("%.4f", r.NextForward),
			fmt.Sprintf("%.4f", r.Weight),
		})
	}

	table.Render()
}

// WriteSkips renders the skipped dates with their reasons
func WriteSkips(w io.Writer, results []contracts.DateResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Reason", "Detail"})

	for _, res := range results {
		if res.Computed() {
			continue
		}
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		table.Append([]string{res.TradeDate.Format(contracts.DateLayout), res.Reason.String(), detail})
	}

	table.Render()
}

// WriteSummary renders summary statistics and skip counts
func WriteSummary(w io.Writer, s Summary, skips map[contracts.SkipReason]int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"count", fmt.Sprintf("%d", s.Count)})
	if s.Count > 0 {
		table.Append([]string{"mean", fmt.Sprintf("%.2f", s.Mean)})
		table.Append([]string{"std", fmt.Sprintf("%.2f", s.Std)})
		table.Append([]string{"min", fmt.Sprintf("%.2f", s.Min)})
		table.Append([]string{"max", fmt.Sprintf("%.2f", s.Max)})
		table.Append([]string{"last", fmt.Sprintf("%.2f (%s)", s.Last, s.LastDate.Format(contracts.DateLayout))})
	}

	reasons := make([]string, 0, len(skips))
	for r := range skips {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		table.Append([]string{"skipped " + r, fmt.Sprintf("%d", skips[contracts.SkipReason(r)])})
	}

	table.Render()
}

// WriteCurve renders a resolved rate curve at the given day counts
func WriteCurve(w io.Writer, curve *contracts.RateCurve, days []int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Days", "Rate"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, d := range days {
		table.Append([]string{fmt.Sprintf("%d", d), fmt.Sprintf("%.4f%%", curve.At(d)*100)})
	}

	table.Render()
}
