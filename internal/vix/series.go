package vix

import (
	"context"
	"iter"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/internal/rates"
)

// Input is the pre-loaded tabular data a series is computed from
type Input struct {
	Options []contracts.OptionQuote
	Rates   []contracts.RateQuote
	From    time.Time // zero = unbounded
	To      time.Time // zero = unbounded
}

// dayBatch is the option chain of one trade date
type dayBatch struct {
	date    time.Time
	options []contracts.OptionQuote
}

// groupByDate buckets options by trade date within [from, to], ascending
func groupByDate(options []contracts.OptionQuote, from, to time.Time) []dayBatch {
	from, to = contracts.DateOnly(from), contracts.DateOnly(to)
	byDate := make(map[time.Time][]contracts.OptionQuote)
	for _, q := range options {
		d := contracts.DateOnly(q.TradeDate)
		if !from.IsZero() && d.Before(from) {
			continue
		}
		if !to.IsZero() && d.After(to) {
			continue
		}
		byDate[d] = append(byDate[d], q)
	}

	batches := make([]dayBatch, 0, len(byDate))
	for d, qs := range byDate {
		batches = append(batches, dayBatch{date: d, options: qs})
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].date.Before(batches[j].date) })
	return batches
}

// Series returns the per-date results ordered by trade date. Nothing is
// computed until the sequence is ranged over; ranging again recomputes from
// the same input.
func (c *Calculator) Series(in Input) iter.Seq[contracts.DateResult] {
	return func(yield func(contracts.DateResult) bool) {
		curves := rates.ResolveAll(in.Rates)
		computed, skipped := 0, 0

		for _, batch := range groupByDate(in.Options, in.From, in.To) {
			res := c.ComputeDate(batch.date, batch.options, curves.Get(batch.date))
			c.logResult(res, curves)
			if res.Computed() {
				computed++
			} else {
				skipped++
			}
			if !yield(res) {
				return
			}
		}

		c.logger.WithFields(map[string]interface{}{
			"computed": computed,
			"skipped":  skipped,
		}).Info("VIX series computed")
	}
}

// Records yields only computed records, matching the plain index output
func (c *Calculator) Records(in Input) iter.Seq[contracts.VixRecord] {
	return func(yield func(contracts.VixRecord) bool) {
		for res := range c.Series(in) {
			if !res.Computed() {
				continue
			}
			if !yield(*res.Record) {
				return
			}
		}
	}
}

// ComputeParallel maps trade dates onto at most workers goroutines and
// returns results in trade-date order. It stops early only on ctx cancellation.
func (c *Calculator) ComputeParallel(ctx context.Context, in Input, workers int) ([]contracts.DateResult, error) {
	if workers < 1 {
		workers = 1
	}

	curves := rates.ResolveAll(in.Rates)
	batches := groupByDate(in.Options, in.From, in.To)
	results := make([]contracts.DateResult, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, batch := range batches {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := c.ComputeDate(batch.date, batch.options, curves.Get(batch.date))
			c.logResult(res, curves)
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// Collect drains computed records from results
func Collect(results []contracts.DateResult) []contracts.VixRecord {
	records := make([]contracts.VixRecord, 0, len(results))
	for _, res := range results {
		if res.Computed() {
			records = append(records, *res.Record)
		}
	}
	return records
}

func (c *Calculator) logResult(res contracts.DateResult, curves *rates.Curves) {
	date := res.TradeDate.Format(contracts.DateLayout)

	if err := curves.Err(res.TradeDate); err != nil {
		c.logger.WithError(err).WithField("date", date).Debug("Rate curve unresolved")
	}

	if res.Computed() {
		c.logger.WithFields(map[string]interface{}{
			"date":   date,
			"vix":    res.Record.Vix,
			"weight": res.Record.Weight,
		}).Debug("VIX computed")
		return
	}

	log := c.logger.WithFields(map[string]interface{}{
		"date":   date,
		"reason": res.Reason.String(),
	})
	if res.Err != nil {
		log = log.WithError(res.Err)
	}
	log.Debug("Date skipped")
}
