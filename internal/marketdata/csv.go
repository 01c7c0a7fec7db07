package marketdata

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/pkg/logger"
)

// optionRow is one line of the option quote CSV
type optionRow struct {
	TradeDate    string  `csv:"trade_date"`
	MaturityDate string  `csv:"maturity_date"`
	Strike       float64 `csv:"strike"`
	CallPut      string  `csv:"call_put"`
	Close        string  `csv:"close"`
}

// rateRow is one line of the tenor rate CSV (percent, blank = missing)
type rateRow struct {
	Date string `csv:"date"`
	ON   string `csv:"on"`
	W1   string `csv:"1w"`
	W2   string `csv:"2w"`
	M1   string `csv:"1m"`
	M3   string `csv:"3m"`
	M6   string `csv:"6m"`
	M9   string `csv:"9m"`
	Y1   string `csv:"1y"`
}

func (r rateRow) cells() map[contracts.Tenor]string {
	return map[contracts.Tenor]string{
		contracts.TenorON: r.ON,
		contracts.Tenor1W: r.W1,
		contracts.Tenor2W: r.W2,
		contracts.Tenor1M: r.M1,
		contracts.Tenor3M: r.M3,
		contracts.Tenor6M: r.M6,
		contracts.Tenor9M: r.M9,
		contracts.Tenor1Y: r.Y1,
	}
}

// CSVLoader reads option and rate quotes from CSV files.
// The option file holds one underlying, so the underlying argument is ignored.
type CSVLoader struct {
	optionsPath string
	ratesPath   string
	logger      *logger.Logger
}

// NewCSVLoader creates a loader for the given files
func NewCSVLoader(optionsPath, ratesPath string, log *logger.Logger) *CSVLoader {
	return &CSVLoader{
		optionsPath: optionsPath,
		ratesPath:   ratesPath,
		logger:      log.WithField("module", "csv_loader"),
	}
}

// LoadOptionQuotes implements contracts.OptionSource
func (l *CSVLoader) LoadOptionQuotes(_ context.Context, _ string, from, to time.Time) ([]contracts.OptionQuote, error) {
	f, err := os.Open(l.optionsPath)
	if err != nil {
		return nil, fmt.Errorf("open options csv: %w", err)
	}
	defer f.Close()

	return ReadOptionQuotes(f, from, to, l.logger)
}

// LoadRateQuotes implements contracts.RateSource
func (l *CSVLoader) LoadRateQuotes(_ context.Context, from, to time.Time) ([]contracts.RateQuote, error) {
	if l.ratesPath == "" {
		return nil, nil
	}

	f, err := os.Open(l.ratesPath)
	if err != nil {
		return nil, fmt.Errorf("open rates csv: %w", err)
	}
	defer f.Close()

	return ReadRateQuotes(f, from, to)
}

// ReadOptionQuotes parses option rows within [from, to]. Rows that fail
// validation are logged and skipped.
func ReadOptionQuotes(r io.Reader, from, to time.Time, log *logger.Logger) ([]contracts.OptionQuote, error) {
	var rows []*optionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse options csv: %w", err)
	}

	quotes := make([]contracts.OptionQuote, 0, len(rows))
	for i, row := range rows {
		q, err := row.quote()
		if err != nil {
			log.WithError(err).WithField("line", i+2).Warn("Skipping option row")
			continue
		}
		if !inRange(q.TradeDate, from, to) {
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (row *optionRow) quote() (contracts.OptionQuote, error) {
	trade, err := ParseDate(row.TradeDate)
	if err != nil {
		return contracts.OptionQuote{}, err
	}
	maturity, err := ParseDate(row.MaturityDate)
	if err != nil {
		return contracts.OptionQuote{}, err
	}
	typ, err := contracts.ParseContractType(row.CallPut)
	if err != nil {
		return contracts.OptionQuote{}, err
	}
	// 종가 누락 행은 0 가격으로 취급하지 않음 (DB 경로의 close IS NOT NULL과 동일)
	closePrice, err := parseCell(row.Close)
	if err != nil {
		return contracts.OptionQuote{}, fmt.Errorf("invalid close %q: %w", row.Close, err)
	}
	if closePrice == nil {
		return contracts.OptionQuote{}, fmt.Errorf("missing close")
	}

	q := contracts.OptionQuote{
		TradeDate:    trade,
		MaturityDate: maturity,
		Strike:       row.Strike,
		Type:         typ,
		Close:        *closePrice,
	}
	return q, q.Validate()
}

// ReadRateQuotes parses rate rows within [from, to]
func ReadRateQuotes(r io.Reader, from, to time.Time) ([]contracts.RateQuote, error) {
	var rows []*rateRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse rates csv: %w", err)
	}

	quotes := make([]contracts.RateQuote, 0, len(rows))
	for i, row := range rows {
		date, err := ParseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("rates csv line %d: %w", i+2, err)
		}
		if !inRange(date, from, to) {
			continue
		}

		values := make(map[contracts.Tenor]*float64, len(contracts.AllTenors()))
		for tenor, cell := range row.cells() {
			v, err := parseCell(cell)
			if err != nil {
				return nil, fmt.Errorf("rates csv line %d, %s: %w", i+2, tenor, err)
			}
			values[tenor] = v
		}
		quotes = append(quotes, contracts.RateQuote{TradeDate: date, Values: values})
	}
	return quotes, nil
}

// ParseDate accepts YYYYMMDD and YYYY-MM-DD
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := contracts.DateLayout
	if len(s) == 8 && !strings.Contains(s, "-") {
		layout = "20060102"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return t, nil
}

func parseCell(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func inRange(d, from, to time.Time) bool {
	d = contracts.DateOnly(d)
	if !from.IsZero() && d.Before(contracts.DateOnly(from)) {
		return false
	}
	if !to.IsZero() && d.After(contracts.DateOnly(to)) {
		return false
	}
	return true
}
