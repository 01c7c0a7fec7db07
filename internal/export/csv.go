package export

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/wonny/ivix/internal/contracts"
)

// Row is the flat tabular form of a VixRecord
type Row struct {
	Date         string  `csv:"date"`
	Vix          float64 `csv:"vix"`
	NearTerm     float64 `csv:"near_term"`
	NextTerm     float64 `csv:"next_term"`
	NearRate     float64 `csv:"r_near"`
	NextRate     float64 `csv:"r_next"`
	NearVariance float64 `csv:"sigma_sq_near"`
	NextVariance float64 `csv:"sigma_sq_next"`
	NearForward  float64 `csv:"F_near"`
	NextForward  float64 `csv:"F_next"`
	Weight       float64 `csv:"weight"`
}

// Rows flattens records in order
func Rows(records []contracts.VixRecord) []*Row {
	rows := make([]*Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, &Row{
			Date:         r.TradeDate.Format(contracts.DateLayout),
			Vix:          r.Vix,
			NearTerm:     r.NearTerm,
			NextTerm:     r.NextTerm,
			NearRate:     r.NearRate,
			NextRate:     r.NextRate,
			NearVariance: r.NearVariance,
			NextVariance: r.NextVariance,
			NearForward:  r.NearForward,
			NextForward:  r.NextForward,
			Weight:       r.Weight,
		})
	}
	return rows
}

// WriteCSV writes records as CSV with a header row
func WriteCSV(w io.Writer, records []contracts.VixRecord) error {
	rows := Rows(records)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write vix csv: %w", err)
	}
	return nil
}

// WriteCSVFile writes records to path, replacing any existing file
func WriteCSVFile(path string, records []contracts.VixRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	rows := Rows(records)
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return fmt.Errorf("write vix csv: %w", err)
	}
	return nil
}
