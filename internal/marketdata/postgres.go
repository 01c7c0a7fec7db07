package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/ivix/internal/contracts"
	"github.com/wonny/ivix/pkg/logger"
)

// Schema creates the input tables
const Schema = `
CREATE SCHEMA IF NOT EXISTS market;

CREATE TABLE IF NOT EXISTS market.option_basic (
	ts_code        TEXT PRIMARY KEY,
	underlying     TEXT NOT NULL,
	call_put       CHAR(1) NOT NULL,
	exercise_price DOUBLE PRECISION NOT NULL,
	maturity_date  DATE NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_option_basic_underlying ON market.option_basic (underlying);

CREATE TABLE IF NOT EXISTS market.option_daily (
	ts_code    TEXT NOT NULL REFERENCES market.option_basic (ts_code),
	trade_date DATE NOT NULL,
	close      DOUBLE PRECISION,
	PRIMARY KEY (ts_code, trade_date)
);

CREATE TABLE IF NOT EXISTS market.shibor (
	trade_date DATE PRIMARY KEY,
	rate_on    DOUBLE PRECISION,
	rate_1w    DOUBLE PRECISION,
	rate_2w    DOUBLE PRECISION,
	rate_1m    DOUBLE PRECISION,
	rate_3m    DOUBLE PRECISION,
	rate_6m    DOUBLE PRECISION,
	rate_9m    DOUBLE PRECISION,
	rate_1y    DOUBLE PRECISION
);
`

// PostgresStore reads and writes option and rate quotes
// ⭐ SSOT: 옵션/금리 입력 테이블 접근은 여기서만
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgresStore creates a new store
func NewPostgresStore(pool *pgxpool.Pool, log *logger.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: log.WithField("module", "marketdata"),
	}
}

// EnsureSchema creates the input tables when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure market schema: %w", err)
	}
	return nil
}

// LoadOptionQuotes implements contracts.OptionSource
func (s *PostgresStore) LoadOptionQuotes(ctx context.Context, underlying string, from, to time.Time) ([]contracts.OptionQuote, error) {
	query := `
		SELECT d.trade_date, b.maturity_date, b.exercise_price, b.call_put, d.close
		FROM market.option_daily d
		JOIN market.option_basic b ON b.ts_code = d.ts_code
		WHERE b.underlying = $1
		  AND d.close IS NOT NULL
		  AND ($2::date IS NULL OR d.trade_date >= $2)
		  AND ($3::date IS NULL OR d.trade_date <= $3)
		ORDER BY d.trade_date, b.maturity_date, b.exercise_price, b.call_put
	`

	rows, err := s.pool.Query(ctx, query, underlying, nullDate(from), nullDate(to))
	if err != nil {
		return nil, fmt.Errorf("query option quotes: %w", err)
	}
	defer rows.Close()

	var quotes []contracts.OptionQuote
	for rows.Next() {
		var q contracts.OptionQuote
		var callPut string
		if err := rows.Scan(&q.TradeDate, &q.MaturityDate, &q.Strike, &callPut, &q.Close); err != nil {
			return nil, err
		}

		typ, err := contracts.ParseContractType(callPut)
		if err != nil {
			s.logger.WithError(err).Warn("Skipping option row")
			continue
		}
		q.Type = typ
		q.TradeDate = contracts.DateOnly(q.TradeDate)
		q.MaturityDate = contracts.DateOnly(q.MaturityDate)

		if err := q.Validate(); err != nil {
			s.logger.WithError(err).Warn("Skipping option row")
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// LoadRateQuotes implements contracts.RateSource
func (s *PostgresStore) LoadRateQuotes(ctx context.Context, from, to time.Time) ([]contracts.RateQuote, error) {
	query := `
		SELECT trade_date, rate_on, rate_1w, rate_2w, rate_1m, rate_3m, rate_6m, rate_9m, rate_1y
		FROM market.shibor
		WHERE ($1::date IS NULL OR trade_date >= $1)
		  AND ($2::date IS NULL OR trade_date <= $2)
		ORDER BY trade_date ASC
	`

	rows, err := s.pool.Query(ctx, query, nullDate(from), nullDate(to))
	if err != nil {
		return nil, fmt.Errorf("query rate quotes: %w", err)
	}
	defer rows.Close()

	tenors := contracts.AllTenors()
	var quotes []contracts.RateQuote
	for rows.Next() {
		var date time.Time
		vals := make([]*float64, len(tenors))
		dest := []any{&date}
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		q := contracts.RateQuote{
			TradeDate: contracts.DateOnly(date),
			Values:    make(map[contracts.Tenor]*float64, len(tenors)),
		}
		for i, t := range tenors {
			q.Values[t] = vals[i]
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

// OptionCode builds the contract code used when importing quotes that carry no exchange code
func OptionCode(underlying string, q contracts.OptionQuote) string {
	cp := "C"
	if q.Type == contracts.Put {
		cp = "P"
	}
	return fmt.Sprintf("%s-%s-%s-%g", underlying, q.MaturityDate.Format("20060102"), cp, q.Strike)
}

// SaveOptionQuotes upserts contracts and daily closes in one batch
func (s *PostgresStore) SaveOptionQuotes(ctx context.Context, underlying string, quotes []contracts.OptionQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	basicQuery := `
		INSERT INTO market.option_basic (ts_code, underlying, call_put, exercise_price, maturity_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ts_code) DO NOTHING
	`
	dailyQuery := `
		INSERT INTO market.option_daily (ts_code, trade_date, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (ts_code, trade_date) DO UPDATE SET close = EXCLUDED.close
	`

	batch := &pgx.Batch{}
	seen := make(map[string]bool)
	for _, q := range quotes {
		code := OptionCode(underlying, q)
		if !seen[code] {
			seen[code] = true
			batch.Queue(basicQuery, code, underlying, string(q.Type)[:1], q.Strike, q.MaturityDate)
		}
		batch.Queue(dailyQuery, code, q.TradeDate, q.Close)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save option quotes: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"contracts": len(seen),
		"quotes":    len(quotes),
	}).Info("Option quotes saved")
	return nil
}

// SaveRateQuotes upserts tenor rows
func (s *PostgresStore) SaveRateQuotes(ctx context.Context, quotes []contracts.RateQuote) error {
	if len(quotes) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.shibor (trade_date, rate_on, rate_1w, rate_2w, rate_1m, rate_3m, rate_6m, rate_9m, rate_1y)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (trade_date) DO UPDATE SET
			rate_on = EXCLUDED.rate_on,
			rate_1w = EXCLUDED.rate_1w,
			rate_2w = EXCLUDED.rate_2w,
			rate_1m = EXCLUDED.rate_1m,
			rate_3m = EXCLUDED.rate_3m,
			rate_6m = EXCLUDED.rate_6m,
			rate_9m = EXCLUDED.rate_9m,
			rate_1y = EXCLUDED.rate_1y
	`

	batch := &pgx.Batch{}
	for _, q := range quotes {
		args := []any{q.TradeDate}
		for _, t := range contracts.AllTenors() {
			args = append(args, q.Values[t])
		}
		batch.Queue(query, args...)
	}

	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save rate quotes: %w", err)
	}

	s.logger.WithField("rows", len(quotes)).Info("Rate quotes saved")
	return nil
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
