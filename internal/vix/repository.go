package vix

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/ivix/internal/contracts"
)

// Schema creates the output tables
const Schema = `
CREATE SCHEMA IF NOT EXISTS analytics;

CREATE TABLE IF NOT EXISTS analytics.vix_daily (
	underlying     TEXT        NOT NULL,
	trade_date     DATE        NOT NULL,
	vix            DOUBLE PRECISION NOT NULL,
	near_term      DOUBLE PRECISION NOT NULL,
	next_term      DOUBLE PRECISION NOT NULL,
	r_near         DOUBLE PRECISION NOT NULL,
	r_next         DOUBLE PRECISION NOT NULL,
	sigma_sq_near  DOUBLE PRECISION NOT NULL,
	sigma_sq_next  DOUBLE PRECISION NOT NULL,
	f_near         DOUBLE PRECISION NOT NULL,
	f_next         DOUBLE PRECISION NOT NULL,
	weight         DOUBLE PRECISION NOT NULL,
	run_id         UUID        NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (underlying, trade_date)
);

CREATE TABLE IF NOT EXISTS analytics.vix_runs (
	run_id           UUID        PRIMARY KEY,
	underlying       TEXT        NOT NULL,
	date_from        DATE,
	date_to          DATE,
	methodology_hash TEXT        NOT NULL,
	computed         INT         NOT NULL,
	skipped          INT         NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Repository implements contracts.VixStore on PostgreSQL
// ⭐ SSOT: VIX 결과 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new VIX repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// EnsureSchema creates the output tables when missing
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure vix schema: %w", err)
	}
	return nil
}

// SaveRecords upserts records in one batch
func (r *Repository) SaveRecords(ctx context.Context, underlying string, runID string, records []contracts.VixRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO analytics.vix_daily (
			underlying, trade_date, vix, near_term, next_term, r_near, r_next,
			sigma_sq_near, sigma_sq_next, f_near, f_next, weight, run_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (underlying, trade_date) DO UPDATE SET
			vix = EXCLUDED.vix,
			near_term = EXCLUDED.near_term,
			next_term = EXCLUDED.next_term,
			r_near = EXCLUDED.r_near,
			r_next = EXCLUDED.r_next,
			sigma_sq_near = EXCLUDED.sigma_sq_near,
			sigma_sq_next = EXCLUDED.sigma_sq_next,
			f_near = EXCLUDED.f_near,
			f_next = EXCLUDED.f_next,
			weight = EXCLUDED.weight,
			run_id = EXCLUDED.run_id,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(query,
			underlying, rec.TradeDate, rec.Vix, rec.NearTerm, rec.NextTerm, rec.NearRate, rec.NextRate,
			rec.NearVariance, rec.NextVariance, rec.NearForward, rec.NextForward, rec.Weight, runID,
		)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save vix records: %w", err)
	}
	return nil
}

// GetRecords retrieves stored records within [from, to] ordered by date
func (r *Repository) GetRecords(ctx context.Context, underlying string, from, to time.Time) ([]contracts.VixRecord, error) {
	query := `
		SELECT trade_date, vix, near_term, next_term, r_near, r_next,
			sigma_sq_near, sigma_sq_next, f_near, f_next, weight
		FROM analytics.vix_daily
		WHERE underlying = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := r.pool.Query(ctx, query, underlying, from, to)
	if err != nil {
		return nil, fmt.Errorf("query vix records: %w", err)
	}
	defer rows.Close()

	var records []contracts.VixRecord
	for rows.Next() {
		var rec contracts.VixRecord
		if err := rows.Scan(
			&rec.TradeDate, &rec.Vix, &rec.NearTerm, &rec.NextTerm, &rec.NearRate, &rec.NextRate,
			&rec.NearVariance, &rec.NextVariance, &rec.NearForward, &rec.NextForward, &rec.Weight,
		); err != nil {
			return nil, err
		}
		rec.TradeDate = contracts.DateOnly(rec.TradeDate)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// RunInfo describes one persisted computation run
type RunInfo struct {
	RunID           string
	Underlying      string
	From            time.Time
	To              time.Time
	MethodologyHash string
	Computed        int
	Skipped         int
}

// SaveRun records run metadata
func (r *Repository) SaveRun(ctx context.Context, run RunInfo) error {
	query := `
		INSERT INTO analytics.vix_runs (run_id, underlying, date_from, date_to, methodology_hash, computed, skipped)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		run.RunID, run.Underlying, nullDate(run.From), nullDate(run.To), run.MethodologyHash, run.Computed, run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("save vix run: %w", err)
	}
	return nil
}

func nullDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
