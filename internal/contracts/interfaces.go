package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: 입력/출력 저장소 인터페이스 정의는 여기서만

// OptionSource supplies raw option quotes for one underlying
type OptionSource interface {
	LoadOptionQuotes(ctx context.Context, underlying string, from, to time.Time) ([]OptionQuote, error)
}

// RateSource supplies raw tenor quotes
type RateSource interface {
	LoadRateQuotes(ctx context.Context, from, to time.Time) ([]RateQuote, error)
}

// VixStore persists computed records
type VixStore interface {
	SaveRecords(ctx context.Context, underlying string, runID string, records []VixRecord) error
	GetRecords(ctx context.Context, underlying string, from, to time.Time) ([]VixRecord, error)
}
