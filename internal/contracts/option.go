package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// DaysPerYear is the year convention used for time to maturity
const DaysPerYear = 365

// DateLayout is the canonical date format for records and flags
const DateLayout = "2006-01-02"

// ContractType distinguishes calls from puts
type ContractType string

const (
	Call ContractType = "CALL"
	Put  ContractType = "PUT"
)

// ParseContractType maps exchange codes ('C'/'P') and names to ContractType
func ParseContractType(s string) (ContractType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "C", "CALL":
		return Call, nil
	case "P", "PUT":
		return Put, nil
	default:
		return "", fmt.Errorf("unknown contract type %q", s)
	}
}

// OptionQuote is one observed close price for one contract on one trading date
// ⭐ SSOT: 옵션 시세 입력 형식은 여기서만 정의
type OptionQuote struct {
	TradeDate    time.Time    `json:"trade_date"`
	MaturityDate time.Time    `json:"maturity_date"`
	Strike       float64      `json:"strike"`
	Type         ContractType `json:"type"`
	Close        float64      `json:"close"`
}

// DaysToMaturity returns calendar days between trade date and maturity
func (q OptionQuote) DaysToMaturity() int {
	return DaysBetween(q.TradeDate, q.MaturityDate)
}

// TimeToMaturity returns the maturity in years (365-day convention)
func (q OptionQuote) TimeToMaturity() float64 {
	return float64(q.DaysToMaturity()) / DaysPerYear
}

// Validate checks structural constraints of a quote
func (q OptionQuote) Validate() error {
	if q.Strike <= 0 || math.IsNaN(q.Strike) {
		return fmt.Errorf("strike must be positive, got %v", q.Strike)
	}
	if q.Close < 0 || math.IsNaN(q.Close) {
		return fmt.Errorf("close must be non-negative, got %v", q.Close)
	}
	if q.Type != Call && q.Type != Put {
		return fmt.Errorf("invalid contract type %q", q.Type)
	}
	return nil
}

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DateOnly(b).Sub(DateOnly(a)).Hours() / 24))
}
