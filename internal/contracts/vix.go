package contracts

import "time"

// TermVarianceResult is the variance estimate for one maturity on one date
type TermVarianceResult struct {
	Maturity         float64 `json:"maturity"`
	RiskFreeRate     float64 `json:"risk_free_rate"`
	ForwardPrice     float64 `json:"forward_price"`
	AtTheMoneyStrike float64 `json:"at_the_money_strike"`
	Variance         float64 `json:"variance"`
}

// VixRecord is the computed index entry for one trading date
type VixRecord struct {
	TradeDate    time.Time `json:"trade_date"`
	Vix          float64   `json:"vix"`
	NearTerm     float64   `json:"near_term"`
	NextTerm     float64   `json:"next_term"`
	NearRate     float64   `json:"r_near"`
	NextRate     float64   `json:"r_next"`
	NearVariance float64   `json:"sigma_sq_near"`
	NextVariance float64   `json:"sigma_sq_next"`
	NearForward  float64   `json:"f_near"`
	NextForward  float64   `json:"f_next"`
	Weight       float64   `json:"weight"`
}

// SkipReason explains why a date produced no record
type SkipReason string

const (
	SkipNone                   SkipReason = ""
	SkipNoQuotes               SkipReason = "NO_QUOTES"
	SkipInsufficientMaturities SkipReason = "INSUFFICIENT_MATURITIES"
	SkipMissingContractType    SkipReason = "MISSING_CONTRACT_TYPE"
	SkipInsufficientStrikes    SkipReason = "INSUFFICIENT_STRIKES"
	SkipNegativeVariance       SkipReason = "NEGATIVE_VARIANCE"
	SkipRateUnavailable        SkipReason = "RATE_UNAVAILABLE"
	SkipComputationFailed      SkipReason = "COMPUTATION_FAILED"
)

// String returns the reason name
func (r SkipReason) String() string {
	return string(r)
}

// DateResult is the tagged outcome for one trade date: either a computed
// record or a skip with its reason
type DateResult struct {
	TradeDate time.Time
	Record    *VixRecord
	Reason    SkipReason
	Err       error
}

// Computed reports whether the date produced a record
func (r DateResult) Computed() bool {
	return r.Record != nil
}

// ComputedResult wraps a record
func ComputedResult(rec VixRecord) DateResult {
	return DateResult{TradeDate: rec.TradeDate, Record: &rec}
}

// SkippedResult wraps a skip reason and its cause
func SkippedResult(date time.Time, reason SkipReason, err error) DateResult {
	return DateResult{TradeDate: date, Reason: reason, Err: err}
}
