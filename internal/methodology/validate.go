package methodology

import (
	"fmt"
	"math"
)

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	if cfg.Meta.Name == "" {
		return ValidationError{"meta.name", "required"}
	}

	if cfg.Maturity.MinDays < 1 {
		return ValidationError{"maturity.min_days", "must be >= 1"}
	}
	if cfg.Maturity.HorizonDays < 1 || cfg.Maturity.HorizonDays > 365 {
		return ValidationError{"maturity.horizon_days", "must be in [1, 365]"}
	}

	if cfg.Variance.MinStrikes < 2 {
		return ValidationError{"variance.min_strikes", "must be >= 2"}
	}

	r := cfg.Rates.DefaultRiskFreeRate
	if math.IsNaN(r) || r < -0.05 || r > 0.5 {
		return ValidationError{"rates.default_risk_free_rate", "must be a decimal rate in [-0.05, 0.5]"}
	}

	return nil
}
