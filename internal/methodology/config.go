package methodology

// Config는 VIX 산출 방법론 파라미터
type Config struct {
	Meta     Meta     `yaml:"meta" json:"meta"`
	Maturity Maturity `yaml:"maturity" json:"maturity"`
	Variance Variance `yaml:"variance" json:"variance"`
	Rates    Rates    `yaml:"rates" json:"rates"`
}

// Meta 메타 정보
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Maturity 만기 선택 규칙
type Maturity struct {
	MinDays     int `yaml:"min_days" json:"min_days"`         // 이 일수 미만 만기는 제외 (기본 7)
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"` // 목표 만기 (기본 30)
}

// Variance 단일 만기 분산 추정
type Variance struct {
	MinStrikes int `yaml:"min_strikes" json:"min_strikes"` // call/put 쌍 최소 개수
}

// Rates 무위험 이자율
type Rates struct {
	DefaultRiskFreeRate float64 `yaml:"default_risk_free_rate" json:"default_risk_free_rate"`
	FallbackEnabled     bool    `yaml:"fallback_enabled" json:"fallback_enabled"`
}

// Default returns the standard 30-day methodology
func Default() *Config {
	return &Config{
		Meta: Meta{
			Name:    "cboe_vix",
			Version: "1",
		},
		Maturity: Maturity{
			MinDays:     7,
			HorizonDays: 30,
		},
		Variance: Variance{
			MinStrikes: 3,
		},
		Rates: Rates{
			DefaultRiskFreeRate: 0.03,
			FallbackEnabled:     true,
		},
	}
}
