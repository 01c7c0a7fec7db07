package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	Env  string // development, staging, production
	Port string // API 서버 포트

	// compute API 호출 제한 (초당 요청, 버스트)와 요청당 계산 제한 시간
	ComputeRate    float64
	ComputeBurst   int
	ComputeTimeout time.Duration

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// VIX calculation
	VIX VIXConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	TTL      time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// VIXConfig holds calculation settings
type VIXConfig struct {
	Underlying      string // 옵션 기초자산 코드 (예: 510050.SH)
	Workers         int    // 병렬 계산 워커 수
	MethodologyFile string // 방법론 YAML 경로 (비어 있으면 기본값)
	RefreshDays     int    // 스케줄러가 재계산하는 최근 일수
	RefreshSchedule string // cron 표현식 (초 포함)
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("API_PORT", "8080"),

		ComputeRate:    getEnvAsFloat("API_COMPUTE_RATE", 1),
		ComputeBurst:   getEnvAsInt("API_COMPUTE_BURST", 2),
		ComputeTimeout: getEnvAsDuration("API_COMPUTE_TIMEOUT", "45s"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			TTL:      getEnvAsDuration("REDIS_TTL", "24h"),
		},

		VIX: VIXConfig{
			Underlying:      getEnv("VIX_UNDERLYING", "510050.SH"),
			Workers:         getEnvAsInt("VIX_WORKERS", 4),
			MethodologyFile: getEnv("VIX_METHODOLOGY_FILE", ""),
			RefreshDays:     getEnvAsInt("VIX_REFRESH_DAYS", 10),
			RefreshSchedule: getEnv("VIX_REFRESH_SCHEDULE", "0 30 17 * * 1-5"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
// DATABASE_URL은 CSV 모드에서 필요 없으므로 여기서 강제하지 않음 (RequireDatabase 참고)
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.VIX.Workers < 1 {
		return fmt.Errorf("VIX_WORKERS must be >= 1")
	}

	if c.ComputeRate <= 0 || c.ComputeBurst < 1 {
		return fmt.Errorf("API_COMPUTE_RATE must be > 0 and API_COMPUTE_BURST >= 1")
	}

	if c.ComputeTimeout <= 0 {
		return fmt.Errorf("API_COMPUTE_TIMEOUT must be > 0")
	}

	if c.VIX.RefreshDays < 1 {
		return fmt.Errorf("VIX_REFRESH_DAYS must be >= 1")
	}

	return nil
}

// RequireDatabase returns an error when no database URL is configured
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
