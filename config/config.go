/*
Package config loads server configuration from the environment (and an
optional .env file) via viper. Engine semantics such as the fee rate
and the withdrawal minimum are configurable here so staging environments
can run with cheaper numbers; production ships the defaults.
*/
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server binary needs to start.
type Config struct {
	// Port the HTTP API listens on.
	Port int
	// DBPath is the SQLite database file; ":memory:" for ephemeral runs.
	DBPath string
	// FeeRate is the withdrawal fee fraction, e.g. 0.12.
	FeeRate float64
	// MinWithdrawal is the smallest accepted gross withdrawal.
	MinWithdrawal float64
	// AccrualInterval is how often the scheduler attempts a daily accrual
	// run. The run itself is idempotent per UTC day, so a short interval
	// only costs cheap no-op passes.
	AccrualInterval time.Duration
	// SchedulerEnabled turns the in-process accrual scheduler on or off.
	// Off is useful when accrual is driven externally (cron hitting the
	// admin endpoint).
	SchedulerEnabled bool
	// AllowedOrigins is the CORS allow-list for the API.
	AllowedOrigins []string
}

// Load reads configuration from the environment, with an optional .env
// file for local development. Missing values fall back to defaults.
func Load() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig() // .env is optional

	v.SetDefault("PORT", 8080)
	v.SetDefault("DB_PATH", "invest.db")
	v.SetDefault("FEE_RATE", 0.12)
	v.SetDefault("MIN_WITHDRAWAL", 50.0)
	v.SetDefault("ACCRUAL_INTERVAL", "1h")
	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("ALLOWED_ORIGINS", "*")

	cfg := Config{
		Port:             v.GetInt("PORT"),
		DBPath:           v.GetString("DB_PATH"),
		FeeRate:          v.GetFloat64("FEE_RATE"),
		MinWithdrawal:    v.GetFloat64("MIN_WITHDRAWAL"),
		AccrualInterval:  v.GetDuration("ACCRUAL_INTERVAL"),
		SchedulerEnabled: v.GetBool("SCHEDULER_ENABLED"),
		AllowedOrigins:   v.GetStringSlice("ALLOWED_ORIGINS"),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT %d", cfg.Port)
	}
	if cfg.FeeRate < 0 || cfg.FeeRate >= 1 {
		return Config{}, fmt.Errorf("FEE_RATE must be in [0,1), got %v", cfg.FeeRate)
	}
	if cfg.MinWithdrawal < 0 {
		return Config{}, fmt.Errorf("MIN_WITHDRAWAL must be non-negative, got %v", cfg.MinWithdrawal)
	}
	if cfg.AccrualInterval <= 0 {
		return Config{}, fmt.Errorf("ACCRUAL_INTERVAL must be positive, got %v", cfg.AccrualInterval)
	}
	return cfg, nil
}
