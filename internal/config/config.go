package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration derived from environment variables.
type Config struct {
	HTTPPort           string
	SnapshotPath       string
	SettingsPath       string
	CatalogPath        string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	OperatorID         string
	NotifyPollInterval time.Duration
	SweepInterval      time.Duration
	StaleAge           time.Duration
	PublicRateLimitRPS int
	AuthRateLimitRPS   int
	LogLevel           string
	FinalRejectRefund  bool
}

// Load reads environment variables using viper and returns a typed config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	bindEnv(v, "port", "PORT", "BGT_PORT")
	bindEnv(v, "snapshot_path", "SNAPSHOT_PATH", "BGT_SNAPSHOT_PATH")
	bindEnv(v, "settings_path", "SETTINGS_PATH", "BGT_SETTINGS_PATH")
	bindEnv(v, "catalog_path", "CATALOG_PATH", "BGT_CATALOG_PATH")
	bindEnv(v, "database_url", "DATABASE_URL", "BGT_DATABASE_URL")
	bindEnv(v, "redis_url", "REDIS_URL", "BGT_REDIS_URL")
	bindEnv(v, "jwt_secret", "JWT_SECRET", "BGT_JWT_SECRET")
	bindEnv(v, "jwt_issuer", "JWT_ISSUER", "BGT_JWT_ISSUER")
	bindEnv(v, "jwt_audience", "JWT_AUDIENCE", "BGT_JWT_AUDIENCE")
	bindEnv(v, "operator_id", "OPERATOR_ID", "BGT_OPERATOR_ID")
	bindEnv(v, "notify_poll_interval", "NOTIFY_POLL_INTERVAL", "BGT_NOTIFY_POLL_INTERVAL")
	bindEnv(v, "sweep_interval", "SWEEP_INTERVAL", "BGT_SWEEP_INTERVAL")
	bindEnv(v, "stale_age", "STALE_AGE", "BGT_STALE_AGE")
	bindEnv(v, "public_rate_limit_rps", "PUBLIC_RATE_LIMIT_RPS", "BGT_PUBLIC_RATE_LIMIT_RPS")
	bindEnv(v, "auth_rate_limit_rps", "AUTH_RATE_LIMIT_RPS", "BGT_AUTH_RATE_LIMIT_RPS")
	bindEnv(v, "log_level", "LOG_LEVEL", "BGT_LOG_LEVEL")
	bindEnv(v, "final_reject_refund", "FINAL_REJECT_REFUND", "BGT_FINAL_REJECT_REFUND")

	v.SetDefault("port", "8080")
	v.SetDefault("snapshot_path", "data/ledger.json")
	v.SetDefault("settings_path", "data/withdrawal_settings.json")
	v.SetDefault("catalog_path", "data/countries.json")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_issuer", "bgtwallet")
	v.SetDefault("jwt_audience", "bgtwallet-api")
	v.SetDefault("operator_id", "")
	v.SetDefault("notify_poll_interval", "10s")
	v.SetDefault("sweep_interval", "1h")
	v.SetDefault("stale_age", "24h")
	v.SetDefault("public_rate_limit_rps", 10)
	v.SetDefault("auth_rate_limit_rps", 100)
	v.SetDefault("log_level", "info")
	v.SetDefault("final_reject_refund", false)

	pollInterval, err := time.ParseDuration(v.GetString("notify_poll_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_POLL_INTERVAL: %w", err)
	}
	sweepInterval, err := time.ParseDuration(v.GetString("sweep_interval"))
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: %w", err)
	}
	staleAge, err := time.ParseDuration(v.GetString("stale_age"))
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_AGE: %w", err)
	}

	cfg := &Config{
		HTTPPort:           v.GetString("port"),
		SnapshotPath:       v.GetString("snapshot_path"),
		SettingsPath:       v.GetString("settings_path"),
		CatalogPath:        v.GetString("catalog_path"),
		DatabaseURL:        v.GetString("database_url"),
		RedisURL:           v.GetString("redis_url"),
		JWTSecret:          v.GetString("jwt_secret"),
		JWTIssuer:          v.GetString("jwt_issuer"),
		JWTAudience:        v.GetString("jwt_audience"),
		OperatorID:         v.GetString("operator_id"),
		NotifyPollInterval: pollInterval,
		SweepInterval:      sweepInterval,
		StaleAge:           staleAge,
		PublicRateLimitRPS: max(v.GetInt("public_rate_limit_rps"), 1),
		AuthRateLimitRPS:   max(v.GetInt("auth_rate_limit_rps"), 1),
		LogLevel:           v.GetString("log_level"),
		FinalRejectRefund:  v.GetBool("final_reject_refund"),
	}

	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if strings.TrimSpace(cfg.OperatorID) == "" {
		return nil, fmt.Errorf("OPERATOR_ID is required")
	}
	if strings.TrimSpace(cfg.JWTIssuer) == "" {
		return nil, fmt.Errorf("JWT_ISSUER is required")
	}
	if strings.TrimSpace(cfg.JWTAudience) == "" {
		return nil, fmt.Errorf("JWT_AUDIENCE is required")
	}

	return cfg, nil
}

func bindEnv(v *viper.Viper, key string, names ...string) {
	args := append([]string{key}, names...)
	_ = v.BindEnv(args...)
}
