package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the audit service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	RetentionDays     int
	PurgeDays         int
	OTPUsedBuffer     time.Duration
	AnalyticsWindow   int
	AnalyticsCacheTTL time.Duration
	SchedulerEnabled  bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("MARKETBAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Marketbay Audit API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("retention.days", 90)
	v.SetDefault("purge.days", 180)
	v.SetDefault("otp.used_buffer", "10m")
	v.SetDefault("analytics.window_days", 7)
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("scheduler.enabled", true)

	buffer, err := time.ParseDuration(v.GetString("otp.used_buffer"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid otp used buffer: %w", err)
	}

	ttl, err := time.ParseDuration(v.GetString("analytics.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid analytics cache ttl: %w", err)
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		RedisURL:          v.GetString("redis.url"),
		JWTSecret:         v.GetString("jwt.secret"),
		RetentionDays:     v.GetInt("retention.days"),
		PurgeDays:         v.GetInt("purge.days"),
		OTPUsedBuffer:     buffer,
		AnalyticsWindow:   v.GetInt("analytics.window_days"),
		AnalyticsCacheTTL: ttl,
		SchedulerEnabled:  v.GetBool("scheduler.enabled"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 90
	}
	if cfg.PurgeDays <= cfg.RetentionDays {
		return Config{}, fmt.Errorf("purge threshold must exceed the retention threshold")
	}
	if cfg.AnalyticsWindow <= 0 {
		cfg.AnalyticsWindow = 7
	}

	return cfg, nil
}
