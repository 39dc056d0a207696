package config

import (
	"time"

	"SafeHaven/pkg/logger"
	"SafeHaven/pkg/util"
)

type Config struct {
	DBDriver  string `env:"DB_DRIVER"`
	DSN       string `env:"DSN"`
	Addr      string `env:"ADDR"`
	Mode      string `env:"MODE"`
	APIPrefix string `env:"API_PREFIX"`

	Log logger.LogConfig

	// Shared secret with the auth service that mints bearer tokens.
	AuthSecret string `env:"JWT_SECRET"`

	// Escalation tuning.
	AlertTimeout          time.Duration `env:"ALERT_TIMEOUT"`
	MaxFallbackAttempts   int           `env:"MAX_FALLBACK_ATTEMPTS"`
	EnforceCoverageRadius bool          `env:"ENFORCE_COVERAGE_RADIUS"`
	SweepCron             string        `env:"ESCALATION_SWEEP_CRON"`

	RateLimit string `env:"RATE_LIMIT"`
	CacheType string `env:"CACHE_TYPE"`

	PushEnabled bool   `env:"PUSH_ENABLED"`
	PushURL     string `env:"EXPO_PUSH_URL"`

	MediaStore string `env:"MEDIA_STORE"` // "minio", "local" or empty to disable
	MediaDir   string `env:"MEDIA_DIR"`
}

var GlobalConfig *Config

func Load() error {
	env := util.GetEnv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		return err
	}

	GlobalConfig = &Config{
		DBDriver:  util.GetEnv("DB_DRIVER"),
		DSN:       util.GetEnv("DSN"),
		Addr:      util.GetEnvDefault("ADDR", ":8080"),
		Mode:      util.GetEnv("MODE"),
		APIPrefix: util.GetEnvDefault("API_PREFIX", "/api"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		AuthSecret:            util.GetEnv("JWT_SECRET"),
		AlertTimeout:          util.GetDurationEnv("ALERT_TIMEOUT"),
		MaxFallbackAttempts:   int(util.GetIntEnv("MAX_FALLBACK_ATTEMPTS")),
		EnforceCoverageRadius: util.GetBoolEnv("ENFORCE_COVERAGE_RADIUS"),
		SweepCron:             util.GetEnvDefault("ESCALATION_SWEEP_CRON", "* * * * *"),
		RateLimit:             util.GetEnvDefault("RATE_LIMIT", "100-M"),
		CacheType:             util.GetEnvDefault("CACHE_TYPE", "local"),
		PushEnabled:           util.GetBoolEnv("PUSH_ENABLED"),
		PushURL:               util.GetEnvDefault("EXPO_PUSH_URL", "https://exp.host/--/api/v2/push/send"),
		MediaStore:            util.GetEnv("MEDIA_STORE"),
		MediaDir:              util.GetEnvDefault("MEDIA_DIR", "./media"),
	}

	if GlobalConfig.AlertTimeout <= 0 {
		GlobalConfig.AlertTimeout = 3 * time.Minute
	}
	if GlobalConfig.MaxFallbackAttempts <= 0 {
		GlobalConfig.MaxFallbackAttempts = 3
	}
	return nil
}
