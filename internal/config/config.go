package config

import (
	"errors"
	"flag"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	JWTSecret     string `env:"JWT_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	GatewayBaseURL   string `env:"GATEWAY_BASE_URL"`
	GatewayKeyID     string `env:"GATEWAY_KEY_ID"`
	GatewayKeySecret string `env:"GATEWAY_KEY_SECRET"`

	// RedisAddr адрес Redis для rate limiter. Пустое значение переключает лимитер
	// на in-memory реализацию.
	RedisAddr          string `env:"REDIS_ADDR"`
	RateLimitPerMinute int64 `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	RateLimitPerHour   int64 `env:"RATE_LIMIT_PER_HOUR"   envDefault:"1000"`
	RateLimitPerDay    int64 `env:"RATE_LIMIT_PER_DAY"    envDefault:"10000"`

	UsageUnitRate       decimal.Decimal `env:"USAGE_UNIT_RATE"       envDefault:"1"`
	UsageAllowOverdraft bool            `env:"USAGE_ALLOW_OVERDRAFT" envDefault:"false"`

	LowBalanceThreshold decimal.Decimal `env:"LOW_BALANCE_THRESHOLD" envDefault:"100"`
	// AnomalyThreshold объем списаний за час, выше которого расход считается
	// аномальным. Ноль отключает проверку.
	AnomalyThreshold decimal.Decimal `env:"ANOMALY_THRESHOLD" envDefault:"0"`

	MinCustomAmount decimal.Decimal `env:"MIN_CUSTOM_AMOUNT" envDefault:"100"`
	MaxCustomAmount decimal.Decimal `env:"MAX_CUSTOM_AMOUNT" envDefault:"100000"`
}

func LoadConfig() (*Config, error) {
	// .env опционален, в продакшене переменные приходят из окружения.
	_ = godotenv.Load()

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTSecret == "" {
		return nil, errors.New("JWT secret is not set")
	}
	if conf.WebhookSecret == "" {
		return nil, errors.New("webhook secret is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flag.StringVar(&flagConfig.GatewayBaseURL, "g", "", "Payment gateway base URL")
	flag.StringVar(&flagConfig.RedisAddr, "r", "", "Redis address for the rate limiter")

	flag.Parse()
}

func mergeConfig(envConfig, flagsConfig *Config) *Config {
	merged := *envConfig

	merged.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	merged.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	merged.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	merged.GatewayBaseURL = defaultIfBlank(envConfig.GatewayBaseURL, flagsConfig.GatewayBaseURL)
	merged.RedisAddr = defaultIfBlank(envConfig.RedisAddr, flagsConfig.RedisAddr)

	return &merged
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
