package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	Database        DatabaseConfig        `mapstructure:"database"`
	Redis           RedisConfig           `mapstructure:"redis"`
	JWT             JWTConfig             `mapstructure:"jwt"`
	Log             LogConfig             `mapstructure:"log"`
	RateLimit       RateLimitConfig       `mapstructure:"rate_limit"`
	PaymentPassword PaymentPasswordConfig `mapstructure:"payment_password"`
	Wallet          WalletConfig          `mapstructure:"wallet"`
	Order           OrderConfig           `mapstructure:"order"`
	Idempotency     IdempotencyConfig     `mapstructure:"idempotency"`
	Bootstrap       BootstrapConfig       `mapstructure:"bootstrap"`
	Security        SecurityConfig        `mapstructure:"security"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// RateLimitConfig selects where rate limit counters live.
type RateLimitConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // redis, memory
}

// PaymentPasswordConfig controls the lockout after repeated wrong payment passwords.
type PaymentPasswordConfig struct {
	MaxAttempts   int64         `mapstructure:"max_attempts"`
	LockoutWindow time.Duration `mapstructure:"lockout_window"`
}

type WalletConfig struct {
	MaxRecharge string `mapstructure:"max_recharge"` // decimal string, e.g. "1000000.00"
}

// validate rejects a max_recharge that is set but not a non-negative decimal.
func (w WalletConfig) validate() error {
	if w.MaxRecharge == "" {
		return nil
	}
	d, err := decimal.NewFromString(w.MaxRecharge)
	if err != nil {
		return fmt.Errorf("wallet.max_recharge %q is not a decimal amount: %w", w.MaxRecharge, err)
	}
	if d.IsNegative() {
		return fmt.Errorf("wallet.max_recharge %q must not be negative", w.MaxRecharge)
	}
	return nil
}

// MaxRechargeAmount parses MaxRecharge. An empty value disables the cap.
func (w WalletConfig) MaxRechargeAmount() decimal.Decimal {
	d, err := decimal.NewFromString(w.MaxRecharge)
	if err != nil {
		return decimal.Zero
	}
	return d
}

type OrderConfig struct {
	RefundOnSellerCancel bool `mapstructure:"refund_on_seller_cancel"`
}

type IdempotencyConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// BootstrapConfig creates the first administrator at start-up when set.
type BootstrapConfig struct {
	AdminUsername string `mapstructure:"admin_username"`
	AdminPassword string `mapstructure:"admin_password"`
}

// SecurityConfig holds the AES-256 key for identity numbers (64 hex chars).
type SecurityConfig struct {
	EncryptionKey string `mapstructure:"encryption_key"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded into the environment first.
// Environment variables override file values. Prefix: UCM_ (Used Car Market).
// Nested keys use underscore: UCM_DATABASE_HOST, UCM_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "usedcar_market")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.lock_timeout", "5s")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "usedcar-market")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "redis")
	v.SetDefault("payment_password.max_attempts", 5)
	v.SetDefault("payment_password.lockout_window", "15m")
	v.SetDefault("wallet.max_recharge", "1000000.00")
	v.SetDefault("order.refund_on_seller_cancel", true)
	v.SetDefault("idempotency.ttl", "24h")
	v.SetDefault("idempotency.lock_ttl", "30s")
	v.SetDefault("bootstrap.admin_username", "")
	v.SetDefault("bootstrap.admin_password", "")
	v.SetDefault("security.encryption_key", "")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: UCM_DATABASE_HOST -> database.host
	v.SetEnvPrefix("UCM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Wallet.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
