package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP       HTTPConfig      `mapstructure:"http"`
	Log        LogConfig       `mapstructure:"log"`
	MySQL      DatabaseConfig  `mapstructure:"mysql"`
	ClickHouse DatabaseConfig  `mapstructure:"clickhouse"`
	Redis      RedisConfig     `mapstructure:"redis"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	Upstream   UpstreamConfig  `mapstructure:"upstream"`
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Sync       SyncConfig      `mapstructure:"sync"`
	Quotes     QuotesConfig    `mapstructure:"quotes"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

// UpstreamConfig points at the exchange-rate provider API. The API key is
// injected here once at startup; components never read env vars mid-operation.
type UpstreamConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

type RateLimitConfig struct {
	// RPS is the inbound per-client fixed-window limit.
	RPS int `mapstructure:"rps"`

	// Outbound token bucket shared across instances.
	BucketCapacity int           `mapstructure:"bucket_capacity"`
	RefillRate     int           `mapstructure:"refill_rate"`
	IdleTTL        time.Duration `mapstructure:"idle_ttl"`
}

type SyncConfig struct {
	// MaxAge is the staleness window for cached reference data.
	MaxAge time.Duration `mapstructure:"max_age"`
}

type QuotesConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (SWAPGW_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (SWAPGW_*)
	v.SetEnvPrefix("SWAPGW")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
