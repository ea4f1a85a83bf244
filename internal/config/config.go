package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Pools            []Pool
	Interval         time.Duration
	LCDURL           string
	RPCURL           string
	RequestTimeout   time.Duration
	FetchRetries     int
	FetchBackoff     time.Duration
	TelegramToken    string
	TelegramChatID   string
	Notify           bool
	NotifyRetries    int
	NotifyRetryDelay time.Duration
	NotifyStartup    bool
	Journal          string
	PGDSN            string
	MetricsAddr      string
	DigestCron       string
	LogLevel         string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TICKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("interval", 10*time.Second)
	v.SetDefault("lcd", "https://lcd.osmosis.zone")
	v.SetDefault("request-timeout", 10*time.Second)
	v.SetDefault("fetch-retries", 2)
	v.SetDefault("fetch-backoff", 300*time.Millisecond)
	v.SetDefault("notify", true)
	v.SetDefault("notify-retries", 5)
	v.SetDefault("notify-retry-delay", 5*time.Second)
	v.SetDefault("notify-startup", true)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	pools, err := loadPools(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Pools:            pools,
		Interval:         v.GetDuration("interval"),
		LCDURL:           strings.TrimRight(v.GetString("lcd"), "/"),
		RPCURL:           v.GetString("rpc"),
		RequestTimeout:   v.GetDuration("request-timeout"),
		FetchRetries:     v.GetInt("fetch-retries"),
		FetchBackoff:     v.GetDuration("fetch-backoff"),
		TelegramToken:    v.GetString("telegram-token"),
		TelegramChatID:   v.GetString("telegram-chat-id"),
		Notify:           v.GetBool("notify"),
		NotifyRetries:    v.GetInt("notify-retries"),
		NotifyRetryDelay: v.GetDuration("notify-retry-delay"),
		NotifyStartup:    v.GetBool("notify-startup"),
		Journal:          v.GetString("journal"),
		PGDSN:            v.GetString("pg-dsn"),
		MetricsAddr:      v.GetString("metrics-addr"),
		DigestCron:       v.GetString("digest-cron"),
		LogLevel:         v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the settings the monitor cannot run without.
func (c Config) Validate() error {
	if len(c.Pools) == 0 {
		return fmt.Errorf("at least one pool is required")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if err := ValidatePools(c.Pools); err != nil {
		return err
	}
	for _, pool := range c.Pools {
		switch pool.Source {
		case SourceEVM:
			if c.RPCURL == "" {
				return fmt.Errorf("pool %d: rpc url is required for evm pools", pool.ID)
			}
		default:
			if c.LCDURL == "" {
				return fmt.Errorf("pool %d: lcd url is required", pool.ID)
			}
		}
	}
	if c.Notify && (c.TelegramToken == "" || c.TelegramChatID == "") {
		return fmt.Errorf("telegram token and chat id are required when notify is enabled")
	}
	if c.NotifyRetries < 0 {
		return fmt.Errorf("notify retries must be >= 0")
	}
	return nil
}
