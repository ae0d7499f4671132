package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"mexcfeed/pkg/core"
)

// Config holds everything a feed process needs.
type Config struct {
	Feed    *core.Config
	RESTURL string `mapstructure:"rest_url"`
	WSURL   string `mapstructure:"ws_url"`
	Redis   RedisConfig
}

// RedisConfig holds Redis connection settings. An empty Addr disables the sink.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled reports whether books should be written to Redis.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Load reads configuration from environment variables prefixed with MEXCFEED_.
// Lists are comma separated, e.g. MEXCFEED_SYMBOLS=BTC-USDT-SPOT,ETH-USDT-SPOT.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEXCFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := core.DefaultConfig("mexc")

	v.SetDefault("exchange", defaults.Exchange)
	v.SetDefault("symbols", "BTC-USDT-SPOT")
	v.SetDefault("channels", core.ChannelL2Book.String())
	v.SetDefault("max_depth", defaults.MaxDepth)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("ping_interval", defaults.PingInterval)
	v.SetDefault("reconnect_wait_min", defaults.ReconnectWaitMin)
	v.SetDefault("reconnect_wait_max", defaults.ReconnectWaitMax)
	v.SetDefault("rest_url", "")
	v.SetDefault("ws_url", "")

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	feed := defaults
	feed.Exchange = v.GetString("exchange")
	feed.MaxDepth = v.GetInt("max_depth")
	feed.LogLevel = strings.ToLower(v.GetString("log_level"))
	feed.Timeout = v.GetDuration("timeout")
	feed.PingInterval = v.GetDuration("ping_interval")
	feed.ReconnectWaitMin = v.GetDuration("reconnect_wait_min")
	feed.ReconnectWaitMax = v.GetDuration("reconnect_wait_max")

	if key, secret := v.GetString("api_key"), v.GetString("secret_key"); key != "" || secret != "" {
		feed.WithCredentials(&core.Credentials{APIKey: key, SecretKey: secret})
	}

	symbols := splitList(v.GetString("symbols"))
	for _, name := range splitList(v.GetString("channels")) {
		ch, err := core.ParseChannel(name)
		if err != nil {
			return nil, fmt.Errorf("MEXCFEED_CHANNELS: %w", err)
		}
		feed.WithSubscription(ch, symbols...)
	}

	if err := feed.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feed config: %w", err)
	}

	return &Config{
		Feed:    feed,
		RESTURL: v.GetString("rest_url"),
		WSURL:   v.GetString("ws_url"),
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

