package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/homewatt/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultTelemetryURL = "http://localhost:9000/state.json"
	defaultListenAddr   = ":8080"
	defaultRedisAddr    = "localhost:6379"
	defaultFetchTimeout = 10
	defaultCacheTTL     = 45
	defaultWindowHours  = 24
)

// Channel describes one monitored device channel: the key it is logged
// under in the telemetry store plus its display metadata and the fixed
// reference wattage used for comparison rules.
type Channel struct {
	Name           string  `mapstructure:"name"`
	Label          string  `mapstructure:"label"`
	Color          string  `mapstructure:"color"`
	BenchmarkWatts float64 `mapstructure:"benchmark_watts"`
}

type Config struct {
	Debug    bool   `mapstructure:"debug"`
	Verbose  bool   `mapstructure:"verbose"`
	LogLevel string `mapstructure:"log_level"`

	// Telemetry aggregation
	TelemetryURL string    `mapstructure:"telemetry_url"`
	FetchTimeout int       `mapstructure:"fetch_timeout"` // seconds
	CacheTTL     int       `mapstructure:"cache_ttl"`     // seconds
	WindowHours  int       `mapstructure:"window_hours"`
	Channels     []Channel `mapstructure:"channels"`

	// Device store
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// HTTP API
	ListenAddr string `mapstructure:"listen_addr"`

	// Snapshot history
	History   bool   `mapstructure:"history"`
	HistoryDB string `mapstructure:"history_db"`
}

// DefaultChannels is the channel set used when the config file declares none.
func DefaultChannels() []Channel {
	return []Channel{
		{Name: "ac", Label: "Air Conditioner", Color: "#2196F3", BenchmarkWatts: 1500},
		{Name: "fan", Label: "Fan", Color: "#4CAF50", BenchmarkWatts: 75},
		{Name: "light", Label: "Light", Color: "#FFC107", BenchmarkWatts: 60},
		{Name: "refrigerator", Label: "Refrigerator", Color: "#9C27B0", BenchmarkWatts: 200},
	}
}

func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("homewatt", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Bool("debug", false, "Enable debugging mode")
	flags.Bool("verbose", false, "Enable verbose logging")
	flags.String("log-level", "", "Log level (debug, info, warning, error)")
	flags.String("telemetry-url", "", "Telemetry store state URL")
	flags.Int("cache-ttl", 0, "Snapshot cache TTL in seconds")
	flags.String("listen-addr", "", "HTTP API listen address")
	flags.String("redis-addr", "", "Device store address")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("telemetry_url", defaultTelemetryURL)
	v.SetDefault("fetch_timeout", defaultFetchTimeout)
	v.SetDefault("cache_ttl", defaultCacheTTL)
	v.SetDefault("window_hours", defaultWindowHours)
	v.SetDefault("redis_addr", defaultRedisAddr)
	v.SetDefault("listen_addr", defaultListenAddr)
	v.SetDefault("history", false)
	v.SetDefault("history_db", "/var/lib/homewatt/history.db")

	v.SetEnvPrefix("HOMEWATT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Explicit config path wins over the /etc default
	if configPath := os.Getenv("HOMEWATT_CONFIG"); configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("homewatt")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Flags set on the command line override file and env values
	flags.Visit(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		v.Set(key, f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if len(config.Channels) == 0 {
		config.Channels = DefaultChannels()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.CacheTTL <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "cache_ttl must be positive")
	}
	if c.WindowHours <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "window_hours must be positive")
	}
	if c.FetchTimeout <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "fetch_timeout must be positive")
	}
	if c.TelemetryURL == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "telemetry_url is required")
	}

	for i := range c.Channels {
		if c.Channels[i].Name == "" {
			return errFactory.WithMessage(errors.ErrInvalidConfig, "channel name must not be empty")
		}
	}

	return nil
}
