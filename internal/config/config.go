package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"lonwatch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Ephemeris EphemerisConfig `mapstructure:"ephemeris"`
	Search    SearchConfig    `mapstructure:"search"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// EphemerisConfig selects and tunes the longitude provider.
type EphemerisConfig struct {
	Provider       string        `mapstructure:"provider"` // analytic | horizons
	HorizonsURL    string        `mapstructure:"horizons_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SearchConfig governs the crossing search.
type SearchConfig struct {
	Step         time.Duration `mapstructure:"step"`
	ToleranceDeg float64       `mapstructure:"tolerance_deg"`
	Precision    time.Duration `mapstructure:"precision"`
	MaxBisect    int           `mapstructure:"max_bisect"`
	Timezone     string        `mapstructure:"timezone"`
}

// WatchConfig governs the continuous watch loop.
type WatchConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToClock    bool          `mapstructure:"align_to_clock"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LONWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lonwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("ephemeris.provider", "analytic")
	v.SetDefault("ephemeris.horizons_url", "https://ssd.jpl.nasa.gov/api/horizons.api")
	v.SetDefault("ephemeris.request_timeout", "30s")

	v.SetDefault("search.step", "1h")
	v.SetDefault("search.tolerance_deg", 0.01)
	v.SetDefault("search.precision", "1s")
	v.SetDefault("search.max_bisect", 48)
	// The original workflow reads windows as Beijing time.
	v.SetDefault("search.timezone", "Asia/Shanghai")

	v.SetDefault("watch.interval", "1h")
	v.SetDefault("watch.align_to_clock", true)
	v.SetDefault("watch.startup_delay", "0s")
	v.SetDefault("watch.advisory_lock_key", int64(0x6c6f6e77)) // "lonw"

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Ephemeris.Provider {
	case "analytic", "horizons":
	default:
		return fmt.Errorf("ephemeris.provider must be analytic or horizons, got %q", c.Ephemeris.Provider)
	}
	if c.Search.Step <= 0 {
		return fmt.Errorf("search.step must be greater than zero")
	}
	if c.Search.ToleranceDeg <= 0 {
		return fmt.Errorf("search.tolerance_deg must be greater than zero")
	}
	if c.Search.Precision <= 0 {
		return fmt.Errorf("search.precision must be greater than zero")
	}
	if _, err := time.LoadLocation(c.Search.Timezone); err != nil {
		return fmt.Errorf("search.timezone: %w", err)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

// Location resolves the configured input timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Search.Timezone)
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
