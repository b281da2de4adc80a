package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger       `mapstructure:"logger"`
	Backend      Backend      `mapstructure:"backend"`
	Cache        Cache        `mapstructure:"cache"`
	Optimization Optimization `mapstructure:"optimization"`
	AutoTune     AutoTune     `mapstructure:"autotune"`
	UI           UI           `mapstructure:"ui"`
	MockServer   MockServer   `mapstructure:"mock_server"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Backend struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	BearerToken         string        `mapstructure:"bearer_token"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	CatalogTTL        time.Duration `mapstructure:"catalog_ttl"`
}

type Optimization struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	DownloadDir  string        `mapstructure:"download_dir"`
}

type AutoTune struct {
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	MaxPollAttempts        int           `mapstructure:"max_poll_attempts"`
	LookbackDays           int           `mapstructure:"lookback_days"`
	FallbackDataLength     int           `mapstructure:"fallback_data_length"`
	ApplyOnSelectionChange bool          `mapstructure:"apply_on_selection_change"`
}

type UI struct {
	ShowResultsTable      bool    `mapstructure:"show_results_table"`
	DefaultExchange       string  `mapstructure:"default_exchange"`
	DefaultTimeframe      string  `mapstructure:"default_timeframe"`
	DefaultInitialCapital float64 `mapstructure:"default_initial_capital"`
	DefaultMetric         string  `mapstructure:"default_metric"`
}

type MockServer struct {
	Port            int           `mapstructure:"port"`
	JobTTL          time.Duration `mapstructure:"job_ttl"`
	ProgressPerTick float64       `mapstructure:"progress_per_tick"`
	TickInterval    time.Duration `mapstructure:"tick_interval"`
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("backend.base_url", "http://localhost:8000")
	viper.SetDefault("backend.timeout", 30*time.Second)
	viper.SetDefault("backend.max_request_per_minute", 120)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
	viper.SetDefault("cache.catalog_ttl", 5*time.Minute)
	viper.SetDefault("optimization.poll_interval", 3*time.Second)
	viper.SetDefault("optimization.download_dir", ".")
	viper.SetDefault("autotune.poll_interval", 2*time.Second)
	viper.SetDefault("autotune.max_poll_attempts", 60)
	viper.SetDefault("autotune.lookback_days", 365)
	viper.SetDefault("autotune.fallback_data_length", 252)
	viper.SetDefault("autotune.apply_on_selection_change", true)
	viper.SetDefault("ui.show_results_table", true)
	viper.SetDefault("ui.default_exchange", "NSE")
	viper.SetDefault("ui.default_timeframe", "day")
	viper.SetDefault("ui.default_initial_capital", 100000)
	viper.SetDefault("ui.default_metric", "net_pnl")
	viper.SetDefault("mock_server.port", 8000)
	viper.SetDefault("mock_server.job_ttl", 30*time.Minute)
	viper.SetDefault("mock_server.progress_per_tick", 25)
	viper.SetDefault("mock_server.tick_interval", time.Second)
}

func Load() (*Config, error) {
	// .env is optional; environment variables win over the config file.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// No config file is fine; defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
