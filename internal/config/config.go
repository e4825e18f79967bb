package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rewired-gh/statwatch/internal/models"
)

// Source modes
const (
	SourceSimulator = "simulator" // in-process generator
	SourceAPI       = "api"       // API-Football compatible HTTP endpoint
)

// ErrMismatchedConditions is returned when CLI condition lists differ in length.
var ErrMismatchedConditions = errors.New("you must provide equal numbers of --fixture-id, --stat, --team and --target")

// Config represents the complete application configuration
type Config struct {
	Source     SourceConfig      `mapstructure:"source"`
	Monitor    MonitorConfig     `mapstructure:"monitor"`
	Conditions []ConditionConfig `mapstructure:"conditions"`
	Simulator  SimulatorConfig   `mapstructure:"simulator"`
	Telegram   TelegramConfig    `mapstructure:"telegram"`
	History    HistoryConfig     `mapstructure:"history"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Logging    LoggingConfig     `mapstructure:"logging"`
}

// SourceConfig holds the statistics source configuration
type SourceConfig struct {
	Mode              string        `mapstructure:"mode"`
	APIBaseURL        string        `mapstructure:"api_base_url"`
	APIHost           string        `mapstructure:"api_host"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
}

// MonitorConfig holds poll loop configuration
type MonitorConfig struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	ElapsedCeiling int           `mapstructure:"elapsed_ceiling"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	MaxDuration    time.Duration `mapstructure:"max_duration"` // 0 = until all fixtures stop
}

// ConditionConfig is one condition as written in the config file
type ConditionConfig struct {
	FixtureID string `mapstructure:"fixture_id"`
	Statistic string `mapstructure:"statistic"`
	Team      string `mapstructure:"team"`
	Target    int    `mapstructure:"target"`
}

// SimulatorConfig holds the local stats simulator configuration
type SimulatorConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	StepMinutes int    `mapstructure:"step_minutes"`
	CatalogPath string `mapstructure:"catalog_path"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	NotifyFinished bool          `mapstructure:"notify_finished"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	QueueSize      int           `mapstructure:"queue_size"`
}

// HistoryConfig holds session history persistence configuration
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("STATWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The upstream API documents FOOTBALL_API_KEY; honour it as a fallback.
	if cfg.Source.APIKey == "" {
		cfg.Source.APIKey = os.Getenv("FOOTBALL_API_KEY")
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Source defaults
	v.SetDefault("source.mode", SourceAPI)
	v.SetDefault("source.api_base_url", "https://v3.football.api-sports.io")
	v.SetDefault("source.api_host", "v3.football.api-sports.io")
	v.SetDefault("source.api_key", "")
	v.SetDefault("source.timeout", "10s")
	v.SetDefault("source.requests_per_minute", 30)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.retry_delay_base", "1s")

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "60s")
	v.SetDefault("monitor.elapsed_ceiling", 90)
	v.SetDefault("monitor.fetch_timeout", "15s")
	v.SetDefault("monitor.max_duration", "0s")

	// Simulator defaults
	v.SetDefault("simulator.listen_addr", "127.0.0.1:5000")
	v.SetDefault("simulator.step_minutes", 5)
	v.SetDefault("simulator.catalog_path", "")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.notify_finished", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")
	v.SetDefault("telegram.queue_size", 64)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "./data/statwatch.db")

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", "127.0.0.1:9464")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid.
// Conditions are checked separately by ParsedConditions because they may
// also come from the command line.
func (c *Config) Validate() error {
	// Validate Source config
	switch c.Source.Mode {
	case SourceSimulator:
	case SourceAPI:
		if c.Source.APIBaseURL == "" {
			return fmt.Errorf("source.api_base_url is required in api mode")
		}
		if c.Source.Timeout <= 0 {
			return fmt.Errorf("source.timeout must be positive")
		}
		if c.Source.RequestsPerMinute < 1 {
			return fmt.Errorf("source.requests_per_minute must be at least 1")
		}
		if c.Source.MaxRetries < 1 {
			return fmt.Errorf("source.max_retries must be at least 1")
		}
	default:
		return fmt.Errorf("source.mode must be one of: %s, %s", SourceSimulator, SourceAPI)
	}

	// Validate Monitor config
	if c.Monitor.PollInterval <= 0 {
		return fmt.Errorf("monitor.poll_interval must be positive")
	}
	if c.Monitor.ElapsedCeiling < 1 {
		return fmt.Errorf("monitor.elapsed_ceiling must be at least 1")
	}
	if c.Monitor.FetchTimeout < 0 {
		return fmt.Errorf("monitor.fetch_timeout must not be negative")
	}
	if c.Monitor.MaxDuration < 0 {
		return fmt.Errorf("monitor.max_duration must not be negative")
	}

	// Validate Simulator config
	if c.Simulator.StepMinutes < 1 {
		return fmt.Errorf("simulator.step_minutes must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate History config
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path is required when history is enabled")
	}

	// Validate Metrics config
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}

// ParsedConditions converts the config file conditions into domain conditions.
func (c *Config) ParsedConditions() ([]models.Condition, error) {
	out := make([]models.Condition, 0, len(c.Conditions))
	for i, cc := range c.Conditions {
		id, err := models.ParseFixtureID(cc.FixtureID)
		if err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
		cond := models.Condition{Fixture: id, Statistic: cc.Statistic, Team: cc.Team, Target: cc.Target}
		if err := cond.Validate(); err != nil {
			return nil, fmt.Errorf("conditions[%d]: %w", i, err)
		}
		out = append(out, cond)
	}
	return out, nil
}

// ConditionsFromFlags pairs the repeated CLI flags positionally into conditions.
func ConditionsFromFlags(fixtureIDs, stats, teams []string, targets []int) ([]models.Condition, error) {
	n := len(fixtureIDs)
	if len(stats) != n || len(teams) != n || len(targets) != n {
		return nil, ErrMismatchedConditions
	}

	out := make([]models.Condition, 0, n)
	for i := 0; i < n; i++ {
		id, err := models.ParseFixtureID(fixtureIDs[i])
		if err != nil {
			return nil, fmt.Errorf("--fixture-id #%d: %w", i+1, err)
		}
		cond := models.Condition{Fixture: id, Statistic: stats[i], Team: teams[i], Target: targets[i]}
		if err := cond.Validate(); err != nil {
			return nil, fmt.Errorf("condition #%d: %w", i+1, err)
		}
		out = append(out, cond)
	}
	return out, nil
}
