package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Matcher   MatcherConfig   `mapstructure:"matcher"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	AI        AIConfig        `mapstructure:"ai"`
	Plex      PlexConfig      `mapstructure:"plex"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ClassifyPerMinute limits bulk classification requests per client IP.
	// Zero disables the limit.
	ClassifyPerMinute int `mapstructure:"classify_per_minute"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// AuthConfig holds authentication configuration. An empty secret disables
// API authentication.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Enabled reports whether API authentication is on.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// MatcherConfig holds pattern matcher configuration.
type MatcherConfig struct {
	Threshold    int    `mapstructure:"threshold"`
	PatternsFile string `mapstructure:"patterns_file"`
}

// CorpusConfig holds title corpus configuration.
type CorpusConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	TTL     time.Duration `mapstructure:"ttl"`
	Timeout time.Duration `mapstructure:"timeout"`
	Cache   string        `mapstructure:"cache"` // "sql" or "redis"
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig holds the optional corpus cache connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AIConfig holds AI classifier configuration.
type AIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Provider       string        `mapstructure:"provider"` // "openai" or "anthropic"
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	APIVersion     string        `mapstructure:"api_version"`
	Model          string        `mapstructure:"model"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	BatchDelay     time.Duration `mapstructure:"batch_delay"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// PlexConfig holds the media server used for collection sync.
type PlexConfig struct {
	ServerURL     string   `mapstructure:"server_url"`
	Token         string   `mapstructure:"token"`
	MovieSections []string `mapstructure:"movie_sections"`
	ShowSections  []string `mapstructure:"show_sections"`
	Holidays      []string `mapstructure:"holidays"`
	UseAI         bool     `mapstructure:"use_ai"`
}

// Configured reports whether a server is set up.
func (p PlexConfig) Configured() bool {
	return p.ServerURL != "" && p.Token != ""
}

// SchedulerConfig holds cron expressions for scheduled tasks. An empty
// expression disables the task.
type SchedulerConfig struct {
	CorpusRefreshCron  string `mapstructure:"corpus_refresh_cron"`
	CollectionSyncCron string `mapstructure:"collection_sync_cron"`
}

// MetricsConfig holds Prometheus configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.holidarr")
	}

	v.SetEnvPrefix("HOLIDARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.classify_per_minute", 10)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/holidarr.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("logging.compress", true)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("matcher.threshold", 8)
	v.SetDefault("matcher.patterns_file", "")

	v.SetDefault("corpus.enabled", true)
	v.SetDefault("corpus.base_url", "https://en.wikipedia.org")
	v.SetDefault("corpus.ttl", "168h")
	v.SetDefault("corpus.timeout", "30s")
	v.SetDefault("corpus.cache", "sql")
	v.SetDefault("corpus.redis.addr", "localhost:6379")
	v.SetDefault("corpus.redis.password", "")
	v.SetDefault("corpus.redis.db", 0)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.api_version", "")
	v.SetDefault("ai.model", "")
	v.SetDefault("ai.max_tokens", 1024)
	v.SetDefault("ai.max_retries", 5)
	v.SetDefault("ai.initial_backoff", "2s")
	v.SetDefault("ai.batch_delay", "1s")
	v.SetDefault("ai.timeout", "60s")

	v.SetDefault("plex.server_url", "")
	v.SetDefault("plex.token", "")
	v.SetDefault("plex.movie_sections", []string{})
	v.SetDefault("plex.show_sections", []string{})
	v.SetDefault("plex.holidays", []string{})
	v.SetDefault("plex.use_ai", true)

	v.SetDefault("scheduler.corpus_refresh_cron", "0 4 * * 1")
	v.SetDefault("scheduler.collection_sync_cron", "")

	v.SetDefault("metrics.enabled", true)
}

// Validate checks enumerated values and numeric ranges.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Corpus.Cache {
	case "sql", "redis":
	default:
		return fmt.Errorf("unsupported corpus.cache %q", c.Corpus.Cache)
	}

	switch c.AI.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported ai.provider %q", c.AI.Provider)
	}
	if c.AI.MaxRetries < 0 {
		return errors.New("ai.max_retries must not be negative")
	}
	if c.Matcher.Threshold <= 0 {
		return errors.New("matcher.threshold must be positive")
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
