package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the travel assistant service.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Search    SearchConfig    `mapstructure:"search"`
	Session   SessionConfig   `mapstructure:"session"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings.
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig contains the LLM provider configuration used by the
// itinerary prompt builder.
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ScraperConfig describes the remote scraping service endpoint.
type ScraperConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	HTTPRetries int           `mapstructure:"http_retries"`
	HTTPBackoff time.Duration `mapstructure:"http_backoff"`
}

func (s ScraperConfig) Validate() error {
	if strings.TrimSpace(s.BaseURL) == "" {
		return fmt.Errorf("scraper.base_url is required")
	}
	if s.HTTPRetries < 0 {
		return fmt.Errorf("scraper.http_retries must be >= 0")
	}
	return nil
}

// SearchConfig tunes the search-bundle orchestrator.
type SearchConfig struct {
	PollInterval    time.Duration            `mapstructure:"poll_interval"`
	ProviderTimeout time.Duration            `mapstructure:"provider_timeout"`
	Overrides       map[string]time.Duration `mapstructure:"provider_timeout_overrides"`
	MaxRetries      int                      `mapstructure:"max_retries"`
}

// TimeoutFor returns the timeout for one provider, honouring per-provider
// overrides keyed by provider name.
func (s SearchConfig) TimeoutFor(provider string) time.Duration {
	if d, ok := s.Overrides[provider]; ok && d > 0 {
		return d
	}
	return s.ProviderTimeout
}

func (s SearchConfig) Validate() error {
	if s.PollInterval <= 0 {
		return fmt.Errorf("search.poll_interval must be positive")
	}
	if s.ProviderTimeout <= 0 {
		return fmt.Errorf("search.provider_timeout must be positive")
	}
	if s.MaxRetries < 0 || s.MaxRetries > 5 {
		return fmt.Errorf("search.max_retries must be between 0 and 5")
	}
	return nil
}

// SessionConfig selects the conversation session backend.
type SessionConfig struct {
	Backend string        `mapstructure:"backend"` // inmemory or redis
	TTL     time.Duration `mapstructure:"ttl"`
}

func (s SessionConfig) Validate() error {
	switch s.Backend {
	case "", "inmemory", "redis":
		return nil
	}
	return fmt.Errorf("session.backend must be inmemory or redis, got %q", s.Backend)
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL, nil
	}
	if strings.TrimSpace(p.Host) == "" || strings.TrimSpace(p.DBName) == "" {
		return "", fmt.Errorf("storage.postgres.host/dbname or url required")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// TelemetryConfig contains monitoring settings.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

// LoadConfig loads config from file, with TRIPWEAVER_* env overrides.
func LoadConfig(path string) *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.timeout", 45*time.Second)
	viper.SetDefault("scraper.http_timeout", 15*time.Second)
	viper.SetDefault("scraper.http_retries", 0)
	viper.SetDefault("scraper.http_backoff", 300*time.Millisecond)
	viper.SetDefault("search.poll_interval", 5*time.Second)
	viper.SetDefault("search.provider_timeout", 2*time.Minute)
	viper.SetDefault("search.max_retries", 1)
	viper.SetDefault("session.backend", "inmemory")
	viper.SetDefault("session.ttl", 2*time.Hour)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.metrics_path", "/metrics")

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, ".."))
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("TRIPWEAVER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	if err := config.Scraper.Validate(); err != nil {
		panic(err)
	}
	if err := config.Search.Validate(); err != nil {
		panic(err)
	}
	if err := config.Session.Validate(); err != nil {
		panic(err)
	}
	return &config
}
