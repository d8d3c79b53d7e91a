package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for socialfetch
type Config struct {
	// X API v2 settings
	X XConfig `yaml:"x" json:"x"`

	// Google SERP proxy settings
	SERP SERPConfig `yaml:"serp" json:"serp"`

	// arXiv API settings
	Arxiv ArxivConfig `yaml:"arxiv" json:"arxiv"`

	// Browserbase cloud browser settings
	Browserbase BrowserbaseConfig `yaml:"browserbase" json:"browserbase"`

	// LinkedIn login settings
	LinkedIn LinkedInConfig `yaml:"linkedin" json:"linkedin"`

	// Retry policy shared by every HTTP client
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Artifact download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Optional Redis response cache
	Cache CacheConfig `yaml:"cache" json:"cache"`

	// Optional Prometheus endpoint
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Optional Postgres export
	Sink SinkConfig `yaml:"sink" json:"sink"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// XConfig holds X API v2 configuration
type XConfig struct {
	BearerToken string        `yaml:"bearer_token" json:"bearer_token"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	PageDelay   time.Duration `yaml:"page_delay" json:"page_delay"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// SERPConfig holds SERP proxy configuration
type SERPConfig struct {
	BaseURL      string        `yaml:"base_url" json:"base_url"`
	APIKey       string        `yaml:"api_key" json:"api_key"`
	APIKeyHeader string        `yaml:"api_key_header" json:"api_key_header"`
	BearerToken  string        `yaml:"bearer_token" json:"bearer_token"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
}

// ArxivConfig holds arXiv API configuration
type ArxivConfig struct {
	BaseURL       string        `yaml:"base_url" json:"base_url"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	APIDelay      time.Duration `yaml:"api_delay" json:"api_delay"`
	DownloadDelay time.Duration `yaml:"download_delay" json:"download_delay"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	PageSize      int           `yaml:"page_size" json:"page_size"`
	// arXiv asks for gentler retries than the shared policy
	MaxRetries    int           `yaml:"max_retries" json:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
}

// BrowserbaseConfig holds Browserbase configuration
type BrowserbaseConfig struct {
	APIKey    string        `yaml:"api_key" json:"api_key"`
	ProjectID string        `yaml:"project_id" json:"project_id"`
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// LinkedInConfig holds LinkedIn login configuration
type LinkedInConfig struct {
	Email        string        `yaml:"email" json:"email"`
	Password     string        `yaml:"password" json:"password"`
	TOTPSecret   string        `yaml:"totp_secret" json:"totp_secret"`
	SessionFile  string        `yaml:"session_file" json:"session_file"`
	LoginTimeout time.Duration `yaml:"login_timeout" json:"login_timeout"`
}

// RetryConfig holds the retry policy
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries" json:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
}

// OutputConfig holds output configuration
type OutputConfig struct {
	BaseDirectory     string `yaml:"base_directory" json:"base_directory"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
}

// DownloadConfig holds artifact download configuration
type DownloadConfig struct {
	Concurrency int           `yaml:"concurrency" json:"concurrency"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// CacheConfig holds Redis cache configuration
type CacheConfig struct {
	RedisAddr string        `yaml:"redis_addr" json:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" json:"redis_db"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// SinkConfig holds Postgres export configuration
type SinkConfig struct {
	PostgresDSN string `yaml:"postgres_dsn" json:"postgres_dsn"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		X: XConfig{
			BaseURL:   "https://api.x.com/2",
			PageDelay: 500 * time.Millisecond,
			Timeout:   30 * time.Second,
		},
		SERP: SERPConfig{
			APIKeyHeader: "X-API-Key",
			Timeout:      20 * time.Second,
		},
		Arxiv: ArxivConfig{
			BaseURL:       "https://export.arxiv.org/api/query",
			UserAgent:     "socialfetch/1.0 (+https://arxiv.org/help/api)",
			APIDelay:      3 * time.Second,
			DownloadDelay: 1 * time.Second,
			Timeout:       30 * time.Second,
			PageSize:      100,
			MaxRetries:    5,
			RetryBackoff:  5 * time.Second,
		},
		Browserbase: BrowserbaseConfig{
			BaseURL: "https://api.browserbase.com",
			Timeout: 30 * time.Second,
		},
		LinkedIn: LinkedInConfig{
			SessionFile:  ".linkedin_context_id",
			LoginTimeout: 180 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     0, // 0 means uncapped
		},
		Output: OutputConfig{
			BaseDirectory:     "results",
			OverwriteExisting: false,
		},
		Download: DownloadConfig{
			Concurrency: 1,
			Timeout:     60 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.X.BearerToken, "X_BEARER_TOKEN")
	setString(&c.X.BaseURL, "SOCIALFETCH_X_BASE_URL")

	setString(&c.SERP.BaseURL, "GOOGLE_SERP_BASE_URL")
	setString(&c.SERP.APIKey, "GOOGLE_SERP_API_KEY")
	setString(&c.SERP.APIKeyHeader, "GOOGLE_SERP_API_KEY_HEADER")
	setString(&c.SERP.BearerToken, "GOOGLE_SERP_BEARER_TOKEN")

	setString(&c.Arxiv.BaseURL, "SOCIALFETCH_ARXIV_BASE_URL")
	setString(&c.Arxiv.UserAgent, "SOCIALFETCH_ARXIV_USER_AGENT")

	setString(&c.Browserbase.APIKey, "BROWSERBASE_API_KEY")
	setString(&c.Browserbase.ProjectID, "BROWSERBASE_PROJECT_ID")
	setString(&c.Browserbase.BaseURL, "BROWSERBASE_BASE_URL")

	setString(&c.LinkedIn.Email, "LINKEDIN_EMAIL")
	setString(&c.LinkedIn.Password, "LINKEDIN_PASSWORD")
	setString(&c.LinkedIn.TOTPSecret, "LINKEDIN_TOTP_SECRET")

	if v := os.Getenv("SOCIALFETCH_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SOCIALFETCH_MAX_RETRIES: %w", err))
		} else {
			c.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("SOCIALFETCH_RETRY_BACKOFF"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SOCIALFETCH_RETRY_BACKOFF: %w", err))
		} else {
			c.Retry.InitialBackoff = d
		}
	}

	setString(&c.Output.BaseDirectory, "SOCIALFETCH_OUTPUT_DIR")
	setString(&c.Cache.RedisAddr, "REDIS_ADDR")
	setString(&c.Metrics.Addr, "SOCIALFETCH_METRICS_ADDR")
	setString(&c.Sink.PostgresDSN, "POSTGRES_DSN")
	setString(&c.Logging.Level, "SOCIALFETCH_LOG_LEVEL")

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// parseSeconds accepts either a Go duration ("2s") or a bare number of seconds ("2.5")
func parseSeconds(v string) (time.Duration, error) {
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".socialfetch.yaml",
		".socialfetch.yml",
		filepath.Join(home, ".config", "socialfetch", "config.yaml"),
		filepath.Join(home, ".config", "socialfetch", "config.yml"),
		filepath.Join(home, ".socialfetch.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. Credentials are not checked
// here because each command needs a different subset of them.
func (c *Config) Validate() error {
	var errs []error

	if c.Retry.MaxRetries < 0 || c.Arxiv.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.InitialBackoff < 0 || c.Arxiv.RetryBackoff < 0 {
		errs = append(errs, errors.New("retry backoff cannot be negative"))
	}
	if c.Retry.MaxBackoff < 0 {
		errs = append(errs, errors.New("max backoff cannot be negative"))
	}

	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("download concurrency must be positive"))
	}
	if c.Download.Concurrency > 10 {
		errs = append(errs, errors.New("download concurrency should not exceed 10"))
	}

	for name, d := range map[string]time.Duration{
		"x timeout":           c.X.Timeout,
		"serp timeout":        c.SERP.Timeout,
		"arxiv timeout":       c.Arxiv.Timeout,
		"browserbase timeout": c.Browserbase.Timeout,
		"download timeout":    c.Download.Timeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	if c.Arxiv.PageSize <= 0 {
		errs = append(errs, errors.New("arxiv page size must be positive"))
	}
	if c.X.PageDelay < 0 || c.Arxiv.APIDelay < 0 || c.Arxiv.DownloadDelay < 0 {
		errs = append(errs, errors.New("delays cannot be negative"))
	}

	if c.SERP.APIKeyHeader == "" {
		errs = append(errs, errors.New("serp api key header is required"))
	}
	if c.LinkedIn.SessionFile == "" {
		errs = append(errs, errors.New("linkedin session file is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy with every secret masked, for display
func (c *Config) Redacted() *Config {
	cp := *c
	cp.X.BearerToken = MaskSecret(cp.X.BearerToken)
	cp.SERP.APIKey = MaskSecret(cp.SERP.APIKey)
	cp.SERP.BearerToken = MaskSecret(cp.SERP.BearerToken)
	cp.Browserbase.APIKey = MaskSecret(cp.Browserbase.APIKey)
	cp.LinkedIn.Password = MaskSecret(cp.LinkedIn.Password)
	cp.LinkedIn.TOTPSecret = MaskSecret(cp.LinkedIn.TOTPSecret)
	cp.Sink.PostgresDSN = MaskSecret(cp.Sink.PostgresDSN)
	return &cp
}

// MaskSecret masks all but the first 4 and last 4 characters of a secret
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-color"].(bool); ok {
		c.Logging.NoColor = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["overwrite"].(bool); ok {
		c.Output.OverwriteExisting = v
	}
	if v, ok := flags["max-retries"].(int); ok {
		c.Retry.MaxRetries = v
	}
	if v, ok := flags["retry-backoff"].(time.Duration); ok {
		c.Retry.InitialBackoff = v
	}
	if v, ok := flags["concurrency"].(int); ok {
		c.Download.Concurrency = v
	}
	if v, ok := flags["download-timeout"].(time.Duration); ok {
		c.Download.Timeout = v
	}
	if v, ok := flags["x-base-url"].(string); ok && v != "" {
		c.X.BaseURL = v
	}
	if v, ok := flags["x-timeout"].(time.Duration); ok {
		c.X.Timeout = v
	}
	if v, ok := flags["serp-base-url"].(string); ok && v != "" {
		c.SERP.BaseURL = v
	}
	if v, ok := flags["serp-timeout"].(time.Duration); ok {
		c.SERP.Timeout = v
	}
	if v, ok := flags["arxiv-base-url"].(string); ok && v != "" {
		c.Arxiv.BaseURL = v
	}
	if v, ok := flags["arxiv-timeout"].(time.Duration); ok {
		c.Arxiv.Timeout = v
	}
	if v, ok := flags["user-agent"].(string); ok && v != "" {
		c.Arxiv.UserAgent = v
	}
	if v, ok := flags["api-delay"].(time.Duration); ok {
		c.Arxiv.APIDelay = v
	}
	if v, ok := flags["download-delay"].(time.Duration); ok {
		c.Arxiv.DownloadDelay = v
	}
	if v, ok := flags["arxiv-max-retries"].(int); ok {
		c.Arxiv.MaxRetries = v
	}
	if v, ok := flags["arxiv-retry-backoff"].(time.Duration); ok {
		c.Arxiv.RetryBackoff = v
	}
	if v, ok := flags["page-size"].(int); ok {
		c.Arxiv.PageSize = v
	}
	if v, ok := flags["session-file"].(string); ok && v != "" {
		c.LinkedIn.SessionFile = v
	}
	if v, ok := flags["redis-addr"].(string); ok && v != "" {
		c.Cache.RedisAddr = v
	}
	if v, ok := flags["metrics-addr"].(string); ok && v != "" {
		c.Metrics.Addr = v
	}
	if v, ok := flags["postgres-dsn"].(string); ok && v != "" {
		c.Sink.PostgresDSN = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// godotenv never overrides variables that are already set
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".socialfetch.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
