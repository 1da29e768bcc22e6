package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Queue      QueueConfig      `yaml:"queue" mapstructure:"queue"`
	Registry   RegistryConfig   `yaml:"registry" mapstructure:"registry"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings. The fast model handles the
// cheap screening calls (signal detection, language check); the deep model
// handles categorization, matching, and message drafting.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	FastModel string `yaml:"fast_model" mapstructure:"fast_model"`
	DeepModel string `yaml:"deep_model" mapstructure:"deep_model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EnrichConfig holds the profile enrichment provider settings. Keys is a pool
// of API credentials rotated round-robin across requests.
type EnrichConfig struct {
	BaseURL     string   `yaml:"base_url" mapstructure:"base_url"`
	Keys        []string `yaml:"keys" mapstructure:"keys"`
	TimeoutSecs int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SalesforceConfig holds Salesforce JWT auth settings for directory sync.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// PipelineConfig configures per-item processing behavior.
type PipelineConfig struct {
	MaxRoles        int `yaml:"max_roles" mapstructure:"max_roles"`
	MessageMaxRunes int `yaml:"message_max_runes" mapstructure:"message_max_runes"`
	MaxRetries      int `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelaySecs  int `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
}

// QueueConfig configures the batch runner.
type QueueConfig struct {
	PageSize    int `yaml:"page_size" mapstructure:"page_size"`
	ChunkSize   int `yaml:"chunk_size" mapstructure:"chunk_size"`
	SyncChunks  int `yaml:"sync_chunks" mapstructure:"sync_chunks"`
	PauseMillis int `yaml:"pause_millis" mapstructure:"pause_millis"`
}

// RegistryConfig points at optional YAML overrides for the category and
// locale registries. Empty paths fall back to the compiled-in defaults.
type RegistryConfig struct {
	CategoriesPath string `yaml:"categories_path" mapstructure:"categories_path"`
	LocalesPath    string `yaml:"locales_path" mapstructure:"locales_path"`
}

// PricingConfig holds per-model token pricing (USD per million tokens).
type PricingConfig struct {
	Anthropic map[string]ModelPricing `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelPricing holds per-model token pricing.
type ModelPricing struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures the background health checker and its alert
// webhook. An empty webhook URL disables delivery but not evaluation.
type MonitoringConfig struct {
	WebhookURL            string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs     int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	FailureRateThreshold  float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	RetryBacklogThreshold int     `yaml:"retry_backlog_threshold" mapstructure:"retry_backlog_threshold"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SIGNAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.fast_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.deep_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("enrich.base_url", "https://api.proxycurl.com/v2")
	v.SetDefault("enrich.timeout_secs", 30)
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("pipeline.max_roles", 3)
	v.SetDefault("pipeline.message_max_runes", 300)
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.retry_delay_secs", 300)
	v.SetDefault("queue.page_size", 1000)
	v.SetDefault("queue.chunk_size", 5)
	v.SetDefault("queue.sync_chunks", 2)
	v.SetDefault("queue.pause_millis", 200)
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.failure_rate_threshold", 0.25)
	v.SetDefault("monitoring.retry_backlog_threshold", 100)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete for the given run mode.
// Modes: "pipeline" (process/batch/retries), "serve", and the store-only
// modes "ingest", "repair", "directory", "migrate".
func (c *Config) Validate(mode string) error {
	var missing []string

	requireStore := func() {
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required for the postgres driver")
		}
	}

	switch mode {
	case "pipeline":
		requireStore()
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if len(c.Enrich.Keys) == 0 {
			missing = append(missing, "enrich.keys is required")
		}
		if c.Pipeline.MaxRetries < 1 {
			missing = append(missing, "pipeline.max_retries must be >= 1")
		}
		if c.Queue.ChunkSize < 1 || c.Queue.ChunkSize > 50 {
			missing = append(missing, "queue.chunk_size must be between 1 and 50")
		}
		if c.Queue.PageSize < c.Queue.ChunkSize {
			missing = append(missing, "queue.page_size must be >= queue.chunk_size")
		}
	case "serve":
		requireStore()
		if c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
	case "ingest", "repair", "directory", "migrate":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
