package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Anthropic     AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	Resolver      ResolverConfig      `yaml:"resolver" mapstructure:"resolver"`
	Qualification QualificationConfig `yaml:"qualification" mapstructure:"qualification"`
	Ingest        IngestConfig        `yaml:"ingest" mapstructure:"ingest"`
	Alerting      AlertingConfig      `yaml:"alerting" mapstructure:"alerting"`
	Thresholds    ThresholdsConfig    `yaml:"thresholds" mapstructure:"thresholds"`
}

// StoreConfig configures the policy tariff store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// AnthropicConfig holds Anthropic API settings for classification.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ResolverConfig configures rate resolution.
type ResolverConfig struct {
	// StaleAfterDays is the age past which a verified rate is annotated
	// as needing re-verification.
	StaleAfterDays int `yaml:"stale_after_days" mapstructure:"stale_after_days"`
}

// QualificationConfig carries the engine thresholds. These track treaty
// and policy text, not code, so they live here.
type QualificationConfig struct {
	RVCThresholdPct         float64 `yaml:"rvc_threshold_pct" mapstructure:"rvc_threshold_pct"`
	BufferMarginPct         float64 `yaml:"buffer_margin_pct" mapstructure:"buffer_margin_pct"`
	CountryConcentrationPct float64 `yaml:"country_concentration_pct" mapstructure:"country_concentration_pct"`
	ComponentDominancePct   float64 `yaml:"component_dominance_pct" mapstructure:"component_dominance_pct"`
	MaterialityUSD          float64 `yaml:"materiality_usd" mapstructure:"materiality_usd"`
	ReviewDate              string  `yaml:"review_date" mapstructure:"review_date"` // YYYY-MM-DD
}

// IngestConfig configures overlay table sync.
type IngestConfig struct {
	RequestsPerSecond float64        `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxRetries        int            `yaml:"max_retries" mapstructure:"max_retries"`
	Sources           []IngestSource `yaml:"sources" mapstructure:"sources"`
}

// IngestSource names one published overlay table.
type IngestSource struct {
	Name string `yaml:"name" mapstructure:"name"`
	URL  string `yaml:"url" mapstructure:"url"`
}

// AlertingConfig configures webhook delivery.
type AlertingConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// ThresholdsConfig points at the per-chapter RVC table.
type ThresholdsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRIANGLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "compliance.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("resolver.stale_after_days", 180)
	v.SetDefault("qualification.rvc_threshold_pct", 62.5)
	v.SetDefault("qualification.buffer_margin_pct", 7.5)
	v.SetDefault("qualification.country_concentration_pct", 50)
	v.SetDefault("qualification.component_dominance_pct", 30)
	v.SetDefault("qualification.materiality_usd", 10000)
	v.SetDefault("qualification.review_date", "2026-07-01")
	v.SetDefault("ingest.requests_per_second", 5)
	v.SetDefault("ingest.max_retries", 3)

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

// Validate checks the fields required for the given mode. Modes map to
// the top-level commands: "serve", "sync", "classify", "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	requireStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the postgres driver")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required for the sqlite driver")
			}
		default:
			problems = append(problems, "store.driver must be postgres or sqlite")
		}
	}

	switch mode {
	case "serve":
		requireStore()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "sync":
		requireStore()
		if len(c.Ingest.Sources) == 0 {
			problems = append(problems, "ingest.sources must name at least one overlay table")
		}
	case "classify":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	case "store":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Qualification.RVCThresholdPct <= 0 || c.Qualification.RVCThresholdPct > 100 {
		problems = append(problems, "qualification.rvc_threshold_pct must be in (0, 100]")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// ReviewTime parses the configured treaty review date. Empty means no
// review milestone is tracked.
func (c *QualificationConfig) ReviewTime() (*time.Time, error) {
	if c.ReviewDate == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", c.ReviewDate)
	if err != nil {
		return nil, eris.Wrapf(err, "config: parse review_date %q", c.ReviewDate)
	}
	return &t, nil
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
