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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Scrape ScrapeConfig `yaml:"scrape" mapstructure:"scrape"`
	Output OutputConfig `yaml:"output" mapstructure:"output"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Review ReviewConfig `yaml:"review" mapstructure:"review"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ParseConfig configures profile parsing.
type ParseConfig struct {
	Archive      string `yaml:"archive" mapstructure:"archive"`
	Workers      int    `yaml:"workers" mapstructure:"workers"`
	ReferenceDir string `yaml:"reference_dir" mapstructure:"reference_dir"`
	Charset      string `yaml:"charset" mapstructure:"charset"`
}

// ScrapeConfig configures profile downloads from the parliament site.
type ScrapeConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	LinksFile         string  `yaml:"links_file" mapstructure:"links_file"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Output            string  `yaml:"output" mapstructure:"output"`
	FailedFile        string  `yaml:"failed_file" mapstructure:"failed_file"`

	BreakerThreshold    int `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerCooldownSecs int `yaml:"breaker_cooldown_secs" mapstructure:"breaker_cooldown_secs"`
}

// OutputConfig configures exported files.
type OutputConfig struct {
	Dir  string `yaml:"dir" mapstructure:"dir"`
	XLSX bool   `yaml:"xlsx" mapstructure:"xlsx"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ReviewConfig configures the near-duplicate name review.
type ReviewConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
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
	v.SetEnvPrefix("PANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "legislator-panel.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("parse.archive", "parliamentarian_legislature_profile_site_htmls.zip")
	v.SetDefault("parse.workers", 8)
	v.SetDefault("parse.reference_dir", "")
	v.SetDefault("parse.charset", "")
	v.SetDefault("scrape.base_url", "http://www.cdep.ro")
	v.SetDefault("scrape.links_file", "links_parliamentarians_html.txt")
	v.SetDefault("scrape.user_agent", "Mozilla/5.0 (compatible; legislator-panel/1.0)")
	v.SetDefault("scrape.requests_per_second", 1.0)
	v.SetDefault("scrape.max_retries", 3)
	v.SetDefault("scrape.timeout_secs", 60)
	v.SetDefault("scrape.output", "parliamentarian_legislature_profile_site_htmls.zip")
	v.SetDefault("scrape.failed_file", "recalcitrant_profile_sites.txt")
	v.SetDefault("scrape.breaker_threshold", 10)
	v.SetDefault("scrape.breaker_cooldown_secs", 120)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.xlsx", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("review.similarity_threshold", 0.97)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command needs. Every problem is reported, not just the
// first.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			errs = append(errs, "store.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, "store.driver must be sqlite or postgres, got "+quote(c.Store.Driver))
	}

	if t := c.Review.SimilarityThreshold; t <= 0 || t > 1 {
		errs = append(errs, "review.similarity_threshold must be in (0, 1]")
	}

	switch mode {
	case "parse", "run":
		if c.Parse.Workers < 1 || c.Parse.Workers > 64 {
			errs = append(errs, "parse.workers must be between 1 and 64")
		}
		if c.Parse.Archive == "" {
			errs = append(errs, "parse.archive is required")
		}
	case "scrape":
		if c.Scrape.BaseURL == "" {
			errs = append(errs, "scrape.base_url is required")
		}
		if c.Scrape.LinksFile == "" {
			errs = append(errs, "scrape.links_file is required")
		}
		if c.Scrape.RequestsPerSecond <= 0 {
			errs = append(errs, "scrape.requests_per_second must be > 0")
		}
		if c.Scrape.MaxRetries < 1 {
			errs = append(errs, "scrape.max_retries must be >= 1")
		}
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	case "expand", "export", "report":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func quote(s string) string {
	return `"` + s + `"`
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
