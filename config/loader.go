package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. PILGRIM_CRAWL_BASE_URL.
const EnvPrefix = "PILGRIM"

// NewViper returns a viper instance seeded with DefaultConfig and wired to the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("verbose", def.Verbose)
	v.SetDefault("crawl.base_url", def.Crawl.BaseURL)
	v.SetDefault("crawl.catalog_base", def.Crawl.CatalogBase)
	v.SetDefault("crawl.max_pages", def.Crawl.MaxPages)
	v.SetDefault("crawl.max_attempts", def.Crawl.MaxAttempts)
	v.SetDefault("crawl.timeout", def.Crawl.Timeout)
	v.SetDefault("crawl.retry_delay", def.Crawl.RetryDelay)
	v.SetDefault("crawl.page_delay", def.Crawl.PageDelay)
	v.SetDefault("crawl.user_agent", def.Crawl.UserAgent)
	v.SetDefault("crawl.output", def.Crawl.OutputFile)
	v.SetDefault("crawl.format", def.Crawl.OutputFormat)
	v.SetDefault("crawl.batch_size", def.Crawl.BatchSize)
	v.SetDefault("crawl.dedupe_max_size", def.Crawl.DedupeMaxSize)
	v.SetDefault("crawl.visualize", def.Crawl.VisualizeFile)
	v.SetDefault("crawl.metrics_addr", def.Crawl.MetricsAddr)
	v.SetDefault("report.input", def.Report.InputFile)
	v.SetDefault("report.output", def.Report.OutputFile)
	v.SetDefault("report.xlsx", def.Report.XLSXFile)
	v.SetDefault("report.sample_rows", def.Report.SampleRows)

	return v
}

// Load reads an optional YAML file into v and decodes the result.
// An empty path skips the file; a missing explicit file is an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %q not found", path)
			}
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Crawl.OutputFormat = strings.ToLower(cfg.Crawl.OutputFormat)
	return cfg, nil
}
