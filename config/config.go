package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds configuration for both pipelines.
type Config struct {
	Crawl   CrawlConfig  `mapstructure:"crawl"`
	Report  ReportConfig `mapstructure:"report"`
	Verbose bool         `mapstructure:"verbose"`
}

// CrawlConfig configures the catalog crawler.
type CrawlConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	CatalogBase   string        `mapstructure:"catalog_base"`
	MaxPages      int           `mapstructure:"max_pages"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	PageDelay     time.Duration `mapstructure:"page_delay"`
	UserAgent     string        `mapstructure:"user_agent"`
	OutputFile    string        `mapstructure:"output"`
	OutputFormat  string        `mapstructure:"format"` // csv, json, dual, or sqlite
	BatchSize     int           `mapstructure:"batch_size"`
	DedupeMaxSize int           `mapstructure:"dedupe_max_size"`
	VisualizeFile string        `mapstructure:"visualize"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
}

// ReportConfig configures the KPI dashboard generator.
type ReportConfig struct {
	InputFile  string `mapstructure:"input"`
	OutputFile string `mapstructure:"output"`
	XLSXFile   string `mapstructure:"xlsx"`
	SampleRows int    `mapstructure:"sample_rows"`
}

// DefaultConfig returns defaults matching the public demo catalog.
func DefaultConfig() *Config {
	return &Config{
		Crawl: CrawlConfig{
			BaseURL:       "http://books.toscrape.com/catalogue/",
			CatalogBase:   "http://books.toscrape.com/catalogue/",
			MaxPages:      0,
			MaxAttempts:   3,
			Timeout:       10 * time.Second,
			RetryDelay:    2 * time.Second,
			PageDelay:     1 * time.Second,
			UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
			OutputFile:    "books_data.csv",
			OutputFormat:  "csv",
			BatchSize:     64,
			DedupeMaxSize: 10000,
		},
		Report: ReportConfig{
			InputFile:  "sales_data.csv",
			OutputFile: "kpi_dashboard.md",
			SampleRows: 20,
		},
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := c.Crawl.Validate(); err != nil {
		return err
	}
	return c.Report.Validate()
}

// Validate checks the crawl section.
func (c *CrawlConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		return fmt.Errorf("base URL must end with a slash")
	}
	if c.CatalogBase == "" {
		return fmt.Errorf("catalog base cannot be empty")
	}

	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.PageDelay < 0 {
		return fmt.Errorf("page delay cannot be negative")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "sqlite":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or sqlite")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// Validate checks the report section.
func (c *ReportConfig) Validate() error {
	if c.InputFile == "" {
		return fmt.Errorf("report input file cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("report output file cannot be empty")
	}
	if c.SampleRows <= 0 {
		return fmt.Errorf("sample rows must be positive")
	}
	return nil
}
