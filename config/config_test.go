package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero max attempts",
			mutate: func(cfg *Config) {
				cfg.Crawl.MaxAttempts = 0
			},
			wantErr: "max attempts",
		},
		{
			name: "negative max pages",
			mutate: func(cfg *Config) {
				cfg.Crawl.MaxPages = -1
			},
			wantErr: "max pages",
		},
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.Crawl.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.Crawl.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "base url without trailing slash",
			mutate: func(cfg *Config) {
				cfg.Crawl.BaseURL = "http://books.toscrape.com/catalogue"
			},
			wantErr: "slash",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Crawl.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative retry delay",
			mutate: func(cfg *Config) {
				cfg.Crawl.RetryDelay = -time.Second
			},
			wantErr: "retry delay",
		},
		{
			name: "unknown format",
			mutate: func(cfg *Config) {
				cfg.Crawl.OutputFormat = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "empty report input",
			mutate: func(cfg *Config) {
				cfg.Report.InputFile = ""
			},
			wantErr: "input file",
		},
		{
			name: "zero sample rows",
			mutate: func(cfg *Config) {
				cfg.Report.SampleRows = 0
			},
			wantErr: "sample rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Crawl.MaxAttempts != 3 || cfg.Crawl.RetryDelay != 2*time.Second || cfg.Crawl.PageDelay != time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Crawl)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.Timeout != 10*time.Second {
		t.Fatalf("timeout = %v, want 10s", cfg.Crawl.Timeout)
	}
	if cfg.Report.OutputFile != "kpi_dashboard.md" {
		t.Fatalf("report output = %q", cfg.Report.OutputFile)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pilgrim.yaml")
	body := "crawl:\n  max_pages: 4\n  retry_delay: 500ms\n  format: JSON\nreport:\n  sample_rows: 5\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PILGRIM_CRAWL_MAX_ATTEMPTS", "5")

	cfg, err := Load(NewViper(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crawl.MaxPages != 4 {
		t.Fatalf("max pages = %d, want 4", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.RetryDelay != 500*time.Millisecond {
		t.Fatalf("retry delay = %v, want 500ms", cfg.Crawl.RetryDelay)
	}
	if cfg.Crawl.OutputFormat != "json" {
		t.Fatalf("format = %q, want json", cfg.Crawl.OutputFormat)
	}
	if cfg.Crawl.MaxAttempts != 5 {
		t.Fatalf("max attempts = %d, want 5 from env", cfg.Crawl.MaxAttempts)
	}
	if cfg.Report.SampleRows != 5 {
		t.Fatalf("sample rows = %d, want 5", cfg.Report.SampleRows)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(NewViper(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
