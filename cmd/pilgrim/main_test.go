package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/automation-pilgrim/config"
	"github.com/aluiziolira/automation-pilgrim/pipeline"
	"github.com/aluiziolira/automation-pilgrim/scraper"
)

const testBaseURL = "http://example.test/catalogue/"

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()
	if cmd.Use != "pilgrim" {
		t.Fatalf("use = %q, want pilgrim", cmd.Use)
	}

	flag := cmd.PersistentFlags().Lookup("verbose")
	if flag == nil || flag.Shorthand != "v" {
		t.Fatalf("expected -v/--verbose persistent flag, got %+v", flag)
	}
	if cmd.PersistentFlags().Lookup("config") == nil {
		t.Fatal("expected --config persistent flag")
	}

	want := map[string]bool{"crawl": false, "report": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("missing %s subcommand", name)
		}
	}
}

func TestCrawlFlags(t *testing.T) {
	cmd := NewCrawlCmd(config.NewViper())
	for _, name := range []string{
		"base-url", "catalog-base", "max-attempts", "timeout", "retry-delay", "page-delay",
		"max-pages", "output", "format", "visualize", "metrics-addr", "user-agent",
	} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("missing --%s flag", name)
		}
	}
}

func TestCreateWriter(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		format  string
		file    string
		wantErr bool
	}{
		{format: "csv", file: "books.csv"},
		{format: "json", file: "books.jsonl"},
		{format: "dual", file: "books_dual.csv"},
		{format: "sqlite", file: "books.db"},
		{format: "xml", file: "books.xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w, err := createWriter(tt.format, filepath.Join(dir, tt.file))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unsupported format")
				}
				return
			}
			if err != nil {
				t.Fatalf("createWriter(%q): %v", tt.format, err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}
		})
	}
}

func catalogPage(entries int) string {
	var b strings.Builder
	b.WriteString("<html><body><ol class=\"row\">")
	for i := 1; i <= entries; i++ {
		b.WriteString("<li><article class=\"product_pod\">")
		fmt.Fprintf(&b, "<h3><a href=\"book-%d/index.html\" title=\"Book %d\">Book %d</a></h3>", i, i, i)
		b.WriteString("<p class=\"star-rating Four\"></p>")
		fmt.Fprintf(&b, "<p class=\"price_color\">&pound;%d.50</p>", i)
		b.WriteString("<p class=\"instock availability\">In stock</p>")
		b.WriteString("</article></li>")
	}
	b.WriteString("</ol></body></html>")
	return b.String()
}

func testCrawlConfig(dir string) *config.CrawlConfig {
	cfg := config.DefaultConfig().Crawl
	cfg.BaseURL = testBaseURL
	cfg.CatalogBase = testBaseURL
	cfg.RetryDelay = 0
	cfg.PageDelay = 0
	cfg.OutputFile = filepath.Join(dir, "books_data.csv")
	cfg.VisualizeFile = filepath.Join(dir, "catalog.md")
	return &cfg
}

func newMockScraper(t *testing.T, cfg *config.CrawlConfig, pages map[int]string) *scraper.Scraper {
	t.Helper()
	s, err := scraper.NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	transport := httpmock.NewMockTransport()
	for n, body := range pages {
		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "text/html")
		transport.RegisterResponder("GET", s.PageURL(n), httpmock.ResponderFromResponse(resp))
	}
	s.Fetcher().WithTransport(transport)
	return s
}

func TestRunCrawlPersistsAndVisualizes(t *testing.T) {
	dir := t.TempDir()
	cfg := testCrawlConfig(dir)
	s := newMockScraper(t, cfg, map[int]string{
		1: catalogPage(3),
		2: catalogPage(2),
		3: catalogPage(0),
	})

	var out bytes.Buffer
	if err := runCrawl(context.Background(), cfg, s, &out); err != nil {
		t.Fatalf("runCrawl: %v", err)
	}

	books, err := pipeline.ReadCSV(cfg.OutputFile)
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(books) != 5 {
		t.Fatalf("persisted %d books, want 5", len(books))
	}
	if books[0].Title != "Book 1" || books[0].ProductURL != testBaseURL+"book-1/index.html" {
		t.Fatalf("unexpected first book: %+v", books[0])
	}

	md, err := os.ReadFile(cfg.VisualizeFile)
	if err != nil {
		t.Fatalf("read catalog summary: %v", err)
	}
	if !strings.Contains(string(md), "Number of Books by Rating") {
		t.Fatalf("catalog summary missing rating chart:\n%s", md)
	}

	summary := out.String()
	if !strings.Contains(summary, "Total items:   5") || !strings.Contains(summary, "end_of_catalog") {
		t.Fatalf("unexpected summary:\n%s", summary)
	}
}

func TestRunCrawlNoBooksSkipsOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := testCrawlConfig(dir)
	s := newMockScraper(t, cfg, map[int]string{1: catalogPage(0)})

	var out bytes.Buffer
	if err := runCrawl(context.Background(), cfg, s, &out); err != nil {
		t.Fatalf("runCrawl: %v", err)
	}
	if _, err := os.Stat(cfg.OutputFile); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err = %v", err)
	}
	if _, err := os.Stat(cfg.VisualizeFile); !os.IsNotExist(err) {
		t.Fatalf("expected no catalog summary, stat err = %v", err)
	}
}

func writeSales(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "sales_data.csv")
	data := "Date,Category,TotalSales,QuantitySold\n" +
		"2023-01-15,A,100,10\n" +
		"2023-02-15,A,50,5\n" +
		"2024-03-01,B,80,4\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write sales: %v", err)
	}
	return path
}

func TestReportCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeSales(t, dir)
	output := filepath.Join(dir, "kpi_dashboard.md")
	workbook := filepath.Join(dir, "kpi_dashboard.xlsx")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"report", "--input", input, "--output", output, "--xlsx", workbook})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("report: %v", err)
	}

	md, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	for _, heading := range []string{
		"Sample Raw Data",
		"Yearly KPIs - Total Sales, ROMS",
		"Total Sales per Category (Yearly)",
		"Average Order Value (AOV) per Category",
	} {
		if !strings.Contains(string(md), heading) {
			t.Fatalf("dashboard missing %q", heading)
		}
	}
	if _, err := os.Stat(workbook); err != nil {
		t.Fatalf("expected workbook: %v", err)
	}
	if !strings.Contains(out.String(), output) {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestReportCommandMissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "kpi_dashboard.md")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"report", "--input", filepath.Join(dir, "missing.csv"), "--output", output})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected load failure")
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("expected no dashboard, stat err = %v", err)
	}
}
