package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aluiziolira/automation-pilgrim/config"
	"github.com/aluiziolira/automation-pilgrim/models"
	"github.com/aluiziolira/automation-pilgrim/pipeline"
	"github.com/aluiziolira/automation-pilgrim/report"
	"github.com/aluiziolira/automation-pilgrim/scraper"
)

// NewCrawlCmd creates the crawl subcommand.
func NewCrawlCmd(v *viper.Viper) *cobra.Command {
	def := config.DefaultConfig().Crawl

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the book catalog and persist every entry",
		Long: `Fetch catalog pages one at a time starting at page 1, retrying each page a
bounded number of times, until a page yields no books. The accumulated books
are written to the output file and, with --visualize, summarised as charts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			if err := cfg.Crawl.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			s, err := scraper.NewScraper(&cfg.Crawl)
			if err != nil {
				return fmt.Errorf("initialising scraper: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runCrawl(ctx, &cfg.Crawl, s, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("base-url", def.BaseURL, "Listing base URL; pages are <base-url>page-N.html")
	f.String("catalog-base", def.CatalogBase, "Prefix joined with each entry's relative link")
	f.Int("max-attempts", def.MaxAttempts, "Fetch attempts per page before giving up")
	f.Duration("timeout", def.Timeout, "Per-request timeout")
	f.Duration("retry-delay", def.RetryDelay, "Pause between failed attempts")
	f.Duration("page-delay", def.PageDelay, "Pause between successful pages")
	f.Int("max-pages", def.MaxPages, "Stop after this many pages (0 means no limit)")
	f.String("output", def.OutputFile, "Output file path")
	f.String("format", def.OutputFormat, "Output format: csv, json, dual, or sqlite")
	f.String("visualize", def.VisualizeFile, "Write a Markdown catalog summary with charts to this path")
	f.String("metrics-addr", def.MetricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	f.String("user-agent", def.UserAgent, "User-Agent header sent with every request")

	bindFlags(v, f, map[string]string{
		"crawl.base_url":     "base-url",
		"crawl.catalog_base": "catalog-base",
		"crawl.max_attempts": "max-attempts",
		"crawl.timeout":      "timeout",
		"crawl.retry_delay":  "retry-delay",
		"crawl.page_delay":   "page-delay",
		"crawl.max_pages":    "max-pages",
		"crawl.output":       "output",
		"crawl.format":       "format",
		"crawl.visualize":    "visualize",
		"crawl.metrics_addr": "metrics-addr",
		"crawl.user_agent":   "user-agent",
	})

	return cmd
}

func runCrawl(ctx context.Context, cfg *config.CrawlConfig, s *scraper.Scraper, out io.Writer) error {
	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.Int("max_pages", cfg.MaxPages),
		slog.Int("max_attempts", cfg.MaxAttempts),
	)

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	result := s.Run(ctx)
	if len(result.Books) == 0 {
		slog.Warn("no books scraped, skipping output", slog.String("reason", string(result.StopReason)))
		printSummary(out, result, nil, "")
		return nil
	}

	metrics, err := persist(cfg, result.Books)
	if err != nil {
		return err
	}

	if cfg.VisualizeFile != "" {
		summary := report.SummarizeCatalog(result.Books)
		err := report.WriteFile(cfg.VisualizeFile, func(w io.Writer) error {
			return report.WriteCatalogMarkdown(w, summary)
		})
		if err != nil {
			return fmt.Errorf("write catalog summary: %w", err)
		}
		slog.Info("catalog summary written", slog.String("path", cfg.VisualizeFile))
	}

	printSummary(out, result, metrics, cfg.OutputFile)
	return nil
}

// persist writes books through a pipeline into the configured output and
// validates the result.
func persist(cfg *config.CrawlConfig, books []*models.Book) (map[string]interface{}, error) {
	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return nil, fmt.Errorf("creating writer: %w", err)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	p, err := pipeline.NewPipeline(writer, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}
	if err := p.Process(books...); err != nil {
		return nil, fmt.Errorf("writing books: %w", err)
	}
	if err := p.Close(); err != nil {
		return nil, fmt.Errorf("pipeline shutdown failed: %w", err)
	}
	if err := writer.Validate(); err != nil {
		return nil, fmt.Errorf("output validation failed: %w", err)
	}

	slog.Info("data saved", slog.String("path", cfg.OutputFile), slog.Int("books", len(books)))
	return p.GetMetrics(), nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		return pipeline.NewDualWriter(pipeline.DualFilenames(filename))
	case "sqlite":
		return pipeline.NewSQLiteWriter(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(out io.Writer, result *models.CrawlResult, metrics map[string]interface{}, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Fprintln(out, "\n"+separator)
	fmt.Fprintln(out, "Scrape complete")

	duration := result.EndTime.Sub(result.StartTime)
	fmt.Fprintf(out, "  Total items:   %d\n", result.TotalCount())
	fmt.Fprintf(out, "  Pages:         %d\n", result.PageCount)
	fmt.Fprintf(out, "  Requests:      %d\n", result.RequestCount)
	fmt.Fprintf(out, "  Retries:       %d\n", result.RetryCount)
	fmt.Fprintf(out, "  Failed URLs:   %d\n", len(result.FailedURLs))
	fmt.Fprintf(out, "  Stop reason:   %s\n", result.StopReason)
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Fprintf(out, "  Validation:    %v\n", valErrors)
	}
	fmt.Fprintf(out, "  Duration:      %v\n", duration.Round(time.Millisecond))
	if outputFile != "" {
		fmt.Fprintf(out, "  Output file:   %s\n", outputFile)
	}
	fmt.Fprintln(out, separator)
}
