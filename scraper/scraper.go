package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/aluiziolira/automation-pilgrim/config"
	"github.com/aluiziolira/automation-pilgrim/models"
	"github.com/aluiziolira/automation-pilgrim/parser"
)

// Scraper walks the catalog page by page until a page yields no books.
type Scraper struct {
	cfg     *config.CrawlConfig
	fetcher *Fetcher
	Metrics *Metrics

	extract func(markup []byte) []*models.Book
	sleep   func(context.Context, time.Duration) error
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.CrawlConfig) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	metrics := NewMetrics()
	catalogBase := cfg.CatalogBase
	return &Scraper{
		cfg:     cfg,
		fetcher: NewFetcher(cfg, metrics),
		Metrics: metrics,
		extract: func(markup []byte) []*models.Book {
			return parser.ExtractBooks(markup, catalogBase)
		},
		sleep: sleepContext,
	}, nil
}

// Fetcher exposes the underlying page fetcher.
func (s *Scraper) Fetcher() *Fetcher {
	return s.fetcher
}

// PageURL returns the listing URL for a 1-based page number.
func (s *Scraper) PageURL(page int) string {
	return fmt.Sprintf("%spage-%d.html", s.cfg.BaseURL, page)
}

// Run crawls from page 1 and returns everything accumulated when it stops.
// Failures never discard collected books; they only decide the stop reason.
func (s *Scraper) Run(ctx context.Context) *models.CrawlResult {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.CrawlResult{StartTime: time.Now()}
	result.StopReason = s.crawl(ctx, result)
	result.EndTime = time.Now()
	result.RequestCount = s.fetcher.RequestCount()
	result.RetryCount = s.fetcher.RetryCount()
	s.Metrics.observeStop(result.StopReason)

	slog.Info("crawl stopped",
		slog.String("reason", string(result.StopReason)),
		slog.Int("pages", result.PageCount),
		slog.Int("books", len(result.Books)),
	)
	return result
}

func (s *Scraper) crawl(ctx context.Context, result *models.CrawlResult) models.StopReason {
	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return models.StopCanceled
		}

		pageURL := s.PageURL(page)
		slog.Info("scraping page", slog.Int("page", page), slog.String("url", pageURL))

		books, err := s.scrapePage(ctx, pageURL)
		switch {
		case err == nil:
		case errors.Is(err, ErrFetchExhausted):
			result.FailedURLs = append(result.FailedURLs, pageURL)
			slog.Info("no more data found", slog.Int("page", page), slog.String("cause", "fetch exhausted"))
			return models.StopFetchExhausted
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return models.StopCanceled
		default:
			slog.Error("error occurred on page", slog.Int("page", page), slog.Any("error", err))
			return models.StopExtractFault
		}

		if len(books) == 0 {
			slog.Info("no more data found", slog.Int("page", page))
			return models.StopEndOfCatalog
		}

		result.Books = append(result.Books, books...)
		result.PageCount++
		s.Metrics.observePage(len(books))
		slog.Debug("page scraped",
			slog.Int("page", page),
			slog.Int("books", len(books)),
			slog.Int("total", len(result.Books)),
		)

		if s.cfg.MaxPages > 0 && page >= s.cfg.MaxPages {
			return models.StopMaxPages
		}
		if err := s.sleep(ctx, s.cfg.PageDelay); err != nil {
			return models.StopCanceled
		}
	}
}

func (s *Scraper) scrapePage(ctx context.Context, pageURL string) (books []*models.Book, err error) {
	page, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			books = nil
			err = fmt.Errorf("%w: %s: %v", ErrExtractFault, pageURL, r)
		}
	}()
	return s.extract(page.Body), nil
}
