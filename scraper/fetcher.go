package scraper

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/automation-pilgrim/config"
)

// Page is a successfully fetched catalog page.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher fetches single pages with a fixed number of attempts and a fixed
// pause between failed attempts.
type Fetcher struct {
	collector   *colly.Collector
	maxAttempts int
	retryDelay  time.Duration
	metrics     *Metrics
	sleep       func(context.Context, time.Duration) error

	requests int64
	retries  int64
}

// NewFetcher builds a fetcher configured from cfg. metrics may be nil.
func NewFetcher(cfg *config.CrawlConfig, metrics *Metrics) *Fetcher {
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	// Every status reaches OnResponse; attempt decides what counts as success.
	collector.ParseHTTPErrorResponse = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &Fetcher{
		collector:   collector,
		maxAttempts: maxAttempts,
		retryDelay:  cfg.RetryDelay,
		metrics:     metrics,
		sleep:       sleepContext,
	}
}

// WithTransport replaces the HTTP transport used for every attempt.
func (f *Fetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Fetch returns the first successful response for url. When all attempts
// fail the returned error matches ErrFetchExhausted. A canceled ctx returns
// the context error instead.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	var last error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		page, err := f.attempt(url)
		f.metrics.observeAttempt(time.Since(start), err)
		if err == nil {
			return page, nil
		}
		last = err

		category := errorTypeLabel(err)
		slog.Warn("fetch attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.maxAttempts),
			slog.String("url", url),
			slog.String("category", category),
			slog.Any("error", err),
		)

		if attempt == f.maxAttempts {
			break
		}
		atomic.AddInt64(&f.retries, 1)
		f.metrics.observeRetry()
		if err := f.sleep(ctx, f.retryDelay); err != nil {
			return nil, err
		}
	}

	slog.Error("failed to fetch page",
		slog.String("url", url),
		slog.Int("attempts", f.maxAttempts),
	)
	return nil, &exhaustedError{url: url, attempts: f.maxAttempts, last: last}
}

// RequestCount returns the number of attempts issued so far.
func (f *Fetcher) RequestCount() int {
	return int(atomic.LoadInt64(&f.requests))
}

// RetryCount returns the number of retries made so far.
func (f *Fetcher) RetryCount() int {
	return int(atomic.LoadInt64(&f.retries))
}

func (f *Fetcher) attempt(url string) (*Page, error) {
	c := f.collector.Clone()
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true

	var (
		page     *Page
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = classifyError(err, status)
	})

	atomic.AddInt64(&f.requests, 1)
	visitErr := c.Visit(url)

	switch {
	case fetchErr != nil:
		return nil, fetchErr
	case visitErr != nil:
		return nil, classifyError(visitErr, 0)
	case page == nil:
		return nil, errors.New("no response received")
	case page.StatusCode < http.StatusOK || page.StatusCode >= http.StatusMultipleChoices:
		return nil, classifyError(nil, page.StatusCode)
	}
	return page, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
