// Package models defines data structures shared by the crawl and report pipelines.
package models

import "time"

// Placeholders written into a Book field when the catalog entry lacks it.
const (
	TitleNotAvailable        = "Title not available"
	PriceNotAvailable        = "Price not available"
	AvailabilityNotAvailable = "Availability not available"
	RatingNotAvailable       = "Rating not available"
	URLNotAvailable          = "URL not available"
)

// Book represents one catalog entry extracted from a listing page.
type Book struct {
	Title        string `csv:"Title" json:"title"`
	Price        string `csv:"Price" json:"price"`
	Availability string `csv:"Availability" json:"availability"`
	Rating       string `csv:"Rating" json:"rating"`
	ProductURL   string `csv:"Product URL" json:"product_url"`
}

// StopReason tells why a crawl stopped paginating.
type StopReason string

const (
	StopEndOfCatalog   StopReason = "end_of_catalog"
	StopFetchExhausted StopReason = "fetch_exhausted"
	StopExtractFault   StopReason = "extract_fault"
	StopMaxPages       StopReason = "max_pages"
	StopCanceled       StopReason = "canceled"
)

// CrawlResult holds the overall result of a crawl run.
type CrawlResult struct {
	Books        []*Book
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	RequestCount int
	RetryCount   int
	FailedURLs   []string
	StopReason   StopReason
}

// TotalCount returns the number of accumulated books.
func (r *CrawlResult) TotalCount() int {
	if r == nil {
		return 0
	}
	return len(r.Books)
}
