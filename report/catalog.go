package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/aluiziolira/automation-pilgrim/models"
	"github.com/aluiziolira/automation-pilgrim/parser"
)

// RatingCount is the number of books carrying one star rating.
type RatingCount struct {
	Rating string
	Count  int
}

// AvailabilityPrice is the mean numeric price of books sharing an availability label.
type AvailabilityPrice struct {
	Availability string
	AveragePrice float64
	Books        int
}

// CatalogSummary aggregates a crawl for the catalog report.
type CatalogSummary struct {
	Total         int
	Ratings       []RatingCount
	Availability  []AvailabilityPrice
	UnratedBooks  int
	UnpricedBooks int
}

// SummarizeCatalog counts books per rating, always listing the five ratings
// in ascending order, and averages prices per availability label. Books whose
// price has no numeric value are left out of the averages.
func SummarizeCatalog(books []*models.Book) CatalogSummary {
	summary := CatalogSummary{Total: len(books)}

	counts := make(map[string]int, len(parser.RatingOrder))
	type priceAcc struct {
		sum   float64
		count int
	}
	prices := make(map[string]*priceAcc)

	for _, b := range books {
		if parser.RatingToNumeric(b.Rating) > 0 {
			counts[b.Rating]++
		} else {
			summary.UnratedBooks++
		}

		price, ok := parser.PriceValue(b.Price)
		if !ok {
			summary.UnpricedBooks++
			continue
		}
		acc, found := prices[b.Availability]
		if !found {
			acc = &priceAcc{}
			prices[b.Availability] = acc
		}
		acc.sum += price
		acc.count++
	}

	for _, rating := range parser.RatingOrder {
		summary.Ratings = append(summary.Ratings, RatingCount{Rating: rating, Count: counts[rating]})
	}

	for label, acc := range prices {
		summary.Availability = append(summary.Availability, AvailabilityPrice{
			Availability: label,
			AveragePrice: acc.sum / float64(acc.count),
			Books:        acc.count,
		})
	}
	sort.Slice(summary.Availability, func(i, j int) bool {
		return summary.Availability[i].Availability < summary.Availability[j].Availability
	})
	return summary
}

// WriteCatalogMarkdown writes the rating and price charts for a crawl.
func WriteCatalogMarkdown(w io.Writer, summary CatalogSummary) error {
	md := markdown.NewMarkdown(w)

	md.H1("Book Catalog Summary")
	md.PlainTextf("%d books scraped.", summary.Total)
	md.PlainText("")

	writeRatings(md, summary)
	md.HorizontalRule()
	writeAvailability(md, summary)

	return md.Build()
}

func writeRatings(md *markdown.Markdown, summary CatalogSummary) {
	md.H2("Number of Books by Rating")
	md.PlainText("")

	labels := make([]string, len(summary.Ratings))
	values := make([]float64, len(summary.Ratings))
	rows := make([][]string, len(summary.Ratings))
	for i, rc := range summary.Ratings {
		labels[i] = rc.Rating
		values[i] = float64(rc.Count)
		rows[i] = []string{rc.Rating, strconv.Itoa(rc.Count)}
	}

	chart := &xyChart{title: "Number of Books by Rating", xAxis: labels, yLabel: "Number of Books"}
	chart.add(barSeries, values)
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	md.Table(markdown.TableSet{Header: []string{"Rating", "Books"}, Rows: rows})
	md.PlainText("")

	pie := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Rating Share"),
		piechart.WithShowData(true),
	)
	for _, rc := range summary.Ratings {
		if rc.Count > 0 {
			pie.LabelAndIntValue(rc.Rating, uint64(rc.Count))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, pie.String())
	md.PlainText("")

	if summary.UnratedBooks > 0 {
		md.Note(fmt.Sprintf("%d books had no recognised rating.", summary.UnratedBooks))
		md.PlainText("")
	}
}

func writeAvailability(md *markdown.Markdown, summary CatalogSummary) {
	md.H2("Average Price by Availability")
	md.PlainText("")

	if len(summary.Availability) == 0 {
		md.PlainText("No numeric prices found.")
		md.PlainText("")
		return
	}

	labels := make([]string, len(summary.Availability))
	values := make([]float64, len(summary.Availability))
	rows := make([][]string, len(summary.Availability))
	for i, ap := range summary.Availability {
		labels[i] = ap.Availability
		values[i] = ap.AveragePrice
		rows[i] = []string{tableCell(ap.Availability), formatAmount(ap.AveragePrice), strconv.Itoa(ap.Books)}
	}

	chart := &xyChart{title: "Average Price by Availability", xAxis: labels, yLabel: "Average Price"}
	chart.add(barSeries, values)
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")

	md.Table(markdown.TableSet{Header: []string{"Availability", "Average Price", "Books"}, Rows: rows})
	md.PlainText("")

	if summary.UnpricedBooks > 0 {
		md.Note(fmt.Sprintf("%d books had no numeric price.", summary.UnpricedBooks))
		md.PlainText("")
	}
}

// WriteFile creates filename, including missing parent directories, and
// hands it to render.
func WriteFile(filename string, render func(io.Writer) error) error {
	if err := ensureDir(filename); err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
