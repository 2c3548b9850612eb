package parser

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/automation-pilgrim/models"
)

// EntrySelector matches one catalog entry block on a listing page.
const EntrySelector = ".product_pod"

var priceNumber = regexp.MustCompile(`\d+\.\d+`)

// ExtractBooks parses a listing page into books, in document order.
// Each field is extracted independently; a missing field gets its placeholder
// and never drops the entry. Unparseable or empty markup yields no books.
func ExtractBooks(markup []byte, catalogBase string) []*models.Book {
	if len(bytes.TrimSpace(markup)) == 0 {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil
	}
	return ExtractFromSelection(doc.Selection, catalogBase)
}

// ExtractFromSelection extracts books from an already parsed document.
func ExtractFromSelection(root *goquery.Selection, catalogBase string) []*models.Book {
	var books []*models.Book
	root.Find(EntrySelector).Each(func(_ int, entry *goquery.Selection) {
		books = append(books, extractBook(entry, catalogBase))
	})
	return books
}

func extractBook(entry *goquery.Selection, catalogBase string) *models.Book {
	return &models.Book{
		Title:        orPlaceholder(attr(entry, "h3 a", "title"), models.TitleNotAvailable),
		Price:        orPlaceholder(text(entry, ".price_color"), models.PriceNotAvailable),
		Availability: orPlaceholder(text(entry, ".availability"), models.AvailabilityNotAvailable),
		Rating:       orPlaceholder(rating(entry), models.RatingNotAvailable),
		ProductURL:   orPlaceholder(productURL(entry, catalogBase), models.URLNotAvailable),
	}
}

// field is a single extraction outcome.
type field struct {
	value string
	ok    bool
}

func orPlaceholder(f field, placeholder string) string {
	if !f.ok {
		return placeholder
	}
	return f.value
}

func attr(entry *goquery.Selection, selector, name string) field {
	node := entry.Find(selector).First()
	if node.Length() == 0 {
		return field{}
	}
	value, ok := node.Attr(name)
	return field{value: value, ok: ok}
}

func text(entry *goquery.Selection, selector string) field {
	node := entry.Find(selector).First()
	if node.Length() == 0 {
		return field{}
	}
	return field{value: strings.TrimSpace(node.Text()), ok: true}
}

// rating reads the word from a class list such as "star-rating Three".
func rating(entry *goquery.Selection) field {
	class := attr(entry, ".star-rating", "class")
	if !class.ok {
		return field{}
	}
	parts := strings.Fields(class.value)
	if len(parts) < 2 {
		return field{}
	}
	return field{value: parts[1], ok: true}
}

func productURL(entry *goquery.Selection, catalogBase string) field {
	href := attr(entry, "h3 a", "href")
	if !href.ok {
		return field{}
	}
	return field{value: catalogBase + href.value, ok: true}
}

// MissingFields lists the fields of b that hold their placeholder.
func MissingFields(b *models.Book) []string {
	if b == nil {
		return nil
	}
	var missing []string
	if b.Title == models.TitleNotAvailable {
		missing = append(missing, "title")
	}
	if b.Price == models.PriceNotAvailable {
		missing = append(missing, "price")
	}
	if b.Availability == models.AvailabilityNotAvailable {
		missing = append(missing, "availability")
	}
	if b.Rating == models.RatingNotAvailable {
		missing = append(missing, "rating")
	}
	if b.ProductURL == models.URLNotAvailable {
		missing = append(missing, "product_url")
	}
	return missing
}

// PriceValue extracts the decimal amount from a price such as "£51.77".
func PriceValue(price string) (float64, bool) {
	match := priceNumber.FindString(price)
	if match == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// RatingOrder lists the rating words from lowest to highest.
var RatingOrder = []string{"One", "Two", "Three", "Four", "Five"}

// RatingToNumeric converts the textual rating to a numeric scale.
func RatingToNumeric(rating string) int {
	switch strings.TrimSpace(rating) {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}
