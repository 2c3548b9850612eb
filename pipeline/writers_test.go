package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/automation-pilgrim/models"
)

func sampleBooks() []*models.Book {
	return []*models.Book{
		{
			Title:        "A Light in the Attic",
			Price:        "£51.77",
			Availability: "In stock",
			Rating:       "Three",
			ProductURL:   "http://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html",
		},
		{
			Title:        `Quotes, "Commas" and More`,
			Price:        models.PriceNotAvailable,
			Availability: "In stock",
			Rating:       models.RatingNotAvailable,
			ProductURL:   models.URLNotAvailable,
		},
	}
}

func TestCSVWriterHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Write(sampleBooks()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records=%d, want 3", len(records))
	}
	want := []string{"Title", "Price", "Availability", "Rating", "Product URL"}
	for i, col := range want {
		if records[0][i] != col {
			t.Fatalf("header = %v, want %v", records[0], want)
		}
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	books := sampleBooks()
	if err := writer.Write(books); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != len(books) {
		t.Fatalf("books=%d, want %d", len(got), len(books))
	}
	for i := range books {
		if *got[i] != *books[i] {
			t.Fatalf("book %d = %+v, want %+v", i, *got[i], *books[i])
		}
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.csv")
	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	got, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("books=%d, want 0", len(got))
	}
}

func TestJSONWriterWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := writer.Write(sampleBooks()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var decoded []models.Book
	for scanner.Scan() {
		var b models.Book
		if err := json.Unmarshal(scanner.Bytes(), &b); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		decoded = append(decoded, b)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("json lines=%d, want 2", len(decoded))
	}
	if decoded[0].ProductURL != sampleBooks()[0].ProductURL {
		t.Fatalf("product url = %q", decoded[0].ProductURL)
	}
}

func TestDualWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")
	jsonPath := filepath.Join(dir, "books.jsonl")

	writer, err := NewDualWriter(csvPath, jsonPath)
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	if err := writer.Write(sampleBooks()); err != nil {
		t.Fatalf("write dual: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate dual: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close dual: %v", err)
	}

	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
	if info, err := os.Stat(jsonPath); err != nil || info.Size() == 0 {
		t.Fatalf("json file missing or empty")
	}
}

func TestDualFilenames(t *testing.T) {
	csvName, jsonName := DualFilenames("out/books_data.csv")
	if csvName != "out/books_data.csv" || jsonName != "out/books_data.json" {
		t.Fatalf("DualFilenames = %q, %q", csvName, jsonName)
	}
}

func TestMultiWriterStopsAtFirstWriteError(t *testing.T) {
	failing := &mockWriter{writeErr: errors.New("disk full")}
	second := &mockWriter{}
	writer := NewMultiWriter(failing, second)

	err := writer.Write(sampleBooks())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("err = %v, want disk full", err)
	}
	if len(second.batches) != 0 {
		t.Fatalf("second writer received %d batches after failure", len(second.batches))
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !failing.closed || !second.closed {
		t.Fatal("expected every writer closed")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.db")

	writer, err := NewSQLiteWriter(path)
	if err != nil {
		t.Fatalf("create sqlite writer: %v", err)
	}
	books := sampleBooks()
	if err := writer.Write(books[:1]); err != nil {
		t.Fatalf("write first batch: %v", err)
	}
	if err := writer.Write(books[1:]); err != nil {
		t.Fatalf("write second batch: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate sqlite: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close sqlite: %v", err)
	}

	got, err := ReadSQLite(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(got) != len(books) {
		t.Fatalf("books=%d, want %d", len(got), len(books))
	}
	for i := range books {
		if *got[i] != *books[i] {
			t.Fatalf("book %d = %+v, want %+v", i, *got[i], *books[i])
		}
	}
}
