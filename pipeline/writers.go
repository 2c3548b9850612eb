package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"

	"github.com/aluiziolira/automation-pilgrim/models"
)

// fileSink owns one output file and knows how to check it was written.
type fileSink struct {
	file *os.File
	kind string
}

func createSink(filename, kind string) (*fileSink, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s file: %w", kind, err)
	}
	return &fileSink{file: f, kind: kind}, nil
}

// Validate ensures the file has content.
func (s *fileSink) Validate() error {
	info, err := os.Stat(s.file.Name())
	if err != nil {
		return fmt.Errorf("stat %s file: %w", s.kind, err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("%s file is empty", s.kind)
	}
	return nil
}

// CSVWriter writes books under the Title,Price,Availability,Rating,Product URL
// header. Fields containing commas or quotes are quoted by encoding/csv.
type CSVWriter struct {
	*fileSink
	writer  *csv.Writer
	encoder *csvutil.Encoder
}

// NewCSVWriter creates filename and writes the header row.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	sink, err := createSink(filename, "csv")
	if err != nil {
		return nil, err
	}

	writer := csv.NewWriter(sink.file)
	cw := &CSVWriter{fileSink: sink, writer: writer, encoder: csvutil.NewEncoder(writer)}
	if err := cw.encoder.EncodeHeader(models.Book{}); err != nil {
		sink.file.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.flush(); err != nil {
		sink.file.Close()
		return nil, err
	}
	return cw, nil
}

func (cw *CSVWriter) Write(books []*models.Book) error {
	for _, book := range books {
		if err := cw.encoder.Encode(book); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	return cw.flush()
}

func (cw *CSVWriter) Close() error {
	if err := cw.flush(); err != nil {
		return err
	}
	return cw.file.Close()
}

func (cw *CSVWriter) flush() error {
	cw.writer.Flush()
	if err := cw.writer.Error(); err != nil {
		return fmt.Errorf("flush csv writer: %w", err)
	}
	return nil
}

// ReadCSV loads books previously written by CSVWriter.
func ReadCSV(filename string) ([]*models.Book, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	decoder, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv file %s has no header", filename)
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var books []*models.Book
	for {
		var book models.Book
		if err := decoder.Decode(&book); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode csv record: %w", err)
		}
		books = append(books, &book)
	}
	return books, nil
}

// JSONWriter writes one JSON object per line.
type JSONWriter struct {
	*fileSink
	writer  *bufio.Writer
	encoder *json.Encoder
}

func NewJSONWriter(filename string) (*JSONWriter, error) {
	sink, err := createSink(filename, "json")
	if err != nil {
		return nil, err
	}
	buffer := bufio.NewWriter(sink.file)
	return &JSONWriter{fileSink: sink, writer: buffer, encoder: json.NewEncoder(buffer)}, nil
}

func (jw *JSONWriter) Write(books []*models.Book) error {
	for _, book := range books {
		if err := jw.encoder.Encode(book); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

func (jw *JSONWriter) Close() error {
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return jw.file.Close()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
