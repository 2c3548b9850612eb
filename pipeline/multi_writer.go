package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aluiziolira/automation-pilgrim/models"
)

// MultiWriter fans every batch out to several outputs in order.
type MultiWriter struct {
	writers []OutputWriter
}

// NewMultiWriter wraps writers; a failing Write stops at the first error.
func NewMultiWriter(writers ...OutputWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// NewDualWriter writes CSV to csvFilename and JSON lines to jsonFilename.
func NewDualWriter(csvFilename, jsonFilename string) (*MultiWriter, error) {
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("failed to create JSON writer: %w", err)
	}

	return NewMultiWriter(csvWriter, jsonWriter), nil
}

// DualFilenames derives the JSON lines companion of a CSV output path.
func DualFilenames(filename string) (csvFilename, jsonFilename string) {
	return filename, strings.TrimSuffix(filename, ".csv") + ".json"
}

func (mw *MultiWriter) Write(books []*models.Book) error {
	for i, w := range mw.writers {
		if err := w.Write(books); err != nil {
			return fmt.Errorf("output %d write failed: %w", i, err)
		}
	}
	return nil
}

// Close closes every output and joins their errors.
func (mw *MultiWriter) Close() error {
	var errs []error
	for i, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("output %d close failed: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (mw *MultiWriter) Validate() error {
	var errs []error
	for i, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("output %d validation failed: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
