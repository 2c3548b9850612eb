package pipeline

import (
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/automation-pilgrim/config"
	"github.com/aluiziolira/automation-pilgrim/models"
	"github.com/aluiziolira/automation-pilgrim/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(books []*models.Book) error
	Close() error
	Validate() error
}

// Pipeline batches books into an OutputWriter and keeps data-quality counters.
// Every book handed to Process is written; duplicates and missing fields are
// only counted. A Pipeline is not safe for concurrent use.
type Pipeline struct {
	writer    OutputWriter
	batchSize int
	batch     []*models.Book

	seen *lru.Cache[string, struct{}]

	processed  int64
	validation map[string]int

	closed bool
	err    error
}

// NewPipeline builds a pipeline writing to writer in batches of cfg.BatchSize.
func NewPipeline(writer OutputWriter, cfg *config.CrawlConfig) (*Pipeline, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	dedupeSize := cfg.DedupeMaxSize
	if dedupeSize <= 0 {
		dedupeSize = 10000
	}

	seen, err := lru.New[string, struct{}](dedupeSize)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}

	return &Pipeline{
		writer:     writer,
		batchSize:  batchSize,
		batch:      make([]*models.Book, 0, batchSize),
		seen:       seen,
		validation: make(map[string]int),
	}, nil
}

// Process queues books for writing, flushing whenever a batch fills.
func (p *Pipeline) Process(books ...*models.Book) error {
	if p.closed {
		return ErrPipelineClosed
	}
	if p.err != nil {
		return p.err
	}

	for _, book := range books {
		if book == nil {
			continue
		}
		p.inspect(book)
		p.batch = append(p.batch, book)
		p.processed++
		if len(p.batch) >= p.batchSize {
			if err := p.flush(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes pending books. The writer itself is left open.
func (p *Pipeline) Close() error {
	if p.closed {
		return p.err
	}
	p.closed = true
	if p.err != nil {
		return p.err
	}
	return p.flush()
}

// Err returns the first error encountered during writing.
func (p *Pipeline) Err() error {
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	copyValidation := make(map[string]int, len(p.validation))
	for k, v := range p.validation {
		copyValidation[k] = v
	}
	return map[string]interface{}{
		"processed_books":   p.processed,
		"validation_errors": copyValidation,
	}
}

func (p *Pipeline) inspect(book *models.Book) {
	for _, field := range parser.MissingFields(book) {
		p.validation["missing_"+field]++
	}

	if book.ProductURL == models.URLNotAvailable {
		return
	}
	if p.seen.Contains(book.ProductURL) {
		p.validation["duplicate_url"]++
		slog.Debug("duplicate product url", slog.String("url", book.ProductURL))
		return
	}
	p.seen.Add(book.ProductURL, struct{}{})
}

func (p *Pipeline) flush() error {
	if len(p.batch) == 0 {
		return nil
	}
	if err := p.writer.Write(p.batch); err != nil {
		p.err = fmt.Errorf("write batch: %w", err)
		return p.err
	}
	p.batch = make([]*models.Book, 0, p.batchSize)
	return nil
}
