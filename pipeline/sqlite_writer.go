package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aluiziolira/automation-pilgrim/models"
)

const createBooksTable = `
CREATE TABLE IF NOT EXISTS books (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL,
	price        TEXT NOT NULL,
	availability TEXT NOT NULL,
	rating       TEXT NOT NULL,
	product_url  TEXT NOT NULL
)`

// SQLiteWriter stores books in a single SQLite table, one row per book.
type SQLiteWriter struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteWriter opens or creates the database file and its books table.
func NewSQLiteWriter(filename string) (*SQLiteWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	db, err := openSQLite(filename, "rwc")
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(context.Background(), createBooksTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create books table: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts books in one transaction, preserving their order.
func (sw *SQLiteWriter) Write(books []*models.Book) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	ctx := context.Background()
	tx, err := sw.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO books (title, price, availability, rating, product_url) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, book := range books {
		if _, err := stmt.ExecContext(ctx, book.Title, book.Price, book.Availability, book.Rating, book.ProductURL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert book: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite transaction: %w", err)
	}
	return nil
}

// Close closes the database handle.
func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.db.Close()
}

// Validate ensures the books table is readable.
func (sw *SQLiteWriter) Validate() error {
	var count int
	if err := sw.db.QueryRowContext(context.Background(), `SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return fmt.Errorf("count books: %w", err)
	}
	return nil
}

// ReadSQLite loads books stored by SQLiteWriter in insertion order.
func ReadSQLite(filename string) ([]*models.Book, error) {
	db, err := openSQLite(filename, "ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(context.Background(),
		`SELECT title, price, availability, rating, product_url FROM books ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*models.Book
	for rows.Next() {
		var b models.Book
		if err := rows.Scan(&b.Title, &b.Price, &b.Availability, &b.Rating, &b.ProductURL); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func openSQLite(filename, mode string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", filename+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}
