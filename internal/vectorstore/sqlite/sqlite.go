// Package sqlite is a single-file product store for local use. Rows live in
// SQLite; similarity is computed in process after the price filter runs in SQL.
package sqlite

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"productrag/internal/domain"
	"productrag/internal/vectorstore"
)

// vector is stored as a JSON array in a TEXT column.
type vector []float32

func (v vector) Value() (driver.Value, error) {
	data, err := json.Marshal([]float32(v))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (v *vector) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*v = nil
		return nil
	case string:
		return json.Unmarshal([]byte(s), (*[]float32)(v))
	case []byte:
		return json.Unmarshal(s, (*[]float32)(v))
	default:
		return fmt.Errorf("unsupported embedding column type %T", src)
	}
}

type productRow struct {
	ID          int64   `db:"id"`
	Type        string  `db:"type"`
	Brand       string  `db:"brand"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	Price       float64 `db:"price"`
	Embedding   vector  `db:"embedding"`
}

// Store implements vectorstore.Storage on SQLite.
type Store struct {
	db        *sqlx.DB
	dimension int
}

// New opens (or creates) the database at path. Use ":memory:" for a
// throwaway store.
func New(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// A second connection to ":memory:" would see a different database.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	tables := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			type TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			price REAL NOT NULL,
			embedding TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)`,
	}
	for _, stmt := range tables {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, products []domain.Product) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		if s.dimension > 0 && len(p.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		row := productRow{
			Type: p.Type, Brand: p.Brand, Name: p.Name,
			Description: p.Description, Price: p.Price, Embedding: vector(p.Embedding),
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO products (type, brand, name, description, price, embedding)
			VALUES (:type, :brand, :name, :description, :price, :embedding)`, row)
		if err != nil {
			return fmt.Errorf("sqlite insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite commit: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, query []float32, filter domain.QueryConstraint, topK int) ([]domain.SearchResult, error) {
	q := `SELECT id, type, brand, name, description, price, embedding FROM products`
	var args []any
	if filter.Bounded() {
		q += ` WHERE price <= ?`
		args = append(args, filter.MaxPrice)
	}
	q += ` ORDER BY id`

	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("sqlite search: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(rows))
	for _, r := range rows {
		p := domain.Product{
			ID: r.ID, Type: r.Type, Brand: r.Brand, Name: r.Name,
			Description: r.Description, Price: r.Price,
		}
		results = append(results, domain.SearchResult{Product: p, Similarity: vectorstore.Cosine(r.Embedding, query)})
	}
	return vectorstore.Rank(results, topK), nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS products`); err != nil {
		return fmt.Errorf("sqlite clear: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
