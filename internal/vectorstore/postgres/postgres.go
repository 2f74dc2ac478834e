// Package postgres stores products in PostgreSQL with the pgvector extension
// and ranks them with the cosine distance operator.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"productrag/internal/domain"
	"productrag/internal/vectorstore"
)

// Config holds connection parameters.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
	Table    string
	MaxConns int
}

// DSN renders the connection string for pgx.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Database,
	}
	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	if c.MaxConns > 0 {
		q.Set("pool_max_conns", strconv.Itoa(c.MaxConns))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Store implements vectorstore.Storage. Every call acquires its own
// connection from the pool and releases it before returning.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

// New opens a connection pool for cfg. No connection is made until the first call.
func New(ctx context.Context, cfg Config) (*Store, error) {
	return Open(ctx, cfg.DSN(), cfg.Table)
}

// Open opens a connection pool for a raw connection string.
func Open(ctx context.Context, dsn, table string) (*Store, error) {
	if table == "" {
		table = "products"
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	return &Store{pool: pool, table: pgx.Identifier{table}.Sanitize()}, nil
}

func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres acquire: %w", err)
	}
	defer conn.Release()

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			type VARCHAR(255),
			brand VARCHAR(255),
			name VARCHAR(255),
			description TEXT,
			price FLOAT,
			embedding vector(%d)
		)`, s.table, dimension),
	}
	for _, stmt := range stmts {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

// Upsert inserts all products in one transaction. Ids are assigned by the database.
func (s *Store) Upsert(ctx context.Context, products []domain.Product) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres acquire: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}
	defer tx.Rollback(ctx)

	insert := fmt.Sprintf(`INSERT INTO %s (type, brand, name, description, price, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)`, s.table)
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(insert, p.Type, p.Brand, p.Name, p.Description, p.Price, pgvector.NewVector(p.Embedding))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres commit: %w", err)
	}
	return nil
}

func (s *Store) searchSQL() string {
	return fmt.Sprintf(`SELECT id, type, brand, name, description, price, 1 - (embedding <=> $1) AS similarity
		FROM %s
		WHERE price <= $2
		ORDER BY similarity DESC
		LIMIT $3`, s.table)
}

func (s *Store) Search(ctx context.Context, vector []float32, filter domain.QueryConstraint, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = vectorstore.DefaultTopK
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres acquire: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, s.searchSQL(), pgvector.NewVector(vector), filter.MaxPrice, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres search: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var r domain.SearchResult
		var typ, brand, name, desc *string
		if err := rows.Scan(&r.Product.ID, &typ, &brand, &name, &desc, &r.Product.Price, &r.Similarity); err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}
		r.Product.Type = deref(typ)
		r.Product.Brand = deref(brand)
		r.Product.Name = deref(name)
		r.Product.Description = deref(desc)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %w", err)
	}
	return results, nil
}

func (s *Store) Clear(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("postgres acquire: %w", err)
	}
	defer conn.Release()
	if _, err := conn.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
		return fmt.Errorf("postgres clear: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
