package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productrag/internal/domain"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, Database: "shop", User: "app", Password: "p@ss", SSLMode: "disable", MaxConns: 4}
	assert.Equal(t, "postgres://app:p%40ss@db:5433/shop?pool_max_conns=4&sslmode=disable", cfg.DSN())
}

func TestNew_QuotesTable(t *testing.T) {
	s, err := New(context.Background(), Config{Host: "localhost", Port: 5432, Database: "postgres", User: "postgres", Table: "catalog items"})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, `"catalog items"`, s.table)
	assert.Contains(t, s.searchSQL(), `FROM "catalog items"`)
	assert.Contains(t, s.searchSQL(), "1 - (embedding <=> $1) AS similarity")
}

// TestStore_RoundTrip runs against a live database when RAG_TEST_POSTGRES_DSN
// points at a PostgreSQL instance with pgvector installed.
func TestStore_RoundTrip(t *testing.T) {
	dsn := os.Getenv("RAG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RAG_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn, "products_test")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Init(ctx, 3))
	require.NoError(t, s.Upsert(ctx, []domain.Product{
		{Name: "Summit Parka", Price: 320, Embedding: []float32{1, 0, 0}},
		{Name: "Ridge Shell", Price: 180, Embedding: []float32{0.9, 0.1, 0}},
		{Name: "Camp Mug", Price: 12, Embedding: []float32{0, 0, 1}},
	}))

	res, err := s.Search(ctx, []float32{1, 0, 0}, domain.QueryConstraint{MaxPrice: 200}, 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Ridge Shell", res[0].Product.Name)
	assert.GreaterOrEqual(t, res[0].Similarity, res[1].Similarity)
	require.NoError(t, s.Clear(ctx))
}
