package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productrag/internal/domain"
)

func seeded(t *testing.T) *Storage {
	t.Helper()
	s := NewStorage()
	ctx := context.Background()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Product{
		{Name: "Alpine Jacket", Price: 250, Embedding: []float32{1, 0}},
		{Name: "Trail Jacket", Price: 120, Embedding: []float32{0.9, 0.1}},
		{Name: "Camp Stove", Price: 60, Embedding: []float32{0, 1}},
	}))
	return s
}

func TestSearch_RanksByCosine(t *testing.T) {
	res, err := seeded(t).Search(context.Background(), []float32{1, 0}, domain.NoConstraint(), 5)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "Alpine Jacket", res[0].Product.Name)
	assert.Equal(t, "Trail Jacket", res[1].Product.Name)
	assert.Equal(t, "Camp Stove", res[2].Product.Name)
	assert.Equal(t, int64(1), res[0].Product.ID)
}

func TestSearch_FiltersByPriceAndLimit(t *testing.T) {
	res, err := seeded(t).Search(context.Background(), []float32{1, 0}, domain.QueryConstraint{MaxPrice: 200}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Trail Jacket", res[0].Product.Name)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	s := NewStorage()
	require.NoError(t, s.Init(context.Background(), 3))
	err := s.Upsert(context.Background(), []domain.Product{{Embedding: []float32{1}}})
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	s := seeded(t)
	require.NoError(t, s.Clear(context.Background()))
	res, err := s.Search(context.Background(), []float32{1, 0}, domain.NoConstraint(), 5)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestInit_InvalidDimension(t *testing.T) {
	assert.Error(t, NewStorage().Init(context.Background(), 0))
}
