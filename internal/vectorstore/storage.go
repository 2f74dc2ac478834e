package vectorstore

import (
	"context"
	"math"
	"sort"

	"productrag/internal/domain"
)

// Storage persists product vectors and answers price-filtered similarity
// queries ranked by cosine similarity.
type Storage interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, products []domain.Product) error
	Search(ctx context.Context, vector []float32, filter domain.QueryConstraint, topK int) ([]domain.SearchResult, error)
	Clear(ctx context.Context) error
	Close() error
}

// DefaultTopK is used when a caller asks for a non-positive result count.
const DefaultTopK = 5

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero vector.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Rank sorts results by descending similarity, keeping the input order for
// ties, and truncates to topK.
func Rank(results []domain.SearchResult, topK int) []domain.SearchResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
