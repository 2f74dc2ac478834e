package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productrag/internal/vectorstore"
)

var corpus = []string{
	"Three-layer waterproof shell jacket with taped seams",
	"Mid-cut waterproof hiking boot with a cushioned midsole",
	"Freestanding two-person tent with two doors",
}

func TestEmbedder_RequiresPrepare(t *testing.T) {
	_, err := NewEmbedder().Embed(context.Background(), "", "tent")
	assert.Error(t, err)
	assert.Error(t, NewEmbedder().Prepare(nil))
	assert.Error(t, NewEmbedder().Prepare([]string{"the and of"}))
}

func TestEmbedder_NormalizedAndStable(t *testing.T) {
	a := NewEmbedder()
	require.NoError(t, a.Prepare(corpus))
	b := NewEmbedder()
	require.NoError(t, b.Prepare([]string{corpus[2], corpus[0], corpus[1]}))
	assert.Equal(t, a.Dimension(), b.Dimension())

	va, err := a.Embed(context.Background(), "", "waterproof hiking boot")
	require.NoError(t, err)
	vb, err := b.Embed(context.Background(), "", "waterproof hiking boot")
	require.NoError(t, err)
	assert.Equal(t, va, vb)

	var norm float64
	for _, v := range va {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestEmbedder_RanksRelevantDescription(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	ctx := context.Background()

	q, err := e.Embed(ctx, "", "I need a tent for two")
	require.NoError(t, err)
	var best int
	var bestScore float64
	for i, doc := range corpus {
		v, err := e.Embed(ctx, "", doc)
		require.NoError(t, err)
		if s := vectorstore.Cosine(q, v); s > bestScore {
			best, bestScore = i, s
		}
	}
	assert.Equal(t, 2, best)
}

func TestEmbedder_UnknownTermsGiveZeroVector(t *testing.T) {
	e := NewEmbedder()
	require.NoError(t, e.Prepare(corpus))
	v, err := e.Embed(context.Background(), "", "kayak paddle")
	require.NoError(t, err)
	assert.Len(t, v, e.Dimension())
	for _, x := range v {
		assert.Zero(t, x)
	}
}
