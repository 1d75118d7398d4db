package retriever

import (
	"context"
	"fmt"

	"cs-support/internal/domain"
)

// Retriever embeds a query and ranks indexed chunks against it.
// Similarity-threshold policy lives here, not in the index store, so the
// metric can be tested independent of storage.
type Retriever struct {
	embedder domain.Embedder
	store    domain.IndexStore
}

// New creates a retriever over the given embedder and index store.
func New(embedder domain.Embedder, store domain.IndexStore) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to k chunks whose similarity to the query clears
// minSimilarity. An empty result is a valid outcome: absence of relevant
// context is common and downstream stages handle it explicitly.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, minSimilarity float64) (domain.RetrievalResult, error) {
	result := domain.RetrievalResult{Query: query}
	if r.store.ChunkCount() == 0 {
		return result, nil
	}
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return result, fmt.Errorf("embedding query: %w", err)
	}
	hits, err := r.store.Query(vec, k)
	if err != nil {
		return result, err
	}
	for _, h := range hits {
		if h.Score < minSimilarity {
			continue
		}
		h.Relevance = relevancePercent(h.Score)
		result.Chunks = append(result.Chunks, h)
	}
	return result, nil
}

// relevancePercent maps raw cosine similarity to a 0-100 display scale.
func relevancePercent(score float64) float64 {
	pct := score * 100
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
