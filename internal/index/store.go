// Package index implements the in-memory vector index over the
// knowledge-base documents. The store owns Document and Chunk lifetimes:
// chunks for a document are created at indexing time and replaced
// atomically on re-index.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"cs-support/internal/domain"
)

// Store is a brute-force cosine similarity index. Chunking and embedding
// for an upsert happen outside the lock, so concurrent readers are never
// blocked on a network call and never observe a half-replaced document.
type Store struct {
	chunker  domain.Chunker
	embedder domain.Embedder

	mu        sync.RWMutex
	dimension int
	docs      map[string]*docEntry
}

type docEntry struct {
	doc    domain.Document
	chunks []domain.Chunk
}

// NewStore creates an empty store using the given chunker and embedder.
func NewStore(chunker domain.Chunker, embedder domain.Embedder) *Store {
	return &Store{
		chunker:  chunker,
		embedder: embedder,
		docs:     make(map[string]*docEntry),
	}
}

// UpsertDocument re-chunks and re-embeds a document, replacing any
// previously stored chunks for that name in a single publish step.
func (s *Store) UpsertDocument(ctx context.Context, name, text string) error {
	chunks, err := s.chunker.Chunk(text)
	if err != nil {
		return err
	}
	for i := range chunks {
		vec, err := s.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return fmt.Errorf("embedding chunk %d of %s: %w", i, name, err)
		}
		chunks[i].DocumentName = name
		chunks[i].Vector = vec
	}
	entry := &docEntry{
		doc: domain.Document{
			Name:      name,
			Content:   text,
			IndexedAt: time.Now().UTC(),
		},
		chunks: chunks,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Validate every vector before touching store state, so a rejected
	// document leaves neither its chunks nor its dimension behind.
	dim := s.dimension
	for _, ch := range chunks {
		if dim == 0 {
			dim = len(ch.Vector)
		}
		if len(ch.Vector) != dim {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, index holds %d", name, len(ch.Vector), dim)
		}
	}
	s.dimension = dim
	s.docs[name] = entry
	return nil
}

// Query returns at most k nearest chunks by raw cosine similarity across
// all indexed documents, ordered by descending score. Equal scores are
// broken by ascending chunk index, then document name, for determinism.
func (s *Store) Query(vector []float64, k int) ([]domain.RetrievedChunk, error) {
	if len(vector) == 0 {
		return nil, errors.New("empty query vector")
	}
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var hits []domain.RetrievedChunk
	for _, entry := range s.docs {
		for _, ch := range entry.chunks {
			hits = append(hits, domain.RetrievedChunk{
				Chunk: ch,
				Score: cosine(vector, ch.Vector),
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.Index != hits[j].Chunk.Index {
			return hits[i].Chunk.Index < hits[j].Chunk.Index
		}
		return hits[i].Chunk.DocumentName < hits[j].Chunk.DocumentName
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// ListDocuments returns the indexed document names in sorted order.
func (s *Store) ListDocuments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetDocument returns the full stored document by name.
func (s *Store) GetDocument(name string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.docs[name]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	return entry.doc, nil
}

// ChunkCount returns the total number of indexed chunks.
func (s *Store) ChunkCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entry := range s.docs {
		n += len(entry.chunks)
	}
	return n
}

// cosine computes cosine similarity without assuming normalized vectors.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
