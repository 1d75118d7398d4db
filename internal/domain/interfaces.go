package domain

import "context"

// Embedder converts free text into a fixed-length numeric vector.
// Implementations must be deterministic for identical input so that
// indexing stays idempotent. No internal retries: failures surface as
// ErrServiceUnavailable and the caller decides retry policy.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator invokes the external generative language model.
// Responses are untrusted text; stages parse them defensively.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Chunker splits document text into overlapping segments for embedding.
type Chunker interface {
	Chunk(text string) ([]Chunk, error)
}

// IndexStore persists chunk vectors plus metadata and supports
// nearest-neighbor queries. It exclusively owns Document and Chunk
// lifetimes: chunks for a name are replaced atomically on upsert.
type IndexStore interface {
	UpsertDocument(ctx context.Context, name, text string) error
	Query(vector []float64, k int) ([]RetrievedChunk, error)
	ListDocuments() []string
	GetDocument(name string) (Document, error)
	ChunkCount() int
}

// Retriever embeds a query and returns the top-k chunks that clear the
// minimum similarity threshold. An empty result is a valid outcome,
// not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, minSimilarity float64) (RetrievalResult, error)
}

// Pipeline runs a raw question through reformulation, retrieval,
// answering and validation, always returning a displayable result.
type Pipeline interface {
	Run(ctx context.Context, question string) PipelineResult
}

// HistoryStore is the external persistence collaborator: the core hands
// every PipelineResult to it and has no read dependency on stored history.
type HistoryStore interface {
	SaveResult(ctx context.Context, result PipelineResult) error
}
