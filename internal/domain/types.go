package domain

import (
	"strconv"
	"strings"
	"time"
)

// Document is a single knowledge-base text file loaded into the system.
// Documents are immutable once indexed and are replaced wholesale on re-index.
type Document struct {
	Name      string
	Content   string
	IndexedAt time.Time
}

// Chunk is a bounded segment of a document, the unit of embedding and retrieval.
// Start and End are byte offsets into the document content.
type Chunk struct {
	DocumentName string
	Index        int
	Start        int
	End          int
	Text         string
	Vector       []float64
}

// RetrievedChunk is a matching chunk with its raw cosine similarity and
// a 0-100 display relevance assigned by the retriever.
type RetrievedChunk struct {
	Chunk     Chunk
	Score     float64
	Relevance float64
}

// RetrievalResult is the ranked outcome of a single retrieval, ordered by
// descending similarity with ties broken by ascending chunk index.
type RetrievalResult struct {
	Query  string
	Chunks []RetrievedChunk
}

// Empty reports whether no chunk cleared the minimum similarity threshold.
func (r RetrievalResult) Empty() bool { return len(r.Chunks) == 0 }

// TopSimilarity returns the raw similarity of the best chunk, or 0 if empty.
func (r RetrievalResult) TopSimilarity() float64 {
	if len(r.Chunks) == 0 {
		return 0
	}
	return r.Chunks[0].Score
}

// Context joins the retrieved chunk texts into a prompt context block,
// each passage labelled with its source document.
func (r RetrievalResult) Context() string {
	var b strings.Builder
	for i, rc := range r.Chunks {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		b.WriteString("[Source " + strconv.Itoa(i+1) + ": " + rc.Chunk.DocumentName + "]\n")
		b.WriteString(rc.Chunk.Text)
	}
	return b.String()
}

// NoSourceDocument is reported when no chunk clears the similarity threshold.
const NoSourceDocument = "none"

// Confidence levels derived from the score against configured thresholds.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// IntentUnknown is reported when reformulation degrades to the raw question.
const IntentUnknown = "unknown"

// Reformulation is the outcome of the reformulation stage.
type Reformulation struct {
	OriginalQuestion  string
	ReformulatedQuery string
	DetectedIntent    string
	UsedFallback      bool
}

// Answer is the outcome of the answer stage.
type Answer struct {
	Query          string
	Text           string
	SourceDocument string
	Passages       []RetrievedChunk
}

// Validation is the outcome of the validation stage.
type Validation struct {
	ConfidenceScore int
	Reasoning       string
	IsGrounded      bool
	IsRelevant      bool
	IsComplete      bool
}

// StageTimings records wall-clock time spent in each pipeline stage.
type StageTimings struct {
	ReformulationMs int64
	RetrievalMs     int64
	AnswerMs        int64
	ValidationMs    int64
	TotalMs         int64
}

// PipelineResult is the unit returned to callers for every question,
// including degraded outcomes. Immutable after construction.
type PipelineResult struct {
	ID                string
	OriginalQuestion  string
	ReformulatedQuery string
	DetectedIntent    string
	Answer            string
	SourceDocument    string
	ConfidenceScore   int
	ConfidenceLevel   string
	Passages          []RetrievedChunk
	Timings           StageTimings
	CreatedAt         time.Time
}
