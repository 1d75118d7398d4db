package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs-support/internal/config"
	"cs-support/internal/domain"
	"cs-support/internal/history"
	"cs-support/internal/service"
)

type stubIndexStore struct {
	docs map[string]string
}

func (s *stubIndexStore) UpsertDocument(_ context.Context, name, text string) error {
	s.docs[name] = text
	return nil
}

func (s *stubIndexStore) Query(_ []float64, _ int) ([]domain.RetrievedChunk, error) {
	return nil, nil
}

func (s *stubIndexStore) ListDocuments() []string {
	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *stubIndexStore) GetDocument(name string) (domain.Document, error) {
	text, ok := s.docs[name]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return domain.Document{Name: name, Content: text}, nil
}

func (s *stubIndexStore) ChunkCount() int { return len(s.docs) }

type stubPipeline struct {
	result domain.PipelineResult
}

func (p *stubPipeline) Run(_ context.Context, question string) domain.PipelineResult {
	out := p.result
	out.OriginalQuestion = question
	return out
}

func newTestServer(t *testing.T, result domain.PipelineResult) (*Server, *history.Store) {
	t.Helper()
	hist, err := history.NewStore(
		filepath.Join(t.TempDir(), "history.db"),
		config.ConfidenceConfig{HighThreshold: 70, LowThreshold: 40},
	)
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	store := &stubIndexStore{docs: map[string]string{
		"cards.md": "Zero Liability Policy.",
		"fees.md":  "Fee schedule.",
	}}
	svc := service.New(store, &stubPipeline{result: result}, hist, nil)
	return New(svc, hist, nil), hist
}

func groundedResult() domain.PipelineResult {
	return domain.PipelineResult{
		ID:                "r1",
		ReformulatedQuery: "zero liability policy",
		DetectedIntent:    "CARDS",
		Answer:            "Cardholders are not responsible for unauthorized charges.",
		ConfidenceScore:   85,
		ConfidenceLevel:   domain.ConfidenceHigh,
		SourceDocument:    "cards.md",
		Passages: []domain.RetrievedChunk{{
			Chunk:     domain.Chunk{DocumentName: "cards.md", Index: 0, Text: "Zero Liability Policy."},
			Score:     0.91,
			Relevance: 91,
		}},
		Timings:   domain.StageTimings{TotalMs: 42},
		CreatedAt: time.Now().UTC(),
	}
}

func doRequest(t *testing.T, srv *Server, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, groundedResult())

	rec := doRequest(t, srv, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(2), body["indexed_chunks"])
}

func TestQueryEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, groundedResult())

	rec := doRequest(t, srv, http.MethodPost, "/api/query",
		`{"question": "customer says money was stolen from his card"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body queryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "customer says money was stolen from his card", body.Question)
	assert.Equal(t, "cards.md", body.SourceDocument)
	assert.Equal(t, domain.ConfidenceHigh, body.ConfidenceLevel)
	require.Len(t, body.RelevantPassages, 1)
	assert.Equal(t, "cards.md", body.RelevantPassages[0].DocumentName)
	assert.InDelta(t, 91, body.RelevantPassages[0].RelevanceScore, 0.01)
}

func TestQueryEndpointPersistsHistory(t *testing.T) {
	srv, hist := newTestServer(t, groundedResult())

	rec := doRequest(t, srv, http.MethodPost, "/api/query", `{"question": "stolen card"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := hist.Queries(context.Background(), 10, 0, -1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "stolen card", records[0].Question)
	assert.Equal(t, "cards.md", records[0].SourceDocument)
}

func TestQueryEndpointValidation(t *testing.T) {
	srv, _ := newTestServer(t, groundedResult())

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", "{not json"},
		{"empty question", `{"question": ""}`},
		{"too long", `{"question": "` + strings.Repeat("x", 2001) + `"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, srv, http.MethodPost, "/api/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestQueriesEndpointFiltersByConfidence(t *testing.T) {
	srv, hist := newTestServer(t, groundedResult())
	ctx := context.Background()

	save := func(id string, score int) {
		require.NoError(t, hist.SaveResult(ctx, domain.PipelineResult{
			ID: id, OriginalQuestion: "q", ReformulatedQuery: "q", DetectedIntent: "OTHER",
			Answer: "a", ConfidenceScore: score, SourceDocument: domain.NoSourceDocument,
			CreatedAt: time.Now().UTC(),
		}))
	}
	save("high", 90)
	save("low", 20)

	rec := doRequest(t, srv, http.MethodGet, "/api/queries?max_confidence=40", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Queries []history.Record `json:"queries"`
		Total   int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Total)
	assert.Equal(t, "low", body.Queries[0].ID)
}

func TestStatsEndpoint(t *testing.T) {
	srv, hist := newTestServer(t, groundedResult())
	require.NoError(t, hist.SaveResult(context.Background(), groundedResult()))

	rec := doRequest(t, srv, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats history.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalQueries)
	assert.Equal(t, 1, stats.ConfidenceDistribution.High)
}

func TestDocumentsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, groundedResult())

	rec := doRequest(t, srv, http.MethodGet, "/api/documents", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Documents []string `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"cards.md", "fees.md"}, body.Documents)
}

func TestDocumentEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, groundedResult())

	rec := doRequest(t, srv, http.MethodGet, "/api/documents/cards.md", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Zero Liability Policy.", body["content"])

	rec = doRequest(t, srv, http.MethodGet, "/api/documents/missing.md", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
