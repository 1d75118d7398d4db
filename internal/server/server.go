// Package server exposes the support core over HTTP for the browser UI.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"cs-support/internal/domain"
	"cs-support/internal/history"
	"cs-support/internal/service"
)

// version is reported by the health endpoint.
const version = "1.0.0"

// maxQuestionLen bounds accepted question length, matching the UI limit.
const maxQuestionLen = 2000

// Server carries the route dependencies.
type Server struct {
	svc     *service.SupportService
	history *history.Store
	log     *zap.Logger
}

// New creates a server over the support service. history may be nil.
func New(svc *service.SupportService, hist *history.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, history: hist, log: log}
}

// Router builds the API route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/queries", s.handleQueries).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/documents", s.handleDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{name}", s.handleDocument).Methods(http.MethodGet)
	return r
}

type queryRequest struct {
	Question string `json:"question"`
}

type passageResponse struct {
	DocumentName   string  `json:"document_name"`
	Content        string  `json:"content"`
	RelevanceScore float64 `json:"relevance_score"`
}

type queryResponse struct {
	ID                string            `json:"id"`
	Question          string            `json:"question"`
	ReformulatedQuery string            `json:"reformulated_query"`
	DetectedIntent    string            `json:"detected_intent"`
	Answer            string            `json:"answer"`
	ConfidenceScore   int               `json:"confidence_score"`
	ConfidenceLevel   string            `json:"confidence_level"`
	SourceDocument    string            `json:"source_document"`
	RelevantPassages  []passageResponse `json:"relevant_passages"`
	ResponseTimeMs    int64             `json:"response_time_ms"`
	CreatedAt         time.Time         `json:"created_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        version,
		"indexed_chunks": s.svc.ChunkCount(),
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" || len(req.Question) > maxQuestionLen {
		writeError(w, http.StatusBadRequest, "question must be between 1 and 2000 characters")
		return
	}

	result := s.svc.Ask(r.Context(), req.Question)

	passages := make([]passageResponse, 0, len(result.Passages))
	for _, p := range result.Passages {
		passages = append(passages, passageResponse{
			DocumentName:   p.Chunk.DocumentName,
			Content:        p.Chunk.Text,
			RelevanceScore: p.Relevance,
		})
	}
	writeJSON(w, http.StatusOK, queryResponse{
		ID:                result.ID,
		Question:          result.OriginalQuestion,
		ReformulatedQuery: result.ReformulatedQuery,
		DetectedIntent:    result.DetectedIntent,
		Answer:            result.Answer,
		ConfidenceScore:   result.ConfidenceScore,
		ConfidenceLevel:   result.ConfidenceLevel,
		SourceDocument:    result.SourceDocument,
		RelevantPassages:  passages,
		ResponseTimeMs:    result.Timings.TotalMs,
		CreatedAt:         result.CreatedAt,
	})
}

func (s *Server) handleQueries(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "query history is disabled")
		return
	}
	limit := intQuery(r, "limit", 50)
	offset := intQuery(r, "offset", 0)
	maxConfidence := intQuery(r, "max_confidence", -1)

	records, err := s.history.Queries(r.Context(), limit, offset, maxConfidence)
	if err != nil {
		s.log.Error("listing queries", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list queries")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queries": records,
		"total":   len(records),
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, "query history is disabled")
		return
	}
	stats, err := s.history.Stats(r.Context())
	if err != nil {
		s.log.Error("computing stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"documents": s.svc.Documents()})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	content, err := s.svc.DocumentText(name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found: "+name)
			return
		}
		s.log.Error("reading document", zap.String("name", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name, "content": content})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
