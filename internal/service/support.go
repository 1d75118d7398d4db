// Package service wires the core components behind the surface consumed
// by the HTTP and console layers.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"cs-support/internal/domain"
)

// SupportService exposes the core operations: bulk indexing at startup,
// running the question pipeline, and document lookups. Every finished
// PipelineResult is handed to the history collaborator; the service never
// reads stored history back.
type SupportService struct {
	store    domain.IndexStore
	pipeline domain.Pipeline
	history  domain.HistoryStore
	log      *zap.Logger
}

// New creates the service. history may be nil when persistence is disabled.
func New(store domain.IndexStore, pipeline domain.Pipeline, history domain.HistoryStore, log *zap.Logger) *SupportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SupportService{store: store, pipeline: pipeline, history: history, log: log}
}

// IndexDir loads every .md and .txt file from dir and indexes each one,
// keyed by file name. Returns the number of documents indexed.
func (s *SupportService) IndexDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("reading knowledge base dir: %w", err)
	}
	indexed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".md" && ext != ".txt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return indexed, err
		}
		if err := s.store.UpsertDocument(ctx, name, string(data)); err != nil {
			return indexed, fmt.Errorf("indexing %s: %w", name, err)
		}
		indexed++
	}
	if indexed == 0 {
		return 0, fmt.Errorf("no .md or .txt documents found in %s", dir)
	}
	s.log.Info("knowledge base indexed",
		zap.Int("documents", indexed),
		zap.Int("chunks", s.store.ChunkCount()),
	)
	return indexed, nil
}

// IndexAll indexes the provided named documents.
func (s *SupportService) IndexAll(ctx context.Context, documents map[string]string) error {
	names := make([]string, 0, len(documents))
	for name := range documents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := s.store.UpsertDocument(ctx, name, documents[name]); err != nil {
			return fmt.Errorf("indexing %s: %w", name, err)
		}
	}
	return nil
}

// Ask runs the pipeline for one raw question and persists the result.
// A history write failure is logged, not surfaced: the representative
// still gets their answer.
func (s *SupportService) Ask(ctx context.Context, question string) domain.PipelineResult {
	result := s.pipeline.Run(ctx, question)
	if s.history != nil {
		if err := s.history.SaveResult(ctx, result); err != nil {
			s.log.Error("saving query history", zap.String("id", result.ID), zap.Error(err))
		}
	}
	return result
}

// Documents returns the indexed document names.
func (s *SupportService) Documents() []string {
	return s.store.ListDocuments()
}

// DocumentText returns the full text of an indexed document.
func (s *SupportService) DocumentText(name string) (string, error) {
	doc, err := s.store.GetDocument(name)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// ChunkCount reports how many chunks are currently indexed.
func (s *SupportService) ChunkCount() int {
	return s.store.ChunkCount()
}
