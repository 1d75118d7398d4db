package agent

import (
	"context"
	"sync"

	"cs-support/internal/domain"
)

// scriptedGenerator returns canned responses keyed by the system
// instruction, so each stage of the pipeline can be scripted separately.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	prompts   map[string]string
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		responses: make(map[string]string),
		errs:      make(map[string]error),
		prompts:   make(map[string]string),
	}
}

func (g *scriptedGenerator) respond(system, response string) { g.responses[system] = response }
func (g *scriptedGenerator) fail(system string, err error)   { g.errs[system] = err }

func (g *scriptedGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts[system] = prompt
	if err := g.errs[system]; err != nil {
		return "", err
	}
	return g.responses[system], nil
}

func (g *scriptedGenerator) lastPrompt(system string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompts[system]
}

// fixedRetriever returns the same result for every query.
type fixedRetriever struct {
	result domain.RetrievalResult
	err    error
}

func (r *fixedRetriever) Retrieve(_ context.Context, query string, _ int, _ float64) (domain.RetrievalResult, error) {
	if r.err != nil {
		return domain.RetrievalResult{Query: query}, r.err
	}
	out := r.result
	out.Query = query
	return out, nil
}

func retrievalWith(chunks ...domain.RetrievedChunk) domain.RetrievalResult {
	return domain.RetrievalResult{Chunks: chunks}
}

func passage(doc string, idx int, text string, score float64) domain.RetrievedChunk {
	return domain.RetrievedChunk{
		Chunk: domain.Chunk{DocumentName: doc, Index: idx, Text: text},
		Score: score,
	}
}
