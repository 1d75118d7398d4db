package agent

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cs-support/internal/chunker"
	"cs-support/internal/config"
	"cs-support/internal/domain"
	"cs-support/internal/index"
	"cs-support/internal/retriever"
)

// vocabEmbedder embeds over a fixed vocabulary so unrelated questions
// produce zero vectors and retrieval comes back empty deterministically.
type vocabEmbedder struct {
	vocab map[string]int
}

func newVocabEmbedder(words ...string) *vocabEmbedder {
	v := &vocabEmbedder{vocab: make(map[string]int, len(words))}
	for i, w := range words {
		v.vocab[w] = i
	}
	return v
}

func (v *vocabEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, len(v.vocab))
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?:;\"'()")
		if idx, ok := v.vocab[tok]; ok {
			vec[idx]++
		}
	}
	var norm float64
	for _, x := range vec {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func testConfidence() config.ConfidenceConfig {
	return config.ConfidenceConfig{HighThreshold: 70, LowThreshold: 40}
}

func newTestPipeline(t *testing.T, gen domain.Generator) (*Pipeline, *index.Store) {
	t.Helper()
	ch, err := chunker.NewWindowChunker(500, 50)
	require.NoError(t, err)
	emb := newVocabEmbedder(
		"zero", "liability", "policy", "cardholders", "responsible",
		"unauthorized", "charges", "report", "bank",
	)
	store := index.NewStore(ch, emb)
	ret := retriever.New(emb, store)
	p := NewPipeline(gen, ret, PipelineConfig{
		TopK:          3,
		MinSimilarity: 0.25,
		Confidence:    testConfidence(),
	}, nil)
	return p, store
}

const policyText = "Zero Liability Policy. Cardholders are not responsible for unauthorized charges. " +
	"Report suspected fraud to the bank immediately."

func TestPipelineGroundedAnswer(t *testing.T) {
	gen := newScriptedGenerator()
	gen.respond(reformulationSystemPrompt,
		`{"reformulated_query": "zero liability policy unauthorized charges", "detected_intent": "CARDS"}`)
	gen.respond(answerSystemPrompt,
		`{"answer": "Under the Zero Liability Policy, cardholders are not responsible for unauthorized charges."}`)
	gen.respond(validationSystemPrompt, `{
		"grounded_score": 38, "relevant_score": 28, "complete_score": 18, "clear_score": 9,
		"is_grounded": true, "is_relevant": true, "is_complete": true, "reasoning": "fully grounded"
	}`)

	p, store := newTestPipeline(t, gen)
	require.NoError(t, store.UpsertDocument(context.Background(), "card_protection.md", policyText))

	result := p.Run(context.Background(), "customer says money was stolen from his card")

	assert.NotEmpty(t, result.ID)
	assert.Equal(t, "customer says money was stolen from his card", result.OriginalQuestion)
	assert.Equal(t, "zero liability policy unauthorized charges", result.ReformulatedQuery)
	assert.Equal(t, "CARDS", result.DetectedIntent)
	assert.Equal(t, "card_protection.md", result.SourceDocument)
	assert.GreaterOrEqual(t, result.ConfidenceScore, 70)
	assert.Equal(t, domain.ConfidenceHigh, result.ConfidenceLevel)
	assert.Contains(t, result.Answer, "not responsible for unauthorized charges")
	assert.NotEmpty(t, result.Passages)
	assert.GreaterOrEqual(t, result.Timings.TotalMs, int64(0))
}

func TestPipelineNoMatchingContent(t *testing.T) {
	gen := newScriptedGenerator()
	gen.respond(reformulationSystemPrompt,
		`{"reformulated_query": "sourdough bread baking temperature", "detected_intent": "OTHER"}`)

	p, store := newTestPipeline(t, gen)
	require.NoError(t, store.UpsertDocument(context.Background(), "card_protection.md", policyText))

	result := p.Run(context.Background(), "how do I bake sourdough bread")

	assert.Equal(t, domain.NoSourceDocument, result.SourceDocument)
	assert.Equal(t, 0, result.ConfidenceScore)
	assert.Equal(t, domain.ConfidenceLow, result.ConfidenceLevel)
	assert.Equal(t, noInformationAnswer, result.Answer)
	assert.Empty(t, result.Passages)
}

func TestPipelineAnsweringFailureDegrades(t *testing.T) {
	gen := newScriptedGenerator()
	gen.respond(reformulationSystemPrompt,
		`{"reformulated_query": "zero liability policy", "detected_intent": "CARDS"}`)
	gen.fail(answerSystemPrompt, domain.ErrServiceUnavailable)

	ret := &fixedRetriever{result: retrievalWith(passage("card_protection.md", 0, policyText, 0.9))}
	p := NewPipeline(gen, ret, PipelineConfig{TopK: 3, Confidence: testConfidence()}, nil)

	result := p.Run(context.Background(), "stolen card")

	assert.Equal(t, "zero liability policy", result.ReformulatedQuery)
	assert.Equal(t, domain.NoSourceDocument, result.SourceDocument)
	assert.Equal(t, 0, result.ConfidenceScore)
	assert.Equal(t, domain.ConfidenceLow, result.ConfidenceLevel)
	assert.Equal(t, degradedAnswer, result.Answer)
}

func TestPipelineValidationFailureKeepsAnswer(t *testing.T) {
	gen := newScriptedGenerator()
	gen.respond(reformulationSystemPrompt,
		`{"reformulated_query": "zero liability policy", "detected_intent": "CARDS"}`)
	gen.respond(answerSystemPrompt, `{"answer": "The grounded answer."}`)
	gen.fail(validationSystemPrompt, domain.ErrServiceUnavailable)

	ret := &fixedRetriever{result: retrievalWith(passage("card_protection.md", 0, policyText, 0.9))}
	p := NewPipeline(gen, ret, PipelineConfig{TopK: 3, Confidence: testConfidence()}, nil)

	result := p.Run(context.Background(), "stolen card")

	assert.Equal(t, "The grounded answer.", result.Answer)
	assert.Equal(t, "card_protection.md", result.SourceDocument)
	assert.Equal(t, 0, result.ConfidenceScore)
	assert.Equal(t, domain.ConfidenceLow, result.ConfidenceLevel)
}

func TestPipelineRetrievalFailureDegrades(t *testing.T) {
	gen := newScriptedGenerator()
	gen.respond(reformulationSystemPrompt,
		`{"reformulated_query": "anything", "detected_intent": "OTHER"}`)

	ret := &fixedRetriever{err: domain.ErrServiceUnavailable}
	p := NewPipeline(gen, ret, PipelineConfig{TopK: 3, Confidence: testConfidence()}, nil)

	result := p.Run(context.Background(), "question")

	assert.Equal(t, degradedAnswer, result.Answer)
	assert.Equal(t, domain.NoSourceDocument, result.SourceDocument)
	assert.Equal(t, domain.ConfidenceLow, result.ConfidenceLevel)
}

func TestPipelineReformulationFallbackStillRetrieves(t *testing.T) {
	gen := newScriptedGenerator()
	gen.fail(reformulationSystemPrompt, domain.ErrServiceUnavailable)
	gen.respond(answerSystemPrompt, `{"answer": "Grounded despite fallback."}`)
	gen.respond(validationSystemPrompt, `{
		"grounded_score": 30, "relevant_score": 20, "complete_score": 10, "clear_score": 5,
		"is_grounded": true, "is_relevant": true, "is_complete": true, "reasoning": "ok"
	}`)

	p, store := newTestPipeline(t, gen)
	require.NoError(t, store.UpsertDocument(context.Background(), "card_protection.md", policyText))

	// The raw question shares vocabulary with the document, so the
	// fallback query still retrieves context.
	result := p.Run(context.Background(), "unauthorized charges on the card")

	assert.Equal(t, "unauthorized charges on the card", result.ReformulatedQuery)
	assert.Equal(t, domain.IntentUnknown, result.DetectedIntent)
	assert.Equal(t, "card_protection.md", result.SourceDocument)
	assert.Equal(t, "Grounded despite fallback.", result.Answer)
	assert.Equal(t, domain.ConfidenceMedium, result.ConfidenceLevel)
}
