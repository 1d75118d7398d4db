// Package llm provides a minimal REST client to an Ollama-compatible
// model service, covering both embeddings and chat generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cs-support/internal/domain"
)

// Client talks to an Ollama-compatible HTTP API. It performs no internal
// retries: every failure or timeout surfaces as domain.ErrServiceUnavailable
// and the caller decides what to do.
type Client struct {
	host           string
	llmModel       string
	embeddingModel string
	client         *http.Client
}

// Config configures the Ollama client.
type Config struct {
	Host           string
	LLMModel       string
	EmbeddingModel string
	Timeout        time.Duration
}

// NewClient creates a client using the provided configuration.
func NewClient(cfg Config) *Client {
	if cfg.Host == "" {
		cfg.Host = "http://localhost:11434"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		host:           cfg.Host,
		llmModel:       cfg.LLMModel,
		embeddingModel: cfg.EmbeddingModel,
		client:         &http.Client{Timeout: t},
	}
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body := map[string]any{
		"model":  c.embeddingModel,
		"prompt": text,
	}
	var out struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := c.postJSON(ctx, c.host+"/api/embeddings", body, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: embeddings response contained no vector", domain.ErrServiceUnavailable)
	}
	return out.Embedding, nil
}

// Generate sends a chat completion request and returns the raw response text.
func (c *Client) Generate(ctx context.Context, system, prompt string) (string, error) {
	body := map[string]any{
		"model": c.llmModel,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"options": map[string]any{
			// lower temperature for more consistent structured output
			"temperature": 0.3,
		},
	}
	var out struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := c.postJSON(ctx, c.host+"/api/chat", body, &out); err != nil {
		return "", err
	}
	return out.Message.Content, nil
}

func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %s", domain.ErrServiceUnavailable, url, resp.Status)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrServiceUnavailable, err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: malformed response from %s: %v", domain.ErrServiceUnavailable, url, err)
	}
	return nil
}
