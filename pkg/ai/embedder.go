package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/recapcrew/recap-engine/pkg/config"
)

// Embedder turns text into a fixed-length vector for duplicate detection.
// Implementations are allowed to be degraded or absent; callers must treat a
// failure as "duplicate detection skipped", never as a hard failure.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HTTPEmbedder calls an OpenAI-compatible embeddings endpoint.
type HTTPEmbedder struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewHTTPEmbedder creates an embedder from config.
func NewHTTPEmbedder(cfg *config.EmbeddingConfig) *HTTPEmbedder {
	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	return &HTTPEmbedder{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the vector for text. Empty text is an error per the provider
// contract.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	if e.apiKey == "" {
		return nil, fmt.Errorf("embedding provider not configured")
	}

	b, err := json.Marshal(embeddingRequest{Input: text, Model: e.model})
	if err != nil {
		return nil, err
	}

	endpoint := e.baseURL + "/v1/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embedding provider returned status %d", resp.StatusCode)
	}

	var er embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, err
	}
	if len(er.Data) == 0 {
		return nil, fmt.Errorf("empty response from embedding provider")
	}
	return er.Data[0].Embedding, nil
}
