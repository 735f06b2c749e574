package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/pkg/config"
)

// ExtractionClient invokes the language model that turns a transcript into a
// structured recap payload. The returned payload is opaque here; the contract
// validator owns its interpretation.
type ExtractionClient interface {
	ExtractRecap(ctx context.Context, transcript string, category entities.MeetingCategory) ([]byte, error)
}

// HTTPExtractionClient calls an OpenAI-compatible chat completions endpoint.
type HTTPExtractionClient struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// NewHTTPExtractionClient creates an extraction client from config.
func NewHTTPExtractionClient(cfg *config.ExtractionConfig) *HTTPExtractionClient {
	model := cfg.Model
	if model == "" {
		model = "llama-3.1-70b-versatile"
	}
	return &HTTPExtractionClient{
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		model:       model,
		temperature: 0.2,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []map[string]string `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const extractionPrompt = `You are a project management assistant. Extract action items, decisions and risks from the following %s meeting transcript. Answer with a single JSON object matching schema version %q. Every create or update must cite at least one verbatim evidence quote from the transcript.

Transcript:
%s`

// ExtractRecap sends the transcript to the model and returns the raw payload.
// Transient provider failures are retried with exponential backoff; quota and
// billing failures are surfaced immediately as PROVIDER_QUOTA so the meeting
// can be failed with a non-retryable reason code.
func (c *HTTPExtractionClient) ExtractRecap(ctx context.Context, transcript string, category entities.MeetingCategory) ([]byte, error) {
	if c.apiKey == "" {
		return nil, apperrors.ErrProviderUnavailable("extraction", fmt.Errorf("extraction provider not configured"))
	}
	if transcript == "" {
		return nil, apperrors.ErrInvalidArgument("transcript text is empty")
	}

	prompt := fmt.Sprintf(extractionPrompt, category, entities.ContractSchemaVersion, transcript)
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []map[string]string{{"role": "user", "content": prompt}},
		Temperature: c.temperature,
		MaxTokens:   8000,
	})
	if err != nil {
		return nil, err
	}

	var payload []byte
	callFn := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return err // network errors are retryable
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode == http.StatusPaymentRequired:
			return backoff.Permanent(apperrors.ErrProviderQuota("extraction"))
		case resp.StatusCode >= 500:
			return fmt.Errorf("extraction provider returned status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("extraction provider returned status %d", resp.StatusCode))
		}

		var cr chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
			return backoff.Permanent(err)
		}
		if len(cr.Choices) == 0 {
			return fmt.Errorf("empty response from extraction provider")
		}
		payload = []byte(cr.Choices[0].Message.Content)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 2 * time.Second
	bo.MaxInterval = 15 * time.Second
	bo.MaxElapsedTime = 90 * time.Second

	if err := backoff.Retry(callFn, backoff.WithContext(bo, ctx)); err != nil {
		if _, ok := apperrors.AsAppError(err); ok {
			return nil, err
		}
		return nil, apperrors.ErrProviderUnavailable("extraction", err)
	}
	return payload, nil
}
