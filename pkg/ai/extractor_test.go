package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/recapcrew/recap-engine/errors"
	"github.com/recapcrew/recap-engine/internal/domain/entities"
	"github.com/recapcrew/recap-engine/pkg/config"
)

func chatServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *HTTPExtractionClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewHTTPExtractionClient(&config.ExtractionConfig{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Model:   "test-model",
	})
	return srv, client
}

func writeChatContent(w http.ResponseWriter, content string) {
	json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"content": content}},
		},
	})
}

func TestExtractRecapReturnsModelContent(t *testing.T) {
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		writeChatContent(w, `{"schema_version":"recap.v1"}`)
	})

	payload, err := client.ExtractRecap(context.Background(), "transcript text", entities.MeetingCategoryGeneral)
	require.NoError(t, err)
	assert.JSONEq(t, `{"schema_version":"recap.v1"}`, string(payload))
}

func TestExtractRecapRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeChatContent(w, `{"ok":true}`)
	})

	payload, err := client.ExtractRecap(context.Background(), "transcript", entities.MeetingCategoryStandup)
	require.NoError(t, err)
	assert.NotEmpty(t, payload)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractRecapQuotaIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.ExtractRecap(context.Background(), "transcript", entities.MeetingCategoryGeneral)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_PROVIDER_QUOTA))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractRecapClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.ExtractRecap(context.Background(), "transcript", entities.MeetingCategoryGeneral)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_PROVIDER_UNAVAILABLE))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractRecapMissingAPIKey(t *testing.T) {
	client := NewHTTPExtractionClient(&config.ExtractionConfig{BaseURL: "http://localhost:1"})

	_, err := client.ExtractRecap(context.Background(), "transcript", entities.MeetingCategoryGeneral)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_PROVIDER_UNAVAILABLE))
}

func TestExtractRecapEmptyTranscript(t *testing.T) {
	_, client := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called for empty transcripts")
	})

	_, err := client.ExtractRecap(context.Background(), "", entities.MeetingCategoryGeneral)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrorCode_INVALID_ARGUMENT))
}
