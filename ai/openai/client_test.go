package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyforge/complyforge/ai/provider"
)

func TestGenerate(t *testing.T) {
	var gotReq chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := chatCompletionResponse{ID: "chatcmpl-01", Model: DefaultModel}
		resp.Choices = []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		}{
			{Message: chatMessage{Role: "assistant", Content: "## Change Management Procedure\n\n1. Raise a change request..."}, FinishReason: "stop"},
		}
		resp.Usage.PromptTokens = 80
		resp.Usage.CompletionTokens = 640
		resp.Usage.TotalTokens = 720
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key"})
	client.SetBaseURL(server.URL)
	client.SetHTTPClient(server.Client())

	result, err := client.Generate(context.Background(), provider.Request{
		SystemPrompt: "You are a compliance writer.",
		UserPrompt:   "Draft the change management procedure.",
	})

	require.NoError(t, err)
	assert.Contains(t, result.Content, "Change Management Procedure")
	assert.Equal(t, "stop", result.FinishReason)
	assert.Equal(t, 720, result.Usage.TotalTokens)

	// System prompt becomes the leading system message.
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"type": "invalid_request_error", "message": "Invalid API key"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad-key"})
	client.SetBaseURL(server.URL)
	client.SetHTTPClient(server.Client())

	_, err := client.Generate(context.Background(), provider.Request{UserPrompt: "draft"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestGenerateWithoutAPIKey(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.Generate(context.Background(), provider.Request{UserPrompt: "draft"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not configured")
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})

	assert.Equal(t, DefaultModel, client.config.Model)
	assert.Equal(t, 0.1, client.config.Temperature)
	assert.Equal(t, 4096, client.config.MaxTokens)
	assert.Equal(t, provider.OpenAI, client.ID())
}
