// Package gemini implements the provider adapter for the Google Gemini
// generateContent API. It is the high-context provider, routed templates
// that synthesize large bodies of evidence.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/complyforge/complyforge/ai/provider"
	"github.com/complyforge/complyforge/errors"
	"github.com/complyforge/complyforge/internal/httpclient"
)

const (
	// DefaultModel is the default Gemini model.
	DefaultModel = "gemini-1.5-pro"

	// BaseURL is the Generative Language API endpoint.
	BaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// Config holds Gemini client configuration.
type Config struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.SugaredLogger
}

// Client is a Gemini generateContent client implementing
// provider.Generator.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	config     Config
	logger     *zap.SugaredLogger
}

// NewClient creates a Gemini API client. No internal retries; the
// breaker/fallback layer owns failure handling.
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == 0 {
		config.Temperature = 0.2
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 8192
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	safer := httpclient.New(120*time.Second, httpclient.Options{})

	return &Client{
		apiKey:     config.APIKey,
		baseURL:    BaseURL,
		httpClient: safer.Client,
		config:     config,
		logger:     logger,
	}
}

// ID implements provider.Generator.
func (c *Client) ID() provider.ID {
	return provider.Gemini
}

type generateContentRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate implements provider.Generator.
func (c *Client) Generate(ctx context.Context, req provider.Request) (*provider.Result, error) {
	if c.apiKey == "" {
		return nil, errors.New("Gemini API key not configured")
	}

	temperature := c.config.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	genReq := generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.UserPrompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxTokens,
		},
	}
	if req.SystemPrompt != "" {
		genReq.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	url := c.baseURL + "/models/" + c.config.Model + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "Gemini request failed")
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, errors.Newf("Gemini API error (status %d, %s): %s",
				httpResp.StatusCode, apiErr.Error.Status, apiErr.Error.Message)
		}
		return nil, errors.Newf("Gemini API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp generateContentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("no candidates from Gemini")
	}

	candidate := resp.Candidates[0]
	var text strings.Builder
	for _, p := range candidate.Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return nil, errors.New("empty response from Gemini")
	}

	c.logger.Debugw("Gemini response",
		"finish_reason", candidate.FinishReason,
		"total_tokens", resp.UsageMetadata.TotalTokenCount,
	)

	return &provider.Result{
		Content:      strings.TrimSpace(text.String()),
		FinishReason: candidate.FinishReason,
		Usage: provider.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}

// IsConfigured reports whether the client has an API key.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// SetHTTPClient overrides the HTTP client (tests).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetBaseURL overrides the API endpoint (tests).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

var _ provider.Generator = (*Client)(nil)
