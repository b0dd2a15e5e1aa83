package aiclassifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultTimeout       = 60 * time.Second
	maxResponseBytes     = 1 << 20
	contentFilterCode    = "content_filter"
)

// OpenAIBackend talks to an OpenAI-compatible chat completions endpoint.
// When APIVersion is set the Azure conventions apply: an api-key header and
// an api-version query parameter.
type OpenAIBackend struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	azure      bool
	model      string
}

// NewOpenAIBackend creates the backend.
func NewOpenAIBackend(cfg BackendConfig) (*OpenAIBackend, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredentials
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	endpoint := base + "/chat/completions"
	if cfg.APIVersion != "" {
		endpoint += "?" + url.Values{"api-version": {cfg.APIVersion}}.Encode()
	}

	return &OpenAIBackend{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		azure:      cfg.APIVersion != "",
		model:      model,
	}, nil
}

// Name implements Backend.
func (b *OpenAIBackend) Name() string { return ProviderOpenAI }

// Model implements Backend.
func (b *OpenAIBackend) Model() string { return b.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type apiErrorBody struct {
	Error struct {
		Code       any    `json:"code"`
		Message    string `json:"message"`
		InnerError struct {
			Code string `json:"code"`
		} `json:"innererror"`
	} `json:"error"`
}

// Complete implements Backend.
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (*Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model: b.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:      req.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if b.azure {
		httpReq.Header.Set("api-key", b.apiKey)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: parseRetryAfter(resp.Header, time.Now())}
	case resp.StatusCode == http.StatusBadRequest && isContentFilterBody(raw):
		return nil, ErrContentFiltered
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	choice := out.Choices[0]
	if choice.FinishReason == contentFilterCode {
		return nil, ErrContentFiltered
	}

	model := out.Model
	if model == "" {
		model = b.model
	}
	return &Completion{Content: choice.Message.Content, Model: model, Raw: string(raw)}, nil
}

func isContentFilterBody(raw []byte) bool {
	var body apiErrorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return false
	}
	code, _ := body.Error.Code.(string)
	return code == contentFilterCode ||
		body.Error.InnerError.Code == "ResponsibleAIPolicyViolation"
}
