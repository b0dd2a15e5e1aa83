package aiclassifier

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Request is one classification exchange.
type Request struct {
	System    string
	User      string
	MaxTokens int
}

// Completion is the backend's answer.
type Completion struct {
	Content string
	Model   string
	Raw     string
}

// Backend sends a request to a generative text service.
//
// Implementations return *RateLimitError for HTTP 429, ErrContentFiltered
// when the request is refused on policy grounds and *StatusError for other
// failures. They must not retry on their own.
type Backend interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// BackendConfig selects and configures a backend.
type BackendConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	Timeout    time.Duration
}

// NewBackend builds the configured backend. Missing credentials fail here so
// callers can disable classification up front.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAIBackend(cfg)
	case ProviderAnthropic:
		return NewAnthropicBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported classification provider %q", cfg.Provider)
	}
}
