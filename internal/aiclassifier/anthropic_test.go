package aiclassifier

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anthropicServer(t *testing.T, status int, header http.Header, body string) *AnthropicBackend {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		for k, v := range header {
			w.Header()[k] = v
		}
		writeJSON(w, status, body)
	}))
	t.Cleanup(srv.Close)

	b, err := NewAnthropicBackend(BackendConfig{APIKey: "ak-test", BaseURL: srv.URL, Model: "claude-test", Timeout: 5 * time.Second})
	require.NoError(t, err)
	return b
}

func TestAnthropicBackend(t *testing.T) {
	t.Run("text content", func(t *testing.T) {
		b := anthropicServer(t, http.StatusOK, nil, `{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [{"type": "text", "text": "{\"holidays\":[{\"holiday\":\"easter\",\"confidence\":82}]}"}],
			"stop_reason": "end_turn", "stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 12}
		}`)

		got, err := b.Complete(context.Background(), Request{System: SystemPrompt(), User: `{"title":"Hop"}`})
		require.NoError(t, err)
		assert.Equal(t, `{"holidays":[{"holiday":"easter","confidence":82}]}`, got.Content)
		assert.Equal(t, "claude-test", got.Model)
		assert.Contains(t, got.Raw, "msg_1")
	})

	t.Run("refusal", func(t *testing.T) {
		b := anthropicServer(t, http.StatusOK, nil, `{
			"id": "msg_2", "type": "message", "role": "assistant", "model": "claude-test",
			"content": [], "stop_reason": "refusal", "stop_sequence": null,
			"usage": {"input_tokens": 10, "output_tokens": 0}
		}`)

		_, err := b.Complete(context.Background(), Request{System: "s", User: "u"})
		assert.True(t, errors.Is(err, ErrContentFiltered))
	})

	t.Run("rate limited", func(t *testing.T) {
		h := http.Header{}
		h.Set("Retry-After", "2")
		b := anthropicServer(t, http.StatusTooManyRequests, h,
			`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)

		_, err := b.Complete(context.Background(), Request{System: "s", User: "u"})
		var rl *RateLimitError
		require.True(t, errors.As(err, &rl))
		assert.Equal(t, 2*time.Second, rl.RetryAfter)
	})

	t.Run("server error", func(t *testing.T) {
		b := anthropicServer(t, http.StatusInternalServerError, nil,
			`{"type":"error","error":{"type":"api_error","message":"internal"}}`)

		_, err := b.Complete(context.Background(), Request{System: "s", User: "u"})
		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	})
}
