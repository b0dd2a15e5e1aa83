package aiclassifier

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingCredentials is returned when a backend is built without credentials.
	ErrMissingCredentials = errors.New("classification backend credentials are not configured")
	// ErrContentFiltered marks a request the backend refused on policy grounds.
	ErrContentFiltered = errors.New("request rejected by content filter")
	// ErrMalformedResponse marks output that does not follow the response schema.
	ErrMalformedResponse = errors.New("malformed classification response")
	// ErrRateLimited matches any *RateLimitError.
	ErrRateLimited = errors.New("classification backend rate limited")
)

// RateLimitError is returned for HTTP 429. RetryAfter is zero when the
// backend did not say how long to wait.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", ErrRateLimited, e.RetryAfter)
	}
	return ErrRateLimited.Error()
}

// Is reports ErrRateLimited as a match.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

// StatusError is an unexpected non-success status from a backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("classification backend returned status %d: %s", e.StatusCode, body)
}

// parseRetryAfter reads retry-after-ms, then Retry-After in seconds or as an
// HTTP date.
func parseRetryAfter(h http.Header, now time.Time) time.Duration {
	if h == nil {
		return 0
	}
	if ms := strings.TrimSpace(h.Get("retry-after-ms")); ms != "" {
		if v, err := strconv.ParseFloat(ms, 64); err == nil && v > 0 {
			return time.Duration(v * float64(time.Millisecond))
		}
	}
	ra := strings.TrimSpace(h.Get("Retry-After"))
	if ra == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(ra, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(ra); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
