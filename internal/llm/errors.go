package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"signalhound/internal/logger"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// Classifier and embedder failures fall into two classes with
// different handling: unavailable (timeouts, rate limits, 5xx) is
// retried with exponential backoff, while rejected (4xx other than
// 429) is surfaced immediately and never retried.
var (
	ErrUnavailable = errors.New("model unavailable")
	ErrRejected    = errors.New("model rejected request")
)

// retryBaseDelay is the first backoff step; doubled each attempt
// (1s, 2s, 4s). Shortened in tests.
var retryBaseDelay = time.Second

// classifyGeminiError folds a genai call failure into the taxonomy.
func classifyGeminiError(op string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return fmt.Errorf("%s: rate limited: %w", op, ErrUnavailable)
		}
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return fmt.Errorf("%s: %s (%d): %w", op, apiErr.Message, apiErr.Code, ErrRejected)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrUnavailable)
}

// classifyOpenAIError does the same for go-openai call failures.
func classifyOpenAIError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%s: rate limited: %w", op, ErrUnavailable)
		}
		if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
			return fmt.Errorf("%s: %s (%d): %w", op, apiErr.Message, apiErr.HTTPStatusCode, ErrRejected)
		}
	}
	return fmt.Errorf("%s: %v: %w", op, err, ErrUnavailable)
}

// withRetry runs fn up to maxRetries+1 times, backing off 1s, 2s, 4s
// between attempts. fn must return errors already classified; only
// ErrUnavailable is retried.
func withRetry(ctx context.Context, maxRetries int, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(delay):
			}
			logger.Warn("retrying after transient failure", "op", op, "attempt", attempt, "delay", delay.String())
		}

		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
