package agentcore

import (
	"context"
	"math"
	"time"

	"github.com/voocel/litellm"
)

// RetryingModel wraps a ChatModel with exponential backoff retry on
// retryable provider errors. It is opt-in: wrap a model with NewRetryingModel
// before passing it to WithModel if retries are desired. The agent loop
// itself never retries — a failed call is always a terminal loop error.
type RetryingModel struct {
	model      ChatModel
	maxRetries int
}

// NewRetryingModel wraps model so that Generate and GenerateStream retry up
// to maxRetries times on errors litellm.IsRetryableError reports as
// retryable, using exponential backoff capped at 30s and honoring
// Retry-After when the provider supplies one. maxRetries <= 0 disables
// retrying and returns model unwrapped.
func NewRetryingModel(model ChatModel, maxRetries int) ChatModel {
	if maxRetries <= 0 {
		return model
	}
	return &RetryingModel{model: model, maxRetries: maxRetries}
}

func (m *RetryingModel) SupportsTools() bool {
	return m.model.SupportsTools()
}

func (m *RetryingModel) Generate(ctx context.Context, messages []Message, tools []ToolSpec, opts ...CallOption) (*LLMResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		resp, err := m.model.Generate(ctx, messages, tools, opts...)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !litellm.IsRetryableError(err) || attempt == m.maxRetries {
			return nil, err
		}
		if waitErr := sleepForRetry(ctx, err, attempt); waitErr != nil {
			return nil, waitErr
		}
	}
	return nil, lastErr
}

// GenerateStream retries only the initial stream setup. Once a stream has
// started delivering events, a mid-stream error is surfaced to the caller
// rather than silently restarted, since partial output may already have
// been emitted.
func (m *RetryingModel) GenerateStream(ctx context.Context, messages []Message, tools []ToolSpec, opts ...CallOption) (<-chan StreamEvent, error) {
	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		stream, err := m.model.GenerateStream(ctx, messages, tools, opts...)
		if err == nil {
			return stream, nil
		}
		lastErr = err
		if !litellm.IsRetryableError(err) || attempt == m.maxRetries {
			return nil, err
		}
		if waitErr := sleepForRetry(ctx, err, attempt); waitErr != nil {
			return nil, waitErr
		}
	}
	return nil, lastErr
}

func sleepForRetry(ctx context.Context, err error, attempt int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryBackoff(err, attempt)):
		return nil
	}
}

// retryBackoff calculates the wait duration using exponential backoff,
// capped at 30s. Respects Retry-After from rate limit errors.
func retryBackoff(err error, attempt int) time.Duration {
	if after := litellm.GetRetryAfter(err); after > 0 {
		d := time.Duration(after) * time.Second
		if d > 30*time.Second {
			d = 30 * time.Second
		}
		return d
	}
	d := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
