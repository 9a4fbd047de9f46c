package providers

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// WithRetry retries rate-limited and transient Generate failures with
// exponential backoff. Every other error is returned on first sight.
func WithRetry(p LLMProvider, maxRetries uint64, base time.Duration) LLMProvider {
	if maxRetries == 0 {
		return p
	}
	return &retryingLLM{next: p, maxRetries: maxRetries, base: base}
}

// WithEmbedRetry is WithRetry for embedding providers.
func WithEmbedRetry(p EmbeddingProvider, maxRetries uint64, base time.Duration) EmbeddingProvider {
	if maxRetries == 0 {
		return p
	}
	return &retryingEmbedder{next: p, maxRetries: maxRetries, base: base}
}

type retryingLLM struct {
	next       LLMProvider
	maxRetries uint64
	base       time.Duration
}

func (r *retryingLLM) Generate(ctx context.Context, req GenerateRequest) (GenerateResponse, ProviderInfo, error) {
	var (
		resp GenerateResponse
		info ProviderInfo
	)
	err := retry.Do(ctx, backoff(r.maxRetries, r.base), func(ctx context.Context) error {
		var err error
		resp, info, err = r.next.Generate(ctx, req)
		return markRetryable(err)
	})
	return resp, info, err
}

type retryingEmbedder struct {
	next       EmbeddingProvider
	maxRetries uint64
	base       time.Duration
}

func (r *retryingEmbedder) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	var (
		out  [][]float32
		info ProviderInfo
	)
	err := retry.Do(ctx, backoff(r.maxRetries, r.base), func(ctx context.Context) error {
		var err error
		out, info, err = r.next.Embed(ctx, req)
		return markRetryable(err)
	})
	return out, info, err
}

func backoff(maxRetries uint64, base time.Duration) retry.Backoff {
	if base <= 0 {
		base = time.Second
	}
	b := retry.NewExponential(base)
	b = retry.WithCappedDuration(20*time.Second, b)
	b = retry.WithJitterPercent(10, b)
	return retry.WithMaxRetries(maxRetries, b)
}

func markRetryable(err error) error {
	if err != nil && Retryable(err) {
		return retry.RetryableError(err)
	}
	return err
}
