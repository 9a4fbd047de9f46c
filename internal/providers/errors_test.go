package providers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := map[string]ErrorType{
		"insufficient_quota":                   ErrorQuota,
		"429 too many requests":                ErrorRate,
		"prompt is too long":                   ErrorTokenLimit,
		"input tokens exceed the model limit":  ErrorTokenLimit,
		"timeout":                              ErrorTransient,
		"bad request":                          ErrorPermanent,
		"openai generate error 401: no access": ErrorPermanent,
	}
	for msg, want := range cases {
		if got := ClassifyError(errors.New(msg)); got != want {
			t.Fatalf("classify %q: got %s want %s", msg, got, want)
		}
	}
}

func TestClassifyErrorContext(t *testing.T) {
	err := fmt.Errorf("openai generate request failed: %w", context.DeadlineExceeded)
	assert.Equal(t, ErrorCanceled, ClassifyError(err))
	assert.False(t, Retryable(err))
}

func TestIsTokenLimit(t *testing.T) {
	assert.True(t, IsTokenLimit(errors.New("Token limit reached")))
	assert.True(t, IsTokenLimit(errors.New("the number of INPUT TOKENS is too high")))
	assert.True(t, IsTokenLimit(errors.New("request would exceed the maximum size")))
	assert.False(t, IsTokenLimit(errors.New("401 unauthorized")))
	assert.False(t, IsTokenLimit(nil))
}
