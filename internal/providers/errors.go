package providers

import (
	"context"
	"errors"
	"strings"
)

type ErrorType string

const (
	ErrorQuota      ErrorType = "quota"
	ErrorRate       ErrorType = "rate"
	ErrorTransient  ErrorType = "transient"
	ErrorPermanent  ErrorType = "permanent"
	ErrorTokenLimit ErrorType = "token_limit"
	ErrorCanceled   ErrorType = "canceled"
)

func ClassifyError(err error) ErrorType {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorCanceled
	}
	e := strings.ToLower(err.Error())
	switch {
	case strings.Contains(e, "quota"), strings.Contains(e, "credit"), strings.Contains(e, "insufficient_quota"):
		return ErrorQuota
	case strings.Contains(e, "rate limit"), strings.Contains(e, "rate_limit"), strings.Contains(e, "429"):
		return ErrorRate
	case IsTokenLimit(err), strings.Contains(e, "too long"), strings.Contains(e, "context length"):
		return ErrorTokenLimit
	case strings.Contains(e, "timeout"), strings.Contains(e, "temporarily"), strings.Contains(e, "unavailable"),
		strings.Contains(e, " 502"), strings.Contains(e, " 503"):
		return ErrorTransient
	default:
		return ErrorPermanent
	}
}

// IsTokenLimit reports whether a provider rejected the input for its size.
// Providers only signal this in free text, so the check is a substring match.
func IsTokenLimit(err error) bool {
	if err == nil {
		return false
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "token") || strings.Contains(e, "input tokens") || strings.Contains(e, "exceed")
}

// Retryable reports whether the same request may succeed later.
func Retryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorRate, ErrorTransient:
		return true
	default:
		return false
	}
}
