// Package classify maps raw failures from the generation call into the
// closed StructuredError taxonomy.
package classify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/happyBayes/goods-gallery/internal/core/domain"
)

// signal is one classification rule. Rules are evaluated in order and the
// first match wins: specific non-retryable conditions come before the
// generic retryable fallbacks so a permanent failure is never masked as
// transient.
type signal struct {
	substrings []string
	kind       domain.ErrorKind
	message    string
	retryable  bool
}

var signals = []signal{
	{
		substrings: []string{"quota", "rate limit", "resource_exhausted", "429", "too many requests"},
		kind:       domain.ErrQuotaExceeded,
		message:    "API quota exceeded, please try again later",
		retryable:  true,
	},
	{
		substrings: []string{"permission", "unauthorized", "api key", "401", "403", "forbidden"},
		kind:       domain.ErrAuthentication,
		message:    "API authentication failed, check the configured key",
		retryable:  false,
	},
	{
		substrings: []string{"model not found", "invalid model", "not_found", "is not supported"},
		kind:       domain.ErrAPI,
		message:    "the configured generation model is unavailable",
		retryable:  false,
	},
	{
		substrings: []string{"safety", "content policy", "blocked", "prohibited"},
		kind:       domain.ErrContentPolicy,
		message:    "the request was rejected by the content policy",
		retryable:  false,
	},
	{
		substrings: []string{"network", "connection refused", "connection reset", "no such host", "dial tcp", "broken pipe", "eof"},
		kind:       domain.ErrNetwork,
		message:    "network failure while calling the generation API",
		retryable:  true,
	},
	{
		substrings: []string{"timeout", "deadline exceeded", "context canceled", "aborted"},
		kind:       domain.ErrTimeout,
		message:    "the generation API did not respond in time",
		retryable:  true,
	},
	{
		substrings: []string{"500", "502", "503", "504", "internal server error", "unavailable", "overloaded"},
		kind:       domain.ErrAPI,
		message:    "the generation API returned a server error",
		retryable:  true,
	},
}

// Classify turns a raw failure into a StructuredError. An error that already
// is a StructuredError passes through unchanged. Anything unmapped falls into
// a retryable API error carrying the original text.
func Classify(err error, callContext string) *domain.StructuredError {
	var serr *domain.StructuredError
	if errors.As(err, &serr) {
		return serr
	}

	classified := match(err)
	slog.Warn("Classified generation failure",
		"context", callContext,
		"kind", classified.Kind,
		"retryable", classified.Retryable,
		"error", err)

	return classified
}

func match(err error) *domain.StructuredError {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrTimeout, "the generation API did not respond in time", true, err)
	}

	text := strings.ToLower(err.Error())
	for _, sig := range signals {
		for _, substr := range sig.substrings {
			if strings.Contains(text, substr) {
				return domain.WrapError(sig.kind, sig.message, sig.retryable, err)
			}
		}
	}

	return domain.WrapError(domain.ErrAPI, "generation failed: "+err.Error(), true, err)
}
