// Package generator abstracts the upstream model API that produces content.
package generator

import (
	"context"
	"errors"
)

// Result is a single completed generation from the upstream model.
type Result struct {
	Output     string
	ModelID    string
	TokensUsed int64
}

// Generator produces content for a prompt. Implementations must honor
// ctx cancellation and deadlines.
type Generator interface {
	Produce(ctx context.Context, prompt, modelID string) (*Result, error)
}

var (
	// ErrUpstreamFailed covers any upstream failure: transport errors,
	// non-2xx responses, or an empty completion.
	ErrUpstreamFailed = errors.New("generator_upstream_failed")
)
