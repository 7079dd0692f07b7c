package llm

import (
	"context"
	"errors"
)

// Message is one role-tagged chat message sent to the completion endpoint.
type Message struct {
	Role    string
	Content string
}

// Request is a single completion call. A nil Temperature leaves the
// provider default in place.
type Request struct {
	Contract    string
	Version     string
	Messages    []Message
	Temperature *float64
}

// Client abstracts chat-completion providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrNotImplemented is returned by the placeholder client.
	ErrNotImplemented = errors.New("LLM not configured")
	// ErrEmptyCompletion is returned when the provider answers with no text.
	ErrEmptyCompletion = errors.New("LLM returned an empty completion")
)

// PlaceholderClient stands in when no provider credentials are configured.
type PlaceholderClient struct{}

// Complete returns ErrNotImplemented.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotImplemented
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}
