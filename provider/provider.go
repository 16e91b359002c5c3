// Package provider defines the interfaces the language-model backends implement.
package provider

import "context"

// Provider is the core abstraction for chat-completion backends.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// Call executes a single non-streaming chat request.
	Call(ctx context.Context, req *Request) (*Response, error)
}

// Embedder is implemented by providers that can turn text into vectors.
type Embedder interface {
	Provider

	// Embed returns one vector per input, in input order.
	Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error)
}
