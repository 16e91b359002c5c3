package llm

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrProviderRequired is returned when WithProvider is not specified.
	ErrProviderRequired = errors.New("provider is required: use WithProvider option")

	// ErrModelRequired is returned when WithModel is not specified.
	ErrModelRequired = errors.New("model is required: use WithModel option")

	// ErrNotParsed is returned when Parsed() is called but no parsing occurred.
	ErrNotParsed = errors.New("response was not parsed: use CallParse to get structured output")

	// ErrEmbeddingsUnsupported is returned by Embed for chat-only providers.
	ErrEmbeddingsUnsupported = errors.New("provider does not support embeddings")
)

// ProviderError represents an error from the model provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " error"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	msg += ": " + e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ParseError represents a failure to parse the model's reply.
type ParseError struct {
	Content string
	Target  string
	Cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response as %s: %v", e.Target, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}
