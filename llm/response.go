package llm

import "github.com/i2y/moviemood/provider"

// Response wraps the provider response with type-safe parsed content.
// T is the type of structured output expected from the model.
type Response[T any] struct {
	raw       *provider.Response
	parsed    T
	hasParsed bool
	parseErr  error
	messages  []Message
}

// Text returns the raw text content of the response.
func (r Response[T]) Text() string {
	if r.raw == nil {
		return ""
	}
	return r.raw.Content
}

// Parsed returns the structured output.
// Returns ErrNotParsed if the response was not created via CallParse.
func (r Response[T]) Parsed() (T, error) {
	if r.parseErr != nil {
		return r.parsed, r.parseErr
	}
	if !r.hasParsed {
		return r.parsed, ErrNotParsed
	}
	return r.parsed, nil
}

// MustParse returns the parsed value or panics.
func (r Response[T]) MustParse() T {
	v, err := r.Parsed()
	if err != nil {
		panic(err)
	}
	return v
}

// Usage returns token usage statistics.
func (r Response[T]) Usage() Usage {
	if r.raw == nil {
		return Usage{}
	}
	return Usage(r.raw.Usage)
}

// FinishReason returns why the model stopped generating.
func (r Response[T]) FinishReason() FinishReason {
	if r.raw == nil {
		return ""
	}
	return FinishReason(r.raw.FinishReason)
}

// Raw returns the underlying provider response.
func (r Response[T]) Raw() *provider.Response {
	return r.raw
}

// Messages returns the request messages followed by the assistant reply.
func (r Response[T]) Messages() []Message {
	return r.messages
}

// Usage contains token usage information.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
	FinishReasonFilter FinishReason = "content_filter"
)

// newResponse builds a Response. typed reports whether parsed came from
// structured output rather than being the raw text.
func newResponse[T any](raw *provider.Response, parsed T, typed bool, parseErr error, sent []Message) Response[T] {
	messages := make([]Message, 0, len(sent)+1)
	messages = append(messages, sent...)
	messages = append(messages, AssistantMessage(raw.Content))

	return Response[T]{
		raw:       raw,
		parsed:    parsed,
		hasParsed: typed && parseErr == nil,
		parseErr:  parseErr,
		messages:  messages,
	}
}
