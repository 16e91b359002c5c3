package provider

import "encoding/json"

// Request represents a provider-agnostic chat request.
type Request struct {
	Model         string
	Messages      []Message
	Temperature   *float64
	MaxTokens     *int
	TopP          *float64
	Seed          *int
	StopSequences []string
	JSONSchema    *JSONSchema // For structured output
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role represents the message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response contains the model's reply.
type Response struct {
	Model        string
	Content      string
	FinishReason FinishReason
	Usage        Usage
}

// FinishReason indicates why the model stopped generating.
type FinishReason string

const (
	FinishReasonStop   FinishReason = "stop"
	FinishReasonLength FinishReason = "length"
	FinishReasonFilter FinishReason = "content_filter"
)

// JSONSchema represents a JSON Schema for structured output.
type JSONSchema struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// EmbeddingRequest asks for one vector per input string.
type EmbeddingRequest struct {
	Model string
	Input []string
}

// EmbeddingResponse holds vectors aligned with EmbeddingRequest.Input.
type EmbeddingResponse struct {
	Model   string
	Vectors [][]float32
	Usage   Usage
}
