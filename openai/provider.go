// Package openai provides the OpenAI chat and embeddings provider.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"

	"github.com/i2y/moviemood/provider"
)

// maxEmbeddingBatch is the number of inputs sent per /embeddings request.
const maxEmbeddingBatch = 1000

func init() {
	provider.Register("openai", func() (provider.Provider, error) {
		return New()
	})
}

var _ provider.Embedder = (*Provider)(nil)

// Provider implements the OpenAI API.
type Provider struct {
	client *client
}

// Option configures the OpenAI provider.
type Option func(*providerConfig)

type providerConfig struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *providerConfig) {
		c.apiKey = key
	}
}

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *providerConfig) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *providerConfig) {
		c.httpClient = client
	}
}

// New creates a new OpenAI provider. Without WithAPIKey the key is read
// from OPENAI_API_KEY.
func New(opts ...Option) (*Provider, error) {
	cfg := &providerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.apiKey == "" {
		return nil, &APIError{
			Message: "OpenAI API key required: set OPENAI_API_KEY or use WithAPIKey",
		}
	}

	return &Provider{
		client: newClient(cfg.apiKey, cfg.baseURL, cfg.httpClient),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "openai"
}

// Call implements provider.Provider.
func (p *Provider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	apiResp, err := p.client.chatCompletion(ctx, buildRequest(req))
	if err != nil {
		return nil, err
	}

	return convertResponse(apiResp), nil
}

// Embed implements provider.Embedder. Inputs are sent in batches and the
// returned vectors follow the input order.
func (p *Provider) Embed(ctx context.Context, req *provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	out := &provider.EmbeddingResponse{
		Model:   req.Model,
		Vectors: make([][]float32, 0, len(req.Input)),
	}

	for start := 0; start < len(req.Input); start += maxEmbeddingBatch {
		end := min(start+maxEmbeddingBatch, len(req.Input))
		batch := req.Input[start:end]

		apiResp, err := p.client.embeddings(ctx, &embeddingRequest{
			Model: req.Model,
			Input: batch,
		})
		if err != nil {
			return nil, err
		}
		if len(apiResp.Data) != len(batch) {
			return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(apiResp.Data), len(batch))
		}

		sort.Slice(apiResp.Data, func(i, j int) bool {
			return apiResp.Data[i].Index < apiResp.Data[j].Index
		})
		for _, d := range apiResp.Data {
			out.Vectors = append(out.Vectors, d.Embedding)
		}

		if apiResp.Model != "" {
			out.Model = apiResp.Model
		}
		out.Usage.PromptTokens += apiResp.Usage.PromptTokens
		out.Usage.TotalTokens += apiResp.Usage.TotalTokens
	}

	return out, nil
}

// buildRequest converts a provider.Request to an OpenAI API request.
func buildRequest(req *provider.Request) *chatCompletionRequest {
	apiReq := &chatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]message, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		TopP:        req.TopP,
		Seed:        req.Seed,
		Stop:        req.StopSequences,
	}

	for _, msg := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, message{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	if req.JSONSchema != nil {
		apiReq.ResponseFormat = &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   req.JSONSchema.Name,
				Strict: req.JSONSchema.Strict,
				Schema: strictSchema(req.JSONSchema.Schema),
			},
		}
	}

	return apiReq
}

// convertResponse converts an OpenAI API response to a provider.Response.
func convertResponse(resp *chatCompletionResponse) *provider.Response {
	if len(resp.Choices) == 0 {
		return &provider.Response{Model: resp.Model}
	}

	choice := resp.Choices[0]
	return &provider.Response{
		Model:        resp.Model,
		Content:      choice.Message.Content,
		FinishReason: convertFinishReason(choice.FinishReason),
		Usage: provider.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// strictSchema rewrites a schema the way OpenAI's strict mode wants it:
// every property listed in "required" and no additional properties.
func strictSchema(schema json.RawMessage) json.RawMessage {
	if schema == nil {
		return nil
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schema, &schemaMap); err != nil {
		return schema
	}

	makeStrict(schemaMap)

	result, err := json.Marshal(schemaMap)
	if err != nil {
		return schema
	}
	return result
}

func makeStrict(node map[string]any) {
	if props, ok := node["properties"].(map[string]any); ok {
		required := make([]string, 0, len(props))
		for key := range props {
			required = append(required, key)
		}
		sort.Strings(required)
		node["required"] = required
		node["additionalProperties"] = false

		for _, val := range props {
			if child, ok := val.(map[string]any); ok {
				makeStrict(child)
			}
		}
	}

	if items, ok := node["items"].(map[string]any); ok {
		makeStrict(items)
	}
}

func convertFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "length":
		return provider.FinishReasonLength
	case "content_filter":
		return provider.FinishReasonFilter
	default:
		return provider.FinishReasonStop
	}
}
