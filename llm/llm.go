// Package llm provides the main API for making model calls.
package llm

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/i2y/moviemood/provider"
	"github.com/i2y/moviemood/schema"
)

// Call makes a single-prompt call and returns a text response.
//
//	resp, err := llm.Call(ctx, "Suggest a comfort movie",
//	    llm.WithProvider("openai"),
//	    llm.WithModel("gpt-3.5-turbo"),
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Text())
func Call(ctx context.Context, prompt string, opts ...Option) (Response[string], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	resp, req, err := cfg.call(ctx, cfg.buildRequest(prompt))
	if err != nil {
		return Response[string]{}, err
	}
	return newResponse(resp, resp.Content, false, nil, req.Messages), nil
}

// CallMessages makes a call with a full message history.
//
//	resp, err := llm.CallMessages(ctx, []llm.Message{
//	    llm.SystemMessage("Use the following pieces of context..."),
//	    llm.UserMessage("Something funny for a rainy day"),
//	}, llm.WithProvider("openai"), llm.WithModel("gpt-3.5-turbo"))
func CallMessages(ctx context.Context, messages []Message, opts ...Option) (Response[string], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	resp, req, err := cfg.call(ctx, cfg.buildRequestFromMessages(messages))
	if err != nil {
		return Response[string]{}, err
	}
	return newResponse(resp, resp.Content, false, nil, req.Messages), nil
}

// CallParse makes a call with structured output and parses the reply into T.
// The JSON schema is generated from T and sent in strict mode.
//
//	type Pick struct {
//	    Title string `json:"title" jsonschema:"required"`
//	}
//
//	resp, err := llm.CallParse[Pick](ctx, "One heist movie", opts...)
//	pick, err := resp.Parsed()
func CallParse[T any](ctx context.Context, prompt string, opts ...Option) (Response[T], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	if err := withSchema[T](cfg); err != nil {
		return Response[T]{}, err
	}
	return callParsed[T](ctx, cfg, cfg.buildRequest(prompt))
}

// CallMessagesParse combines CallMessages with structured output parsing.
func CallMessagesParse[T any](ctx context.Context, messages []Message, opts ...Option) (Response[T], error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	if err := withSchema[T](cfg); err != nil {
		return Response[T]{}, err
	}
	return callParsed[T](ctx, cfg, cfg.buildRequestFromMessages(messages))
}

// Embed turns texts into vectors using an embedding-capable provider.
//
//	vecs, err := llm.Embed(ctx, []string{"Title: Heat"},
//	    llm.WithProvider("openai"),
//	    llm.WithModel("text-embedding-ada-002"),
//	)
func Embed(ctx context.Context, texts []string, opts ...Option) ([][]float32, error) {
	cfg := newCallConfig()
	cfg.apply(opts...)

	p, err := cfg.provider()
	if err != nil {
		return nil, err
	}

	e, ok := p.(provider.Embedder)
	if !ok {
		return nil, ErrEmbeddingsUnsupported
	}

	resp, err := e.Embed(ctx, &provider.EmbeddingRequest{
		Model: cfg.model,
		Input: texts,
	})
	if err != nil {
		return nil, wrapProviderError(p.Name(), err)
	}
	return resp.Vectors, nil
}

func withSchema[T any](cfg *callConfig) error {
	jsonSchema, err := schema.Generate[T]()
	if err != nil {
		return err
	}
	cfg.jsonSchema = &provider.JSONSchema{
		Name:   schema.Name[T](),
		Strict: true,
		Schema: jsonSchema,
	}
	return nil
}

func callParsed[T any](ctx context.Context, cfg *callConfig, req *provider.Request) (Response[T], error) {
	resp, req, err := cfg.call(ctx, req)
	if err != nil {
		return Response[T]{}, err
	}

	var parsed T
	parseErr := json.Unmarshal([]byte(resp.Content), &parsed)
	if parseErr != nil {
		parseErr = &ParseError{
			Content: resp.Content,
			Target:  cfg.jsonSchema.Name,
			Cause:   parseErr,
		}
	}

	return newResponse(resp, parsed, true, parseErr, req.Messages), nil
}

// provider resolves the configured provider.
func (c *callConfig) provider() (provider.Provider, error) {
	if c.providerName == "" {
		return nil, ErrProviderRequired
	}
	if c.model == "" {
		return nil, ErrModelRequired
	}
	return provider.Get(c.providerName)
}

// call sends req to the configured provider.
func (c *callConfig) call(ctx context.Context, req *provider.Request) (*provider.Response, *provider.Request, error) {
	p, err := c.provider()
	if err != nil {
		return nil, nil, err
	}

	resp, err := p.Call(ctx, req)
	if err != nil {
		return nil, nil, wrapProviderError(p.Name(), err)
	}
	return resp, req, nil
}

// wrapProviderError attaches the provider name and, when the provider
// reports one, the HTTP status.
func wrapProviderError(name string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	pe := &ProviderError{Provider: name, Message: "call failed", Cause: err}
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) {
		pe.StatusCode = sc.HTTPStatus()
	}
	return pe
}
