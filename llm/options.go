package llm

import "github.com/i2y/moviemood/provider"

// Option configures a model call.
type Option func(*callConfig)

type callConfig struct {
	providerName  string
	model         string
	temperature   *float64
	maxTokens     *int
	topP          *float64
	seed          *int
	stopSequences []string
	systemMessage string
	messages      []Message
	jsonSchema    *provider.JSONSchema
}

func newCallConfig() *callConfig {
	return &callConfig{}
}

func (c *callConfig) apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// WithProvider sets the provider (e.g., "openai").
func WithProvider(name string) Option {
	return func(c *callConfig) {
		c.providerName = name
	}
}

// WithModel sets the model to use (e.g., "gpt-3.5-turbo").
func WithModel(name string) Option {
	return func(c *callConfig) {
		c.model = name
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *callConfig) {
		c.temperature = &t
	}
}

// WithMaxTokens sets the maximum tokens in the response.
func WithMaxTokens(n int) Option {
	return func(c *callConfig) {
		c.maxTokens = &n
	}
}

// WithTopP sets the nucleus sampling parameter (0.0 to 1.0).
func WithTopP(p float64) Option {
	return func(c *callConfig) {
		c.topP = &p
	}
}

// WithSeed sets a random seed for reproducibility.
func WithSeed(seed int) Option {
	return func(c *callConfig) {
		c.seed = &seed
	}
}

// WithStopSequences sets stop sequences to end generation.
func WithStopSequences(seqs ...string) Option {
	return func(c *callConfig) {
		c.stopSequences = seqs
	}
}

// WithSystemMessage prepends a system message to prompt-style calls.
func WithSystemMessage(msg string) Option {
	return func(c *callConfig) {
		c.systemMessage = msg
	}
}

// WithMessages sets conversation history placed before the prompt.
func WithMessages(msgs ...Message) Option {
	return func(c *callConfig) {
		c.messages = append(c.messages, msgs...)
	}
}

func (c *callConfig) baseRequest() *provider.Request {
	return &provider.Request{
		Model:         c.model,
		Temperature:   c.temperature,
		MaxTokens:     c.maxTokens,
		TopP:          c.topP,
		Seed:          c.seed,
		StopSequences: c.stopSequences,
		JSONSchema:    c.jsonSchema,
	}
}

// buildRequest creates a provider.Request from the config and prompt.
func (c *callConfig) buildRequest(prompt string) *provider.Request {
	req := c.baseRequest()

	if c.systemMessage != "" {
		req.Messages = append(req.Messages, SystemMessage(c.systemMessage))
	}
	req.Messages = append(req.Messages, c.messages...)
	if prompt != "" {
		req.Messages = append(req.Messages, UserMessage(prompt))
	}

	return req
}

// buildRequestFromMessages creates a provider.Request from messages.
func (c *callConfig) buildRequestFromMessages(messages []Message) *provider.Request {
	req := c.baseRequest()
	req.Messages = messages
	return req
}
