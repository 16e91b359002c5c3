package llm

import "context"

// Model bundles a provider, a model name and default options.
//
//	chat := llm.NewModel("openai", "gpt-3.5-turbo", llm.WithTemperature(0))
//	resp, err := chat.Call(ctx, "Something to cheer me up")
type Model struct {
	providerName string
	modelName    string
	baseOpts     []Option
}

// NewModel creates a new Model with the given provider and model name.
func NewModel(providerName, modelName string, opts ...Option) *Model {
	return &Model{
		providerName: providerName,
		modelName:    modelName,
		baseOpts:     opts,
	}
}

// Provider returns the provider name.
func (m *Model) Provider() string {
	return m.providerName
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.modelName
}

// Call makes a prompt call using this model's configuration.
// Per-call options override the model's base options.
func (m *Model) Call(ctx context.Context, prompt string, opts ...Option) (Response[string], error) {
	return Call(ctx, prompt, m.mergeOptions(opts)...)
}

// CallMessages makes a call with message history using this model.
func (m *Model) CallMessages(ctx context.Context, messages []Message, opts ...Option) (Response[string], error) {
	return CallMessages(ctx, messages, m.mergeOptions(opts)...)
}

// Embed embeds texts with this model.
func (m *Model) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return Embed(ctx, texts, m.mergeOptions(nil)...)
}

// ParseMessages is CallMessagesParse bound to a Model. It is a function
// rather than a method because methods cannot take type parameters.
func ParseMessages[T any](ctx context.Context, m *Model, messages []Message, opts ...Option) (Response[T], error) {
	return CallMessagesParse[T](ctx, messages, m.mergeOptions(opts)...)
}

func (m *Model) mergeOptions(opts []Option) []Option {
	all := make([]Option, 0, len(m.baseOpts)+len(opts)+2)
	all = append(all, WithProvider(m.providerName), WithModel(m.modelName))
	all = append(all, m.baseOpts...)
	all = append(all, opts...)
	return all
}
