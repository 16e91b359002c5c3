package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/moviemood/provider"
)

// scriptedProvider replies with a fixed body and records the last request.
type scriptedProvider struct {
	reply   string
	err     error
	last    *provider.Request
	vectors [][]float32
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Call(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &provider.Response{
		Content:      s.reply,
		FinishReason: provider.FinishReasonStop,
		Usage:        provider.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7},
	}, nil
}

type scriptedEmbedder struct {
	scriptedProvider
	lastEmbed *provider.EmbeddingRequest
}

func (s *scriptedEmbedder) Embed(ctx context.Context, req *provider.EmbeddingRequest) (*provider.EmbeddingResponse, error) {
	s.lastEmbed = req
	if s.err != nil {
		return nil, s.err
	}
	return &provider.EmbeddingResponse{Vectors: s.vectors}, nil
}

func register(t *testing.T, name string, p provider.Provider) {
	t.Helper()
	provider.Register(name, func() (provider.Provider, error) { return p, nil })
}

type statusErr struct{ code int }

func (e *statusErr) Error() string   { return "http failure" }
func (e *statusErr) HTTPStatus() int { return e.code }

type moviePick struct {
	Title  string   `json:"title" jsonschema:"required"`
	Genres []string `json:"genres"`
}

func TestCall_RequiresProviderAndModel(t *testing.T) {
	_, err := Call(context.Background(), "hi", WithModel("m"))
	assert.ErrorIs(t, err, ErrProviderRequired)

	_, err = Call(context.Background(), "hi", WithProvider("p"))
	assert.ErrorIs(t, err, ErrModelRequired)
}

func TestCall(t *testing.T) {
	p := &scriptedProvider{reply: "Try Amélie."}
	register(t, "test-call", p)

	resp, err := Call(context.Background(), "I feel whimsical",
		WithProvider("test-call"),
		WithModel("gpt-3.5-turbo"),
		WithTemperature(0),
		WithSystemMessage("You recommend movies."),
	)
	require.NoError(t, err)

	assert.Equal(t, "Try Amélie.", resp.Text())
	assert.Equal(t, FinishReasonStop, resp.FinishReason())
	assert.Equal(t, Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}, resp.Usage())

	_, err = resp.Parsed()
	assert.ErrorIs(t, err, ErrNotParsed)

	require.Len(t, p.last.Messages, 2)
	assert.Equal(t, RoleSystem, p.last.Messages[0].Role)
	assert.Equal(t, "I feel whimsical", p.last.Messages[1].Content)
	require.NotNil(t, p.last.Temperature)
	assert.Zero(t, *p.last.Temperature)
	assert.Nil(t, p.last.JSONSchema)

	msgs := resp.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, AssistantMessage("Try Amélie."), msgs[2])
}

func TestCall_ProviderErrorIsWrapped(t *testing.T) {
	p := &scriptedProvider{err: &statusErr{code: 401}}
	register(t, "test-fail", p)

	_, err := Call(context.Background(), "x", WithProvider("test-fail"), WithModel("m"))

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "scripted", pe.Provider)
	assert.Equal(t, 401, pe.StatusCode)
}

func TestCall_ContextErrorsPassThrough(t *testing.T) {
	p := &scriptedProvider{err: context.DeadlineExceeded}
	register(t, "test-deadline", p)

	_, err := Call(context.Background(), "x", WithProvider("test-deadline"), WithModel("m"))

	var pe *ProviderError
	assert.False(t, errors.As(err, &pe))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallMessagesParse(t *testing.T) {
	p := &scriptedProvider{reply: `{"title": "Paddington 2", "genres": ["Comedy", "Family"]}`}
	register(t, "test-parse", p)

	resp, err := CallMessagesParse[moviePick](context.Background(),
		[]Message{SystemMessage("ctx"), UserMessage("cheer me up")},
		WithProvider("test-parse"), WithModel("m"),
	)
	require.NoError(t, err)

	pick, err := resp.Parsed()
	require.NoError(t, err)
	assert.Equal(t, moviePick{Title: "Paddington 2", Genres: []string{"Comedy", "Family"}}, pick)

	require.NotNil(t, p.last.JSONSchema)
	assert.Equal(t, "moviePick", p.last.JSONSchema.Name)
	assert.True(t, p.last.JSONSchema.Strict)
	assert.Contains(t, string(p.last.JSONSchema.Schema), `"title"`)
}

func TestCallParse_InvalidJSON(t *testing.T) {
	p := &scriptedProvider{reply: "Title: Paddington 2"}
	register(t, "test-badjson", p)

	resp, err := CallParse[moviePick](context.Background(), "cheer me up",
		WithProvider("test-badjson"), WithModel("m"))
	require.NoError(t, err)

	_, err = resp.Parsed()
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Title: Paddington 2", pe.Content)
	assert.Equal(t, "moviePick", pe.Target)
	assert.Panics(t, func() { resp.MustParse() })
}

func TestEmbed(t *testing.T) {
	e := &scriptedEmbedder{}
	e.vectors = [][]float32{{1, 2}, {3, 4}}
	register(t, "test-embed", e)

	vecs, err := Embed(context.Background(), []string{"a", "b"},
		WithProvider("test-embed"), WithModel("text-embedding-ada-002"))
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{1, 2}, {3, 4}}, vecs)
	assert.Equal(t, "text-embedding-ada-002", e.lastEmbed.Model)
	assert.Equal(t, []string{"a", "b"}, e.lastEmbed.Input)
}

func TestEmbed_Unsupported(t *testing.T) {
	register(t, "test-chat-only", &scriptedProvider{})

	_, err := Embed(context.Background(), []string{"a"},
		WithProvider("test-chat-only"), WithModel("m"))
	assert.ErrorIs(t, err, ErrEmbeddingsUnsupported)
}

func TestModel(t *testing.T) {
	p := &scriptedEmbedder{}
	p.reply = `{"title": "Heat"}`
	p.vectors = [][]float32{{0.5}}
	register(t, "test-model", p)

	m := NewModel("test-model", "base-model", WithTemperature(0.7))
	assert.Equal(t, "test-model", m.Provider())
	assert.Equal(t, "base-model", m.Name())

	_, err := m.Call(context.Background(), "hi", WithTemperature(0))
	require.NoError(t, err)
	assert.Equal(t, "base-model", p.last.Model)
	assert.Zero(t, *p.last.Temperature, "per-call option overrides base")

	resp, err := ParseMessages[moviePick](context.Background(), m, []Message{UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "Heat", resp.MustParse().Title)
	assert.InDelta(t, 0.7, *p.last.Temperature, 1e-9)

	vecs, err := m.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.5}}, vecs)
}
