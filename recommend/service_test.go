package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/moviemood/llm"
	"github.com/i2y/moviemood/provider"
	"github.com/i2y/moviemood/retrieval"
	"github.com/i2y/moviemood/vectorstore"
)

type fakeChat struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []*provider.Request
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) Call(_ context.Context, req *provider.Request) (*provider.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Content: f.reply}, nil
}

type catalogDocs struct{}

func (catalogDocs) Retrieve(context.Context, string) ([]vectorstore.Document, error) {
	return []vectorstore.Document{{Text: "Title: Inception"}, {Text: "Title: Up"}}, nil
}

type fakeEnricher struct {
	titles []string
}

func (f *fakeEnricher) Enrich(_ context.Context, titles []string) []string {
	f.titles = titles
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = "Service for " + t
	}
	return out
}

func newService(t *testing.T, chat *fakeChat, mode string) (*Service, *fakeEnricher) {
	t.Helper()
	name := "fake-" + t.Name()
	provider.Register(name, func() (provider.Provider, error) { return chat, nil })

	model := llm.NewModel(name, "gpt-test", llm.WithTemperature(0))
	enricher := &fakeEnricher{}
	return NewService(retrieval.NewChain(model, catalogDocs{}), enricher, mode), enricher
}

func TestNewService_Mode(t *testing.T) {
	s, _ := newService(t, &fakeChat{}, "")
	assert.Equal(t, ModeStructured, s.Mode())

	s, _ = newService(t, &fakeChat{}, ModeText)
	assert.Equal(t, ModeText, s.Mode())
}

func TestRecommend_Structured(t *testing.T) {
	chat := &fakeChat{reply: `{"recommendations": [
		{"title": "Inception", "description": "Dreams.", "why_recommended": "Uplifting.", "genres": ["Sci-Fi"], "release_year": "2010", "rating": "8.8"},
		{"title": "Up", "description": "Balloons.", "why_recommended": "Warm.", "genres": ["Animation"], "release_year": "2009", "rating": "8.3"}
	]}`}
	s, enricher := newService(t, chat, ModeStructured)

	recs, err := s.Recommend(context.Background(), "I feel adventurous")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Inception", recs[0].Movie.Title)
	assert.Equal(t, "Service for Inception", recs[0].Streaming)
	assert.Equal(t, "Service for Up", recs[1].Streaming)
	assert.Equal(t, []string{"Inception", "Up"}, enricher.titles)

	require.Len(t, chat.requests, 1)
	req := chat.requests[0]
	require.NotNil(t, req.JSONSchema)
	assert.Equal(t, "RecommendationList", req.JSONSchema.Name)
	user := req.Messages[len(req.Messages)-1].Content
	assert.True(t, strings.HasPrefix(user, "You are a movie recommendation assistant."))
	assert.True(t, strings.HasSuffix(user, "User input: I feel adventurous"))
}

func TestRecommend_Text(t *testing.T) {
	chat := &fakeChat{reply: twoBlocks}
	s, _ := newService(t, chat, ModeText)

	recs, err := s.Recommend(context.Background(), "cheer me up")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Up", recs[1].Movie.Title)
	assert.Equal(t, []string{"Animation", "Adventure"}, recs[1].Movie.Genres)
	assert.Nil(t, chat.requests[0].JSONSchema)
}

func TestRecommend_TextMalformedIsEmpty(t *testing.T) {
	chat := &fakeChat{reply: twoBlocks + "\n\nThat is all I have."}
	s, enricher := newService(t, chat, ModeText)

	recs, err := s.Recommend(context.Background(), "cheer me up")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Nil(t, enricher.titles)
}

func TestRecommend_StructuredSchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "Inception is great."},
		{"empty list", `{"recommendations": []}`},
		{"missing title", `{"recommendations": [{"title": "", "genres": ["Drama"]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, enricher := newService(t, &fakeChat{reply: tt.reply}, ModeStructured)

			_, err := s.Recommend(context.Background(), "anything")
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.NotEmpty(t, se.UserMessage())
			assert.Nil(t, enricher.titles)
		})
	}
}

func TestRecommend_ProviderError(t *testing.T) {
	boom := errors.New("boom")
	s, _ := newService(t, &fakeChat{err: boom}, ModeStructured)

	_, err := s.Recommend(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var se *SchemaError
	assert.False(t, errors.As(err, &se))
	var pe *llm.ProviderError
	assert.ErrorAs(t, err, &pe)
}
