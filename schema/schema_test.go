package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pick struct {
	Title  string   `json:"title" jsonschema:"required,description=Movie title"`
	Genres []string `json:"genres" jsonschema:"required"`
	Year   string   `json:"year,omitempty"`
}

type shortlist struct {
	Picks []pick `json:"picks" jsonschema:"required"`
}

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestGenerate(t *testing.T) {
	raw, err := Generate[pick]()
	require.NoError(t, err)

	s := decode(t, raw)
	assert.Equal(t, "object", s["type"])

	props := s["properties"].(map[string]any)
	for _, name := range []string{"title", "genres", "year"} {
		assert.Contains(t, props, name)
	}
	assert.ElementsMatch(t, []any{"title", "genres"}, s["required"])

	title := props["title"].(map[string]any)
	assert.Equal(t, "Movie title", title["description"])
}

func TestGenerate_NestedIsInlined(t *testing.T) {
	raw, err := Generate[shortlist]()
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "$ref")
	assert.NotContains(t, string(raw), "$defs")

	s := decode(t, raw)
	picks := s["properties"].(map[string]any)["picks"].(map[string]any)
	assert.Equal(t, "array", picks["type"])
	items := picks["items"].(map[string]any)
	assert.Equal(t, "object", items["type"])
}

func TestGenerateFromValue(t *testing.T) {
	raw, err := GenerateFromValue(&pick{})
	require.NoError(t, err)

	want, err := Generate[pick]()
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(raw))
}

func TestMustGenerate(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = MustGenerate[shortlist]()
	})
}

func TestName(t *testing.T) {
	assert.Equal(t, "pick", Name[pick]())
	assert.Equal(t, "shortlist", Name[*shortlist]())
	assert.Equal(t, "response", Name[struct{ A int }]())
}
