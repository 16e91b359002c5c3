package prompt

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name            string
		input           string
		wantFrontmatter string
		wantBody        string
	}{
		{
			name:            "with frontmatter",
			input:           "---\nname: x\n---\nHello {{.Name}}.\n",
			wantFrontmatter: "name: x",
			wantBody:        "Hello {{.Name}}.",
		},
		{
			name:     "no frontmatter",
			input:    "Just a body.",
			wantBody: "Just a body.",
		},
		{
			name:     "unclosed frontmatter",
			input:    "---\nname: x\nbody",
			wantBody: "---\nname: x\nbody",
		},
		{
			name:  "empty",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm, body, err := parseFrontmatter([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrontmatter, string(fm))
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestLoad_Builtins(t *testing.T) {
	for _, name := range []string{Recommend, MultiQuery, QASystem} {
		t.Run(name, func(t *testing.T) {
			tmpl, err := Load(name)
			require.NoError(t, err)
			assert.Equal(t, name, tmpl.Name)
			assert.NotEmpty(t, tmpl.Description)
		})
	}

	_, err := Load("nope")
	assert.Error(t, err)
}

func TestRecommendPrompt(t *testing.T) {
	out, err := MustLoad(Recommend).Render(map[string]any{"Query": "I feel nostalgic"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "You are a movie recommendation assistant. Based on the user's input, recommend 3-5 movies"))
	assert.Contains(t, out, "(without markdown):\n- Title: The name of the movie.\n")
	assert.True(t, strings.HasSuffix(out, "- Rating: The average rating of the movie.\nUser input: I feel nostalgic"))
}

func TestMultiQueryPrompt(t *testing.T) {
	tmpl := MustLoad(MultiQuery)
	require.NotNil(t, tmpl.Temperature)
	assert.Zero(t, *tmpl.Temperature)

	out, err := tmpl.Render(map[string]any{"Count": 3, "Question": "sad films"})
	require.NoError(t, err)
	assert.Contains(t, out, "generate 3 different versions")
	assert.True(t, strings.HasSuffix(out, "Original question: sad films"))
}

func TestQASystemPrompt(t *testing.T) {
	out, err := MustLoad(QASystem).Render(map[string]any{"Context": "Title: Heat"})
	require.NoError(t, err)

	want := "Use the following pieces of context to answer the user's question. \n" +
		"If you don't know the answer, just say that you don't know, don't try to make up an answer.\n" +
		"----------------\n" +
		"Title: Heat"
	assert.Equal(t, want, out)
}

func TestRender_MissingKey(t *testing.T) {
	_, err := MustLoad(Recommend).Render(map[string]any{})
	assert.ErrorContains(t, err, `rendering prompt "recommend"`)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"p/greet.md": {Data: []byte("---\ndescription: says hi\ntemperature: 0.7\n---\nHi {{.}}")},
		"p/bad.md":   {Data: []byte("---\ndescription: [unclosed\n---\nbody")},
		"p/tmpl.md":  {Data: []byte("Hi {{.")},
	}

	tmpl, err := LoadFS(fsys, "p", "greet")
	require.NoError(t, err)
	assert.Equal(t, "greet", tmpl.Name)
	assert.Equal(t, "says hi", tmpl.Description)
	require.NotNil(t, tmpl.Temperature)
	assert.InDelta(t, 0.7, *tmpl.Temperature, 1e-9)

	out, err := tmpl.Render("there")
	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)

	_, err = LoadFS(fsys, "p", "bad")
	assert.ErrorContains(t, err, "frontmatter")

	_, err = LoadFS(fsys, "p", "tmpl")
	assert.ErrorContains(t, err, "body")
}
