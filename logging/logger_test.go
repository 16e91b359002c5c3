package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureJSON(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: level, Format: "json", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })
	return &buf
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.WarnLevel},
		{"", zerolog.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInit_LevelFilters(t *testing.T) {
	buf := captureJSON(t, "warn")

	Info().Msg("hidden")
	Warn().Str("title", "Heat").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "Heat", entry["title"])
	assert.Equal(t, "warn", entry["level"])
}

func TestCtx_AttachesQueryID(t *testing.T) {
	buf := captureJSON(t, "debug")

	ctx := WithQueryID(context.Background())
	id := QueryID(ctx)
	require.NotEmpty(t, id)

	Ctx(ctx).Debug().Msg("retrieving")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, id, entry["query_id"])
}

func TestQueryID_Missing(t *testing.T) {
	assert.Empty(t, QueryID(context.Background()))
	assert.NotEqual(t, QueryID(WithQueryID(context.Background())), QueryID(WithQueryID(context.Background())))
}
