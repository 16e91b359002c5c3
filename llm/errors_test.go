package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderError(t *testing.T) {
	tests := []struct {
		name string
		err  *ProviderError
		want string
	}{
		{
			name: "with status and cause",
			err: &ProviderError{
				Provider:   "openai",
				StatusCode: 429,
				Message:    "call failed",
				Cause:      errors.New("rate limited"),
			},
			want: "openai error (status 429): call failed: rate limited",
		},
		{
			name: "without status",
			err: &ProviderError{
				Provider: "openai",
				Message:  "call failed",
				Cause:    errors.New("connection refused"),
			},
			want: "openai error: call failed: connection refused",
		},
		{
			name: "without cause",
			err:  &ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"},
			want: "openai error (status 500): boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestProviderError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &ProviderError{Provider: "test", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Nil(t, errors.Unwrap(&ProviderError{Provider: "test"}))
}

func TestParseError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &ParseError{
		Content: `{"recommendations": [`,
		Target:  "Shortlist",
		Cause:   cause,
	}

	assert.Contains(t, err.Error(), "Shortlist")
	assert.Contains(t, err.Error(), "unexpected end of JSON input")
	assert.ErrorIs(t, err, cause)
}

func TestCommonErrors(t *testing.T) {
	assert.Contains(t, ErrProviderRequired.Error(), "provider")
	assert.Contains(t, ErrModelRequired.Error(), "model")
	assert.Contains(t, ErrNotParsed.Error(), "parsed")
	assert.Contains(t, ErrEmbeddingsUnsupported.Error(), "embeddings")
}
