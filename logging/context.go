package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type queryIDKey struct{}

// WithQueryID returns a context carrying a fresh query correlation ID.
func WithQueryID(ctx context.Context) context.Context {
	return context.WithValue(ctx, queryIDKey{}, uuid.NewString())
}

// QueryID returns the correlation ID stored in ctx, or "".
func QueryID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(queryIDKey{}).(string)
	return id
}

// Ctx returns the global logger with the query ID of ctx attached.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := QueryID(ctx); id != "" {
		l = l.With().Str("query_id", id).Logger()
	}
	return &l
}
