// Package trace generates unique identifiers, carried in a context, so log
// lines for the same unit of work can be correlated; the server tags each
// command it services with one.
package trace

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

var traceIDKey = contextKey{}

// ID is a unique trace identifier.
type ID string

// NewID generates a new unique trace ID.
func NewID() ID {
	return ID(uuid.New().String())
}

// WithTraceID returns a new context carrying the given trace ID.
func WithTraceID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, traceIDKey, id)
}

// FromContext retrieves the trace ID from ctx, or "" if none is present.
func FromContext(ctx context.Context) ID {
	id, ok := ctx.Value(traceIDKey).(ID)
	if !ok {
		return ""
	}

	return id
}

// String returns the string form of the trace ID.
func (id ID) String() string {
	return string(id)
}
