// context.go lets callers route documents into an existing cxdb context
// through context.Context.

package cxdb

import "context"

type contextIDKey struct{}

// contextIDSet is used to distinguish "zero value" from "not set"
type contextIDSet struct {
	id uint64
}

// WithContextID returns a context that makes Upsert append to the given cxdb
// context instead of the collection's own context.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextIDSet{id: contextID})
}

// ContextIDFromContext extracts the cxdb context ID from context.
// Returns 0 and false if not set.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	set, ok := ctx.Value(contextIDKey{}).(contextIDSet)
	if !ok {
		return 0, false
	}
	return set.id, true
}
