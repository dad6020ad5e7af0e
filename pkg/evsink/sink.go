// sink.go defines the Sink interface implemented by EventSink and its wrappers.

package evsink

import "context"

// Sink is the destination for events.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Handle persists an event. It never reports failures to the caller;
	// they go to the sink's logger and Observer instead.
	Handle(ctx context.Context, event Event)

	// Flush ensures any buffered events are persisted.
	// For synchronous sinks, this may be a no-op.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}
