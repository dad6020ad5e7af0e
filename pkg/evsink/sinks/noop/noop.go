// Package noop provides a sink that discards all events.
// Useful for tests and for hosts that run with storage compiled out.
package noop

import (
	"context"

	"github.com/strongdm/event-sink/pkg/evsink"
)

type noopSink struct{}

// NewNoopSink creates a sink that discards all events.
func NewNoopSink() evsink.Sink {
	return noopSink{}
}

func (noopSink) Handle(context.Context, evsink.Event) {}

func (noopSink) Flush(context.Context) error {
	return nil
}

func (noopSink) Close() error {
	return nil
}
