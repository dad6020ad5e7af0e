// Package multi provides a sink that fans out to multiple sinks.
// Every sink receives every event; Flush and Close errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// multiSink fans out to multiple sinks.
type multiSink struct {
	sinks []evsink.Sink
}

// NewMultiSink creates a sink that hands each event to every sink, in order.
// A sink that disables itself does not affect the others.
func NewMultiSink(sinks ...evsink.Sink) evsink.Sink {
	return &multiSink{
		sinks: sinks,
	}
}

func (s *multiSink) Handle(ctx context.Context, event evsink.Event) {
	for _, sink := range s.sinks {
		sink.Handle(ctx, event)
	}
}

// Flush calls Flush on all sinks, collecting any errors.
func (s *multiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on all sinks, collecting any errors.
func (s *multiSink) Close() error {
	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
