// Package stderr provides a sink that prints events to stderr in a
// human-readable format. Useful for development and debugging.
package stderr

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// StderrSinkOption configures the stderr sink.
type StderrSinkOption func(*stderrSinkConfig)

type stderrSinkConfig struct {
	verbose bool
	out     io.Writer
}

// WithVerbose prints every record field, not just the type and hash.
func WithVerbose() StderrSinkOption {
	return func(c *stderrSinkConfig) {
		c.verbose = true
	}
}

// WithOutput redirects the output (default: os.Stderr).
func WithOutput(w io.Writer) StderrSinkOption {
	return func(c *stderrSinkConfig) {
		if w != nil {
			c.out = w
		}
	}
}

type stderrSink struct {
	verbose bool
	logger  *logrus.Logger
}

// NewStderrSink creates a sink that writes to stderr.
func NewStderrSink(opts ...StderrSinkOption) evsink.Sink {
	cfg := &stderrSinkConfig{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}

	logger := logrus.New()
	logger.SetOutput(cfg.out)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})

	return &stderrSink{
		verbose: cfg.verbose,
		logger:  logger,
	}
}

// Handle prints one line per event: the uppercased type tag, the content
// hash and, in verbose mode, the record fields.
func (s *stderrSink) Handle(ctx context.Context, event evsink.Event) {
	if event == nil {
		return
	}

	fields := logrus.Fields{"hash": event.ContentHash()}
	if s.verbose {
		for k, v := range event.ToRecord() {
			fields["record."+k] = v
		}
	}

	s.logger.WithFields(fields).Info("[EVSINK] " + strings.ToUpper(event.TypeTag()))
}

// Flush is a no-op for stderr sink.
func (s *stderrSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for stderr sink.
func (s *stderrSink) Close() error {
	return nil
}
