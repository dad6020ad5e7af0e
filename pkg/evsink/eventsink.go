// eventsink.go provides EventSink, which drives each event through the
// writer and the retry policy and owns the disabled latch.

package evsink

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Option configures an EventSink.
type Option func(*sinkOptions)

type sinkOptions struct {
	store      Store
	logger     logrus.FieldLogger
	observer   Observer
	identity   Identity
	scrubber   *Scrubber
	newBackOff func() backoff.BackOff
}

// WithStore sets the remote document store.
func WithStore(store Store) Option {
	return func(o *sinkOptions) {
		o.store = store
	}
}

// WithLogger sets the logger used to report failures and state changes.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *sinkOptions) {
		o.logger = logger
	}
}

// WithObserver sets an Observer for metrics.
func WithObserver(observer Observer) Option {
	return func(o *sinkOptions) {
		o.observer = observer
	}
}

// WithIdentity overrides the random sink identity. Two sinks sharing an
// identity deduplicate each other's events.
func WithIdentity(id Identity) Option {
	return func(o *sinkOptions) {
		o.identity = id
	}
}

// WithScrubber configures how failure messages are scrubbed before logging.
// The configured password is always added to the secrets.
func WithScrubber(cfg ScrubberConfig) Option {
	return func(o *sinkOptions) {
		o.scrubber = NewScrubber(cfg)
	}
}

// WithBackoff waits between retries of the same event. newBackOff is called
// once per event. By default retries run back to back.
func WithBackoff(newBackOff func() backoff.BackOff) Option {
	return func(o *sinkOptions) {
		o.newBackOff = newBackOff
	}
}

// EventSink persists events through a Store, retrying transient failures
// and disabling itself on failures that retrying cannot fix.
type EventSink struct {
	cfg        Config
	store      Store
	writer     *Writer
	policy     RetryPolicy
	identity   Identity
	logger     logrus.FieldLogger
	observer   Observer
	scrubber   *Scrubber
	newBackOff func() backoff.BackOff

	disabled atomic.Bool
}

var _ Sink = (*EventSink)(nil)

// New creates an EventSink from the configuration and options.
func New(cfg Config, opts ...Option) *EventSink {
	cfg = cfg.WithDefaults()
	o := &sinkOptions{}
	for _, opt := range opts {
		opt(o)
	}

	// Default to a store that discards everything if none provided
	if o.store == nil {
		o.store = discardStore{}
	}
	if o.logger == nil {
		o.logger = logrus.StandardLogger()
	}
	if o.observer == nil {
		o.observer = noopObserver{}
	}
	if o.identity == "" {
		o.identity = NewIdentity()
	}
	if o.scrubber == nil {
		o.scrubber = NewScrubber(DefaultScrubberConfig())
	}
	if cfg.Password != "" {
		o.scrubber.cfg.Secrets = append(o.scrubber.cfg.Secrets, cfg.Password)
	}

	return &EventSink{
		cfg:        cfg,
		store:      o.store,
		writer:     NewWriter(o.store, o.identity, cfg.Collection),
		policy:     NewRetryPolicy(cfg.MaxRetries),
		identity:   o.identity,
		logger:     o.logger.WithFields(logrus.Fields{"component": "evsink", "sink_id": o.identity.String()}),
		observer:   o.observer,
		scrubber:   o.scrubber,
		newBackOff: o.newBackOff,
	}
}

// Identity returns the identity namespacing this sink's document ids.
func (s *EventSink) Identity() Identity {
	return s.identity
}

// Disabled reports whether the sink has disabled itself.
// Once true it stays true for the life of the sink.
func (s *EventSink) Disabled() bool {
	return s.disabled.Load()
}

// Handle stores the event, retrying transient failures.
// It never returns an error and never panics; failures are logged and
// reported to the Observer.
func (s *EventSink) Handle(ctx context.Context, event Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", formatRecovered(r)).Error("Recovered panic while handling event")
		}
	}()

	if event == nil {
		s.logger.Warn("Ignoring nil event")
		return
	}

	collection := s.writer.CollectionFor(event)

	if s.disabled.Load() {
		s.logger.WithField("type", event.TypeTag()).Debug("Sink is disabled, dropping event")
		s.observer.ObserveOutcome(collection, OutcomeSkippedDisabled)
		return
	}
	if !s.cfg.Storing() {
		s.logger.WithField("type", event.TypeTag()).Debug("Storing is turned off, skipping event")
		s.observer.ObserveOutcome(collection, OutcomeSkippedStoreOff)
		return
	}

	log := s.logger.WithFields(logrus.Fields{
		"type":        event.TypeTag(),
		"collection":  collection,
		"document_id": DocumentID(s.identity, event),
	})

	var bo backoff.BackOff
	if s.newBackOff != nil {
		bo = s.newBackOff()
		bo.Reset()
	}

	for attempt := 0; attempt < s.policy.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Context done, abandoning event")
			s.observer.ObserveOutcome(collection, OutcomeAbandoned)
			return
		}

		ack, err := s.writer.Write(ctx, event)
		s.observer.ObserveAttempt(collection, err)
		if err == nil {
			log.WithFields(logrus.Fields{"attempt": attempt + 1, "ack": ack.String()}).Debug("Stored event")
			s.observer.ObserveOutcome(collection, OutcomeStored)
			return
		}

		// The caller's deadline or cancellation is not a store condition. Only
		// the per-attempt WriteTimeout counts as a transient failure.
		if ctx.Err() != nil {
			log.WithError(ctx.Err()).WithField("attempt", attempt+1).Warn("Context done during write, abandoning event")
			s.observer.ObserveOutcome(collection, OutcomeAbandoned)
			return
		}

		kind := Classify(err)
		entry := log.WithFields(logrus.Fields{
			"attempt":  attempt + 1,
			"attempts": s.policy.Attempts,
			"kind":     kind.String(),
			"error":    s.scrubber.ScrubError(err),
		})

		switch s.policy.Decide(kind, attempt) {
		case DecisionRetry:
			entry.Warn("Write failed, retrying")
			if !s.wait(ctx, bo) {
				log.WithError(ctx.Err()).Warn("Context done while waiting to retry, abandoning event")
				s.observer.ObserveOutcome(collection, OutcomeAbandoned)
				return
			}
		case DecisionAbort:
			entry.Error("Write failed with an unrecognized error, abandoning event")
			s.observer.ObserveOutcome(collection, OutcomeAbandoned)
			return
		case DecisionDisable:
			s.disable(entry, kind)
			s.observer.ObserveOutcome(collection, OutcomeDisabled)
			return
		}
	}
}

// disable latches the sink. Only the first transition is reported at error level.
func (s *EventSink) disable(entry logrus.FieldLogger, kind ErrorKind) {
	if !s.disabled.CompareAndSwap(false, true) {
		entry.Warn("Write failed after the sink was disabled")
		return
	}
	entry.WithField("reason", disableReason(kind)).
		Error("Disabling sink: all further events will be dropped until restart")
	s.observer.ObserveDisabled(kind)
}

func disableReason(kind ErrorKind) string {
	switch kind {
	case KindUnauthorized:
		return "store rejected the credentials"
	case KindForbidden:
		return "credentials lack permission to write"
	case KindNotFound:
		return "store endpoint not found"
	case KindTransient:
		return "store unreachable, retries exhausted"
	default:
		return kind.String()
	}
}

// wait sleeps for the next backoff interval. It returns false if ctx is done first.
func (s *EventSink) wait(ctx context.Context, bo backoff.BackOff) bool {
	if bo == nil {
		return ctx.Err() == nil
	}
	d := bo.NextBackOff()
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Flush is a no-op: writes are synchronous.
func (s *EventSink) Flush(ctx context.Context) error {
	return nil
}

// Close releases the store.
func (s *EventSink) Close() error {
	return s.store.Close()
}

// discardStore is an internal store used when none is configured.
type discardStore struct{}

func (discardStore) Upsert(context.Context, string, string, Record) (Ack, error) {
	return AckCreated, nil
}

func (discardStore) Close() error {
	return nil
}
