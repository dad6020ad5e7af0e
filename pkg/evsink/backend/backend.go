// Package backend builds the evsink.Store named by a configuration.
package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/strongdm/event-sink/pkg/evsink"
	"github.com/strongdm/event-sink/pkg/evsink/stores/cxdb"
	"github.com/strongdm/event-sink/pkg/evsink/stores/elastic"
	"github.com/strongdm/event-sink/pkg/evsink/stores/memory"
	"github.com/strongdm/event-sink/pkg/evsink/stores/opensearch"
)

// Option configures Open.
type Option func(*openOptions)

type openOptions struct {
	logger    logrus.FieldLogger
	transport http.RoundTripper
}

// WithLogger sets the logger for HTTP round-trip logging.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *openOptions) {
		o.logger = logger
	}
}

// WithTransport overrides the HTTP transport of the HTTP stores.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *openOptions) {
		o.transport = rt
	}
}

// Open validates cfg and returns the store for cfg.Backend.
// For cxdb this dials the server.
func Open(cfg evsink.Config, opts ...Option) (evsink.Store, error) {
	o := &openOptions{logger: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(o)
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch strings.ToLower(cfg.Backend) {
	case evsink.BackendElasticsearch:
		store, err := elastic.NewStore(elastic.Config{
			Endpoint:  cfg.Endpoint,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: o.transport,
			Logger:    o.logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case evsink.BackendOpenSearch:
		store, err := opensearch.NewStore(opensearch.Config{
			Endpoint:  cfg.Endpoint,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: o.transport,
			Logger:    o.logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case evsink.BackendCXDB:
		store, err := cxdb.Dial(cfg.Endpoint, cxdb.WithClientTag(cfg.CXDBClientTag))
		if err != nil {
			return nil, err
		}
		return store, nil
	case evsink.BackendMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
