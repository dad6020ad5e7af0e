// config.go defines the sink configuration surface.

package evsink

import (
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted in Config.Backend.
const (
	BackendElasticsearch = "elasticsearch"
	BackendOpenSearch    = "opensearch"
	BackendCXDB          = "cxdb"
	BackendMemory        = "memory"
)

// DefaultCollection is used for events without a type tag.
const DefaultCollection = "events"

// Config is the sink configuration. It is read on every event and must not
// be changed after the sink is built.
type Config struct {
	// Backend selects the store implementation (default: elasticsearch).
	Backend string `yaml:"backend" envconfig:"BACKEND"`

	// Endpoint is the store URL (cxdb: host:port).
	Endpoint string `yaml:"endpoint_url" envconfig:"ENDPOINT_URL"`

	// Username and Password authenticate against the store.
	Username string `yaml:"username" envconfig:"USERNAME"`
	Password string `yaml:"password" envconfig:"PASSWORD"`

	// Collection is the fallback collection for events with an empty type tag.
	Collection string `yaml:"collection" envconfig:"COLLECTION"`

	// MaxRetries is the number of retries after the first attempt for
	// transient failures.
	MaxRetries int `yaml:"max_retries" envconfig:"MAX_RETRIES"`

	// StoreEnabled turns storage on or off. Nil means on.
	StoreEnabled *bool `yaml:"store_enabled" envconfig:"STORE_ENABLED"`

	// CXDBClientTag tags the cxdb contexts created by the sink.
	CXDBClientTag string `yaml:"cxdb_client_tag" envconfig:"CXDB_CLIENT_TAG"`
}

// DefaultConfig returns a configuration storing to a local Elasticsearch.
func DefaultConfig() Config {
	enabled := true
	return Config{
		Backend:      BackendElasticsearch,
		Endpoint:     "http://localhost:9200",
		Collection:   DefaultCollection,
		StoreEnabled: &enabled,
	}
}

// WithDefaults fills unset fields with their defaults.
func (c Config) WithDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendElasticsearch
	}
	if c.Collection == "" {
		c.Collection = DefaultCollection
	}
	return c
}

// Storing reports whether storage is enabled.
func (c Config) Storing() bool {
	return c.StoreEnabled == nil || *c.StoreEnabled
}

// Validate checks the configuration for values the sink cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries))
	}
	switch strings.ToLower(c.Backend) {
	case "", BackendElasticsearch, BackendOpenSearch, BackendCXDB:
		if c.Storing() && c.Endpoint == "" {
			errs = append(errs, errors.New("endpoint_url is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}
	if (c.Username == "") != (c.Password == "") {
		errs = append(errs, errors.New("username and password must be set together"))
	}
	return errors.Join(errs...)
}

// String describes the configuration without credentials.
func (c Config) String() string {
	return fmt.Sprintf("backend=%s endpoint=%s user=%q collection=%s max_retries=%d store_enabled=%t",
		c.Backend, RedactURL(c.Endpoint), c.Username, c.Collection, c.MaxRetries, c.Storing())
}
