// Package opensearch provides a store that upserts events into OpenSearch.
package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	"github.com/sirupsen/logrus"

	"github.com/strongdm/event-sink/pkg/evsink"
	"github.com/strongdm/event-sink/pkg/evsink/stores/elastic"
)

// Config configures the OpenSearch store.
type Config struct {
	// Endpoint is the OpenSearch URL. Several URLs may be given,
	// separated by commas.
	Endpoint string

	// Username and Password are sent as basic auth on every request.
	Username string
	Password string

	// Transport overrides the HTTP transport (used in tests).
	Transport http.RoundTripper

	// Logger receives a line per HTTP round trip at debug level.
	Logger logrus.FieldLogger
}

// Store upserts documents with the Index API.
type Store struct {
	client *opensearch.Client
}

var _ evsink.Store = (*Store)(nil)

// NewStore creates an OpenSearch store.
func NewStore(cfg Config) (*Store, error) {
	osCfg := opensearch.Config{
		Addresses:    addresses(cfg.Endpoint),
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		DisableRetry: true,
	}
	if cfg.Logger != nil {
		osCfg.Logger = &elastic.RoundTripLogger{Logger: cfg.Logger}
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}
	return &Store{client: client}, nil
}

// Upsert indexes the document under the given id.
func (s *Store) Upsert(ctx context.Context, collection, id string, doc evsink.Record) (evsink.Ack, error) {
	index, err := elastic.IndexName(collection)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "index", Err: err}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "index", Err: fmt.Errorf("encode document: %w", err)}
	}

	req := opensearchapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "index", Unreachable: elastic.IsConnectionError(ctx, err), Err: err}
	}
	defer res.Body.Close()

	return elastic.AckFromResponse("index", res.StatusCode, res.IsError(), res.Body)
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func addresses(endpoint string) []string {
	var out []string
	for _, addr := range strings.Split(endpoint, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
