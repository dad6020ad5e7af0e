// Package elastic provides a store that upserts events into Elasticsearch.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/sirupsen/logrus"

	"github.com/strongdm/event-sink/pkg/evsink"
)

// Config configures the Elasticsearch store.
type Config struct {
	// Endpoint is the Elasticsearch URL. Several URLs may be given,
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

// Store upserts documents with the Index API, using the document id so
// repeated writes replace rather than duplicate.
type Store struct {
	client *elasticsearch.Client
}

var _ evsink.Store = (*Store)(nil)

// NewStore creates an Elasticsearch store. No request is made until the
// first upsert.
func NewStore(cfg Config) (*Store, error) {
	esCfg := elasticsearch.Config{
		Addresses: splitAddresses(cfg.Endpoint),
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: cfg.Transport,
		// The sink owns retries; the client must make exactly one request per attempt.
		DisableRetry: true,
		// Check the product header on real responses instead of an extra GET / request.
		UseResponseCheckOnly: true,
	}
	if cfg.Logger != nil {
		esCfg.Logger = &RoundTripLogger{Logger: cfg.Logger}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewStoreFromClient wraps an existing client.
func NewStoreFromClient(client *elasticsearch.Client) *Store {
	return &Store{client: client}
}

// Upsert indexes the document under the given id.
func (s *Store) Upsert(ctx context.Context, collection, id string, doc evsink.Record) (evsink.Ack, error) {
	index, err := IndexName(collection)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "index", Err: err}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "index", Err: fmt.Errorf("encode document: %w", err)}
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return evsink.AckCreated, &evsink.StoreError{Op: "index", Unreachable: IsConnectionError(ctx, err), Err: err}
	}
	defer res.Body.Close()

	return AckFromResponse("index", res.StatusCode, res.IsError(), res.Body)
}

// Close is a no-op; the client holds no resources that need releasing.
func (s *Store) Close() error {
	return nil
}

// AckFromResponse converts an Index API response to an Ack or a StoreError.
// It is shared with the OpenSearch store, which speaks the same API.
func AckFromResponse(op string, status int, isError bool, body io.Reader) (evsink.Ack, error) {
	if isError {
		return evsink.AckCreated, &evsink.StoreError{
			Op:     op,
			Status: status,
			Reason: errorReason(body),
		}
	}
	if status == http.StatusCreated {
		return evsink.AckCreated, nil
	}
	return evsink.AckExists, nil
}

// errorResponse is the body Elasticsearch returns for failed requests.
type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func errorReason(body io.Reader) string {
	if body == nil {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var resp errorResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Error.Type == "" {
		return strings.TrimSpace(string(raw))
	}
	if resp.Error.Reason == "" {
		return resp.Error.Type
	}
	return resp.Error.Type + ": " + resp.Error.Reason
}

// IsConnectionError reports whether a client error means the request got
// no response. Caller cancellation is not a connection failure.
func IsConnectionError(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func splitAddresses(endpoint string) []string {
	var out []string
	for _, addr := range strings.Split(endpoint, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
