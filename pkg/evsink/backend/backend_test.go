package backend

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strongdm/event-sink/pkg/evsink"
	"github.com/strongdm/event-sink/pkg/evsink/stores/elastic"
	"github.com/strongdm/event-sink/pkg/evsink/stores/memory"
	"github.com/strongdm/event-sink/pkg/evsink/stores/opensearch"
)

// createdTransport answers every request with 201 and counts the calls.
func createdTransport(calls *int) *httpmock.MockTransport {
	transport := httpmock.NewMockTransport()
	transport.RegisterNoResponder(func(req *http.Request) (*http.Response, error) {
		*calls++
		resp := httpmock.NewStringResponse(http.StatusCreated, `{"result":"created"}`)
		if resp.Header == nil {
			resp.Header = http.Header{}
		}
		resp.Header.Set("Content-Type", "application/json")
		resp.Header.Set("X-Elastic-Product", "Elasticsearch")
		return resp, nil
	})
	return transport
}

func TestOpen_Memory(t *testing.T) {
	cfg := evsink.Config{Backend: evsink.BackendMemory}

	store, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
}

func TestOpen_Elasticsearch(t *testing.T) {
	var calls int
	transport := createdTransport(&calls)
	logger, _ := logtest.NewNullLogger()

	store, err := Open(evsink.DefaultConfig(), WithTransport(transport), WithLogger(logger))
	require.NoError(t, err)
	require.IsType(t, &elastic.Store{}, store)

	ack, err := store.Upsert(context.Background(), "login", "id-1", evsink.Record{"user": "alice"})
	require.NoError(t, err)
	assert.Equal(t, evsink.AckCreated, ack)
	assert.Equal(t, 1, calls)
}

func TestOpen_OpenSearch(t *testing.T) {
	var calls int
	transport := createdTransport(&calls)

	cfg := evsink.DefaultConfig()
	cfg.Backend = "OpenSearch"
	store, err := Open(cfg, WithTransport(transport))
	require.NoError(t, err)
	require.IsType(t, &opensearch.Store{}, store)

	_, err = store.Upsert(context.Background(), "login", "id-1", evsink.Record{})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestOpen_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  evsink.Config
	}{
		{"unknown backend", evsink.Config{Backend: "mongo", Endpoint: "x"}},
		{"missing endpoint", evsink.Config{Backend: evsink.BackendElasticsearch}},
		{"negative retries", evsink.Config{Backend: evsink.BackendMemory, MaxRetries: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, store)
		})
	}
}
