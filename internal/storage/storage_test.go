package storage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/coupon-crawler/internal/analytics"
	"github.com/jonesrussell/coupon-crawler/internal/config"
	"github.com/jonesrussell/coupon-crawler/internal/storage"
)

const testIndex = "coupon-scrape-reports"

// mockTransport implements http.RoundTripper for mocking Elasticsearch responses
type mockTransport struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte

	RoundTripFn func(req *http.Request) (*http.Response, error)
}

func (t *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}

	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.bodies = append(t.bodies, body)
	t.mu.Unlock()

	return t.RoundTripFn(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}},
	}
}

// setupMockClient creates a new Elasticsearch client with mock transport
func setupMockClient(t *testing.T, transport http.RoundTripper) *es.Client {
	t.Helper()

	client, err := es.NewClient(es.Config{Transport: transport})
	require.NoError(t, err)

	return client
}

func TestIndexReport(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
		return response(http.StatusCreated, `{"result":"created"}`), nil
	}}
	indexer := storage.NewReportIndexer(setupMockClient(t, transport), testIndex, nil)

	err := indexer.IndexReport(context.Background(), analytics.Report{RunID: "run-1", TotalFound: 9, TotalAccepted: 3})
	require.NoError(t, err)

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/"+testIndex+"/_doc/run-1", req.URL.Path)
	assert.Equal(t, "true", req.URL.Query().Get("refresh"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(transport.bodies[0], &doc))
	assert.Equal(t, "run-1", doc["run_id"])
	assert.InDelta(t, 9, doc["total_found"], 0)
	assert.Contains(t, doc, "indexed_at")
}

func TestIndexReport_ErrorResponse(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
		return response(http.StatusBadRequest, `{"error":{"type":"mapper_parsing_exception"}}`), nil
	}}
	indexer := storage.NewReportIndexer(setupMockClient(t, transport), testIndex, nil)

	err := indexer.IndexReport(context.Background(), analytics.Report{RunID: "run-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elasticsearch error")
}

func TestIndexReport_TransportError(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	client, err := es.NewClient(es.Config{Transport: transport, DisableRetry: true})
	require.NoError(t, err)

	err = storage.NewReportIndexer(client, testIndex, nil).IndexReport(context.Background(), analytics.Report{RunID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index report")
}

func TestEnsureIndex_CreatesMissingIndex(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
		if req.Method == http.MethodHead {
			return response(http.StatusNotFound, ``), nil
		}
		return response(http.StatusOK, `{"acknowledged":true}`), nil
	}}
	indexer := storage.NewReportIndexer(setupMockClient(t, transport), testIndex, nil)

	require.NoError(t, indexer.EnsureIndex(context.Background()))

	require.Len(t, transport.requests, 2)
	assert.Equal(t, http.MethodPut, transport.requests[1].Method)
	assert.Equal(t, "/"+testIndex, transport.requests[1].URL.Path)
	assert.Contains(t, string(transport.bodies[1]), `"run_id"`)
}

func TestEnsureIndex_ExistingIndex(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
		return response(http.StatusOK, ``), nil
	}}
	indexer := storage.NewReportIndexer(setupMockClient(t, transport), testIndex, nil)

	require.NoError(t, indexer.EnsureIndex(context.Background()))
	assert.Len(t, transport.requests, 1)
}

func TestPing(t *testing.T) {
	t.Parallel()

	transport := &mockTransport{RoundTripFn: func(req *http.Request) (*http.Response, error) {
		return response(http.StatusOK, `{"tagline":"You Know, for Search"}`), nil
	}}

	require.NoError(t, storage.Ping(context.Background(), setupMockClient(t, transport)))
}

func TestNewClient_NotConfigured(t *testing.T) {
	t.Parallel()

	_, err := storage.NewClient(context.Background(), config.ElasticsearchConfig{}, nil)
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}
