package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/conversation"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/llm"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/schema"
)

type flakyFetcher struct {
	snap *models.SchemaSnapshot
	fail bool
}

func (f *flakyFetcher) FetchView(ctx context.Context, viewName string) (*models.SchemaSnapshot, error) {
	if f.fail {
		return nil, errors.New("cube unreachable")
	}
	return f.snap, nil
}

func newSchemaMux(t *testing.T, fetcher *flakyFetcher) (*http.ServeMux, *schema.Store) {
	t.Helper()
	logger := zap.NewNop()
	store := schema.NewStore(fetcher, "EventsAnalytics", "", logger)
	require.NoError(t, store.Init(context.Background()))

	sessions := conversation.NewStore(6, logger)
	mux := http.NewServeMux()
	NewSchemaHandler(store, sessions, &llm.MockLLMClient{}, logger).RegisterRoutes(mux)
	return mux, store
}

func TestRefresh(t *testing.T) {
	fetcher := &flakyFetcher{snap: handlerSnapshot()}
	mux, _ := newSchemaMux(t, fetcher)

	req := httptest.NewRequest(http.MethodPost, "/api/schema/refresh", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "refreshed", resp["status"])
	assert.Equal(t, "EventsAnalytics", resp["view"])
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	fetcher := &flakyFetcher{snap: handlerSnapshot()}
	mux, store := newSchemaMux(t, fetcher)

	fetcher.fail = true
	req := httptest.NewRequest(http.MethodPost, "/api/schema/refresh", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	snap, err := store.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.HasMeasure("total_revenue"))
}

func TestStatus(t *testing.T) {
	fetcher := &flakyFetcher{snap: handlerSnapshot()}
	mux, _ := newSchemaMux(t, fetcher)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Schema.Loaded)
	assert.Equal(t, "EventsAnalytics", resp.Schema.View)
	assert.Equal(t, "mock-model", resp.LLM.Model)
}
