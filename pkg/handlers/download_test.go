package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDownloadMux(t *testing.T) (*http.ServeMux, string) {
	t.Helper()
	dir := t.TempDir()
	mux := http.NewServeMux()
	NewDownloadHandler(dir, zap.NewNop()).RegisterRoutes(mux)
	return mux, dir
}

func TestDownload(t *testing.T) {
	mux, dir := newDownloadMux(t)
	content := "a,b\n1,2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_results_x.csv"), []byte(content), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/download/query_results_x.csv", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, content, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "query_results_x.csv")
}

func TestDownload_RejectsNonCSV(t *testing.T) {
	mux, dir := newDownloadMux(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/api/download/notes.txt", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload_RejectsTraversal(t *testing.T) {
	mux, _ := newDownloadMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/download/..%2Fsecret.csv", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownload_Missing(t *testing.T) {
	mux, _ := newDownloadMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/download/absent.csv", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
