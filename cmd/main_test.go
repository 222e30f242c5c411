package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"item-catalog-service/internal/config"
	"item-catalog-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *store.SQLStore {
	t.Helper()
	db, err := store.Open(context.Background(), config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "health.sqlite3"),
	})
	require.NoError(t, err)
	dbStore := store.NewSQLStore(db)
	t.Cleanup(func() { dbStore.Close() })
	return dbStore
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
	code   int
}

func (w *brokenWriter) Header() http.Header         { return w.header }
func (w *brokenWriter) WriteHeader(code int)        { w.code = code }
func (w *brokenWriter) Write(p []byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestHealthCheck_ReportsDatabase(t *testing.T) {
	var logs bytes.Buffer
	router := chi.NewRouter()
	registerHealthCheck(router, log.New(&logs, "", 0), newTestStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "healthy", body["database"])
	assert.Equal(t, defaultAppName, body["serviceName"])
}

func TestHealthCheck_UnhealthyDatabase(t *testing.T) {
	var logs bytes.Buffer
	dbStore := newTestStore(t)
	require.NoError(t, dbStore.Close())

	router := chi.NewRouter()
	registerHealthCheck(router, log.New(&logs, "", 0), dbStore)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "unhealthy", body["database"])
	assert.Contains(t, logs.String(), "WARN: Health check DB ping failed")
}

func TestHealthCheck_LogsWriteFailure(t *testing.T) {
	var logs bytes.Buffer
	router := chi.NewRouter()
	registerHealthCheck(router, log.New(&logs, "", 0), newTestStore(t))

	w := &brokenWriter{header: http.Header{}}
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.code)
	assert.Contains(t, logs.String(), "WARN: Failed to write health check response: connection reset by peer")
}
