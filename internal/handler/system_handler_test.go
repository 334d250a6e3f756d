package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ClareAI/astra-message-service/internal/core/session"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	router := mux.NewRouter()
	NewSystemHandler("test-instance").SetupSystemRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test-instance", body["instance_id"])
	assert.Contains(t, body, "uptime_seconds")
}

func TestRootDescriptor(t *testing.T) {
	router := mux.NewRouter()
	NewSystemHandler("test-instance").SetupSystemRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "astra-message-service", body["name"])
	assert.Contains(t, body, "endpoints")
}

func TestSessionAdminRoutes(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	ctx := context.Background()
	_, err := store.GetOrCreate(ctx, "whatsapp:+14155551234")
	require.NoError(t, err)
	_, err = store.GetOrCreate(ctx, "whatsapp:+14155555678")
	require.NoError(t, err)

	router := mux.NewRouter()
	NewSessionHandler(store).SetupSessionRoutes(router)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(2), body["live_sessions"])

	req = httptest.NewRequest(http.MethodDelete, "/sessions/whatsapp:+14155551234", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Deleting a sender with no session is still a success.
	req = httptest.NewRequest(http.MethodDelete, "/sessions/whatsapp:+19999999999", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
