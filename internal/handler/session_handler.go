package handler

import (
	"net/http"

	"github.com/ClareAI/astra-message-service/internal/core/session"
	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionHandler exposes operational controls over the session registry.
type SessionHandler struct {
	sessions session.Store
}

func NewSessionHandler(sessions session.Store) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// SetupSessionRoutes registers the admin session routes under the given
// (already authenticated) subrouter.
func (h *SessionHandler) SetupSessionRoutes(router *mux.Router) {
	router.HandleFunc("/sessions", h.HandleCount).Methods("GET")
	router.HandleFunc("/sessions/cleanup", h.HandleCleanup).Methods("POST")
	router.HandleFunc("/sessions/{userId}", h.HandleClear).Methods("DELETE")
	logger.Base().Info("admin session routes registered")
}

// HandleCount reports the number of live session mappings.
func (h *SessionHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.sessions.Count(r.Context())
	if err != nil {
		logger.Base().Error("failed to count sessions", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to count sessions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"live_sessions": count})
}

// HandleClear drops the session mapping for one sender. Idempotent: clearing
// an unknown sender still returns 200.
func (h *SessionHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := h.sessions.Clear(r.Context(), userID); err != nil {
		logger.Base().Error("failed to clear session",
			zap.String("user_id", userID),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "failed to clear session"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": userID})
}

// HandleCleanup triggers the registry's cleanup pass. For the in-memory
// store this only logs; eviction is not implemented.
func (h *SessionHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Cleanup(r.Context()); err != nil {
		logger.Base().Error("session cleanup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": "cleanup failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "cleanup completed"})
}
