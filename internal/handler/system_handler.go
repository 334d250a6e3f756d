package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ClareAI/astra-message-service/pkg/logger"
	"github.com/gorilla/mux"
)

// ServiceVersion is reported by the root descriptor and health endpoint.
const ServiceVersion = "1.0.0"

// SystemHandler serves the health and service-descriptor endpoints.
type SystemHandler struct {
	instanceID string
	startTime  time.Time
}

func NewSystemHandler(instanceID string) *SystemHandler {
	return &SystemHandler{
		instanceID: instanceID,
		startTime:  time.Now(),
	}
}

// SetupSystemRoutes registers the health and root endpoints.
func (h *SystemHandler) SetupSystemRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HandleHealth).Methods("GET")
	router.HandleFunc("/", h.HandleRoot).Methods("GET")
	logger.Base().Info("system routes registered")
}

// HandleHealth reports liveness with process uptime.
func (h *SystemHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"instance_id":    h.instanceID,
	})
}

// HandleRoot returns the static service descriptor.
func (h *SystemHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "astra-message-service",
		"version": ServiceVersion,
		"endpoints": map[string]string{
			"webhook": "/webhook",
			"health":  "/health",
			"admin":   "/admin/sessions",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Base().Error("failed to encode response body")
	}
}
