package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	"github.com/dragonwatch/dragonwatch/internal/database"
	"github.com/dragonwatch/dragonwatch/internal/services"
)

// APIHandler handles API endpoints for the dashboard and operators
type APIHandler struct {
	alertService       *services.AlertService
	correlationService *services.CorrelationService
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(alertService *services.AlertService, correlationService *services.CorrelationService) *APIHandler {
	return &APIHandler{
		alertService:       alertService,
		correlationService: correlationService,
	}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.handleHealth)

	// Correlation
	mux.HandleFunc("POST /api/correlate", h.handleCorrelate)

	// Alerts
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)
	mux.HandleFunc("GET /api/alerts/{uuid}", h.handleGetAlert)
	mux.HandleFunc("POST /api/alerts/{uuid}/resolve", h.handleResolveAlert)

	// Engine calibration
	mux.HandleFunc("GET /api/settings/correlation", h.handleGetSettings)
	mux.HandleFunc("PUT /api/settings/correlation", h.handleUpdateSettings)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *APIHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "dragonwatch",
	})
}

// handleCorrelate triggers one correlation pass and returns its summary
func (h *APIHandler) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	summary, err := h.correlationService.RunPass()
	if err != nil {
		http.Error(w, fmt.Sprintf("Correlation pass failed: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleListAlerts handles GET /api/alerts?include_resolved=true
func (h *APIHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	includeResolved := r.URL.Query().Get("include_resolved") == "true"
	alerts, err := h.alertService.ListAlerts(includeResolved)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list alerts: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

// handleGetAlert returns a single alert with its full detection history
func (h *APIHandler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alertService.GetByUUID(r.PathValue("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to get alert: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// handleResolveAlert explicitly closes an alert. This is the only
// de-escalation path in the system.
func (h *APIHandler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	alert, err := h.alertService.Resolve(r.PathValue("uuid"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			http.Error(w, "Alert not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Failed to resolve alert: %v", err), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// handleGetSettings returns the current engine calibration
func (h *APIHandler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.correlationService.Settings()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get settings: %v", err), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateSettings validates and saves a new calibration. Invalid
// calibrations (weights not summing to 1.0, thresholds out of order) are
// rejected so the engine never runs with a configuration that would silently
// produce wrong scores.
func (h *APIHandler) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	current, err := h.correlationService.Settings()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get settings: %v", err), http.StatusInternalServerError)
		return
	}

	var updated database.CorrelationSettings
	if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt

	if err := database.UpdateCorrelationSettings(database.GetDB(), &updated); err != nil {
		http.Error(w, fmt.Sprintf("Failed to update settings: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
