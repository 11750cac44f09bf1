package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/middleware"
	"github.com/campusnet/campusnet/internal/models"
	"github.com/campusnet/campusnet/internal/tracking"
)

// SourceFactory builds the fix source for one bus, typically an MQTT
// subscription to the device's fix topic.
type SourceFactory func(busID string) tracking.Source

// TrackingHandler exposes the reporting session lifecycle and the observer
// read side.
type TrackingHandler struct {
	manager   *tracking.Manager
	buses     db.BusCollection
	locations db.LocationCollection
	settings  db.SettingCollection
	sources   SourceFactory
}

// NewTrackingHandler creates a tracking handler.
func NewTrackingHandler(manager *tracking.Manager, buses db.BusCollection, locations db.LocationCollection, settings db.SettingCollection, sources SourceFactory) *TrackingHandler {
	return &TrackingHandler{
		manager:   manager,
		buses:     buses,
		locations: locations,
		settings:  settings,
		sources:   sources,
	}
}

// Start begins a reporting session for the authenticated driver.
func (h *TrackingHandler) Start(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if !claims.Role.Can("start_tracking") {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var req struct {
		BusID string `json:"bus_id"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
	}

	var bus *models.Bus
	if req.BusID != "" {
		bus, err = h.buses.FindByID(r.Context(), req.BusID)
	} else {
		// Fall back to the bus assigned to this driver.
		bus, err = h.buses.FindByDriver(r.Context(), claims.UID)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "No bus assigned", http.StatusNotFound)
			return
		}
		http.Error(w, "Bus lookup failed", http.StatusInternalServerError)
		return
	}
	if claims.Role != models.RoleAdmin && bus.DriverUID != claims.UID {
		http.Error(w, "Bus is not assigned to you", http.StatusForbidden)
		return
	}

	setting, err := h.settings.Get(r.Context(), claims.CollegeID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		http.Error(w, "Settings lookup failed", http.StatusInternalServerError)
		return
	}
	if setting == nil || !setting.IsEnabled {
		http.Error(w, "Bus tracking is disabled for this college", http.StatusForbidden)
		return
	}

	busID := bus.ID.Hex()
	err = h.manager.Start(r.Context(), claims.UID, busID, h.sources(busID))
	if err != nil {
		switch {
		case errors.Is(err, tracking.ErrBusBusy), errors.Is(err, tracking.ErrDriverBusy):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			// First-fix failures: permission denied, position unavailable
			// or timeout on the device side.
			http.Error(w, "Could not obtain a position fix: "+err.Error(), http.StatusServiceUnavailable)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Tracking started", "bus_id": busID})
}

// Stop ends the authenticated driver's reporting session. Stopping twice is
// harmless.
func (h *TrackingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if !claims.Role.Can("stop_tracking") {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	if err := h.manager.Stop(claims.UID); err != nil {
		if errors.Is(err, tracking.ErrNoSession) {
			http.Error(w, "No active tracking session", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to stop tracking", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Tracking stopped"})
}

// GetLocation returns the current location record of a bus. A bus that
// never reported yields is_tracking=false with no coordinates.
func (h *TrackingHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	busID := r.URL.Query().Get("bus_id")
	if busID == "" {
		http.Error(w, "bus_id is required", http.StatusBadRequest)
		return
	}

	rec, err := h.locations.FindByBus(r.Context(), busID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			rec = &models.LocationRecord{BusID: busID, IsTracking: false}
		} else {
			http.Error(w, "Location lookup failed", http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}
