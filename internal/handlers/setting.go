package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/middleware"
	"github.com/campusnet/campusnet/internal/models"
)

// SettingsHandler toggles the tracking module per college.
type SettingsHandler struct {
	settings db.SettingCollection
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(settings db.SettingCollection) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Tracking handles GET and PUT on /api/settings/tracking.
func (h *SettingsHandler) Tracking(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		setting, err := h.settings.Get(r.Context(), claims.CollegeID)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				// Never toggled means disabled.
				setting = &models.ModuleSetting{CollegeID: claims.CollegeID, IsEnabled: false, UpdatedAt: time.Time{}}
			} else {
				http.Error(w, "Settings lookup failed", http.StatusInternalServerError)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(setting)

	case http.MethodPut:
		if !claims.Role.Can("manage_settings") {
			http.Error(w, "Insufficient permissions", http.StatusForbidden)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		var req struct {
			IsEnabled bool `json:"is_enabled"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if err := h.settings.Set(r.Context(), claims.CollegeID, req.IsEnabled); err != nil {
			http.Error(w, "Failed to update setting", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"is_enabled": req.IsEnabled})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
