package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/middleware"
	"github.com/campusnet/campusnet/internal/models"
)

// BusHandler handles bus administration.
type BusHandler struct {
	buses   db.BusCollection
	drivers db.MemberCollection
}

// NewBusHandler creates a bus handler.
func NewBusHandler(buses db.BusCollection, drivers db.MemberCollection) *BusHandler {
	return &BusHandler{buses: buses, drivers: drivers}
}

// Buses dispatches /api/buses by method: POST creates, GET lists, PUT
// updates and DELETE removes (id via query parameter).
func (h *BusHandler) Buses(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.list(w, r, claims)
	case http.MethodPost:
		h.create(w, r, claims)
	case http.MethodPut:
		h.update(w, r, claims)
	case http.MethodDelete:
		h.delete(w, r, claims)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BusHandler) list(w http.ResponseWriter, r *http.Request, claims *models.Claims) {
	if !claims.Role.Can("view_buses") {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}
	buses, err := h.buses.FindByCollege(r.Context(), claims.CollegeID)
	if err != nil {
		http.Error(w, "Failed to list buses", http.StatusInternalServerError)
		return
	}
	if buses == nil {
		buses = []models.Bus{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(buses)
}

func (h *BusHandler) create(w http.ResponseWriter, r *http.Request, claims *models.Claims) {
	if !claims.Role.Can("manage_buses") {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var bus models.Bus
	if err := json.Unmarshal(body, &bus); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if bus.Number == "" {
		http.Error(w, "Bus number is required", http.StatusBadRequest)
		return
	}
	bus.CollegeID = claims.CollegeID
	bus.DriverUID = ""

	id, err := h.buses.Insert(r.Context(), bus)
	if err != nil {
		http.Error(w, "Failed to create bus", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (h *BusHandler) update(w http.ResponseWriter, r *http.Request, claims *models.Claims) {
	if !claims.Role.Can("manage_buses") {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var bus models.Bus
	if err := json.Unmarshal(body, &bus); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.buses.Update(r.Context(), id, bus); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Bus not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update bus", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Bus updated"})
}

func (h *BusHandler) delete(w http.ResponseWriter, r *http.Request, claims *models.Claims) {
	if !claims.Role.Can("manage_buses") {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	if err := h.buses.Delete(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Bus not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete bus", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Bus deleted"})
}

// AssignDriver handles POST /api/buses/assign. A driver drives at most one
// bus; the check runs before the write, so two concurrent assignments can
// still race (no database constraint backs it).
func (h *BusHandler) AssignDriver(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "User context not found", http.StatusUnauthorized)
		return
	}
	if !claims.Role.Can("manage_buses") {
		http.Error(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	var req struct {
		BusID     string `json:"bus_id"`
		DriverUID string `json:"driver_uid"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.BusID == "" {
		http.Error(w, "bus_id is required", http.StatusBadRequest)
		return
	}

	if req.DriverUID != "" {
		if _, err := h.drivers.FindByUID(r.Context(), req.DriverUID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				http.Error(w, "Driver not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Driver lookup failed", http.StatusInternalServerError)
			return
		}

		existing, err := h.buses.FindByDriver(r.Context(), req.DriverUID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Bus lookup failed", http.StatusInternalServerError)
			return
		}
		if existing != nil && existing.ID.Hex() != req.BusID {
			http.Error(w, "Driver is already assigned to another bus", http.StatusConflict)
			return
		}
	}

	if err := h.buses.AssignDriver(r.Context(), req.BusID, req.DriverUID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.Error(w, "Bus not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to assign driver", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Driver assigned"})
}
