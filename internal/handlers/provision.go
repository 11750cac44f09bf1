package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/campusnet/campusnet/internal/auth"
	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/models"
	log "github.com/sirupsen/logrus"
)

// ProvisionHandler implements the admin provisioning shim: one POST that
// creates an account plus a member record in the matching role collection.
type ProvisionHandler struct {
	authService *auth.Service
	accounts    db.AccountCollection
	members     map[models.Role]db.MemberCollection
}

// NewProvisionHandler creates a provisioning handler over a store.
func NewProvisionHandler(authService *auth.Service, store *db.Store) *ProvisionHandler {
	return &ProvisionHandler{
		authService: authService,
		accounts:    store.Accounts,
		members: map[models.Role]db.MemberCollection{
			models.RoleAdmin:   store.Admins,
			models.RoleTeacher: store.Teachers,
			models.RoleStudent: store.Students,
			models.RoleDriver:  store.Drivers,
		},
	}
}

// CreateUser handles POST /api/users.
func (h *ProvisionHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req models.ProvisionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Password == "" || req.UID == "" || req.CollegeID == "" {
		http.Error(w, "email, password, uid and collegeId are required", http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidateEmail(req.Email); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(req.Password); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !models.IsValidRole(req.Role) {
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	// Reject duplicate emails up front.
	if _, err := h.accounts.FindByEmail(r.Context(), req.Email); err == nil {
		http.Error(w, "Email already exists", http.StatusConflict)
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}

	account := models.Account{
		UID:          req.UID,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         req.Role,
		CollegeID:    req.CollegeID,
	}
	if err := h.accounts.Insert(r.Context(), account); err != nil {
		h.fail(w, err)
		return
	}

	member := models.Member{
		UID:       req.UID,
		CollegeID: req.CollegeID,
		Name:      req.Name,
		Handle:    req.UID,
		Email:     req.Email,
		Role:      req.Role,
	}
	if err := h.members[req.Role].Insert(r.Context(), member); err != nil {
		// Roll the account back so the email is not stuck behind the
		// duplicate check on the next attempt.
		if delErr := h.accounts.Delete(r.Context(), req.Email); delErr != nil {
			log.WithError(delErr).WithField("email", req.Email).Error("account rollback failed")
		}
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.ProvisionResponse{Success: true, UID: req.UID})
}

// fail answers with the shim's 500 contract. The concrete error is logged
// but never echoed to the caller.
func (h *ProvisionHandler) fail(w http.ResponseWriter, err error) {
	log.WithError(err).Error("user provisioning failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(models.ProvisionResponse{Success: false, Error: "internal error"})
}
