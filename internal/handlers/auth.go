package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/campusnet/campusnet/internal/auth"
	"github.com/campusnet/campusnet/internal/db"
	"github.com/campusnet/campusnet/internal/models"
)

// LoginResolver maps a college code and identifier to a member record.
// Implemented by auth.Resolver.
type LoginResolver interface {
	Resolve(ctx context.Context, collegeCode, identifier string) (*models.Member, *models.College, error)
}

// AuthHandler handles login requests
type AuthHandler struct {
	authService *auth.Service
	resolver    LoginResolver
	accounts    db.AccountCollection
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, resolver LoginResolver, accounts db.AccountCollection) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		resolver:    resolver,
		accounts:    accounts,
	}
}

// Login resolves the college and member from the supplied identifier, then
// verifies the password of the account tied to the member's email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var loginReq models.LoginRequest
	if err := json.Unmarshal(body, &loginReq); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.CollegeCode == "" || loginReq.Identifier == "" || loginReq.Password == "" {
		http.Error(w, "College code, identifier and password are required", http.StatusBadRequest)
		return
	}

	member, _, err := h.resolver.Resolve(r.Context(), loginReq.CollegeCode, loginReq.Identifier)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrCollegeNotFound):
			http.Error(w, "College not found", http.StatusNotFound)
		case errors.Is(err, auth.ErrMemberNotFound):
			http.Error(w, "No account matches that identifier", http.StatusNotFound)
		default:
			http.Error(w, "Login failed", http.StatusInternalServerError)
		}
		return
	}

	account, err := h.accounts.FindByEmail(r.Context(), member.Email)
	if err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if !account.IsActive {
		http.Error(w, "Account is deactivated", http.StatusUnauthorized)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, account.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.authService.GenerateToken(member)
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	response := models.LoginResponse{
		Token:  token,
		Member: *member,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
