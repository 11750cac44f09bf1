package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
	RoleDriver  Role = "driver"
)

// Member is a person belonging to a college: an administrator, teacher,
// student or bus driver. Members live in one collection per role; UID is
// the account identifier shared with the accounts collection.
type Member struct {
	UID       string    `bson:"uid" json:"uid"`
	CollegeID string    `bson:"college_id" json:"college_id"`
	Name      string    `bson:"name" json:"name"`
	Handle    string    `bson:"handle" json:"handle"`
	Email     string    `bson:"email" json:"email"`
	Role      Role      `bson:"role" json:"role"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Account holds the login credentials for a member, keyed by email.
type Account struct {
	UID          string    `bson:"uid" json:"uid"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	Role         Role      `bson:"role" json:"role"`
	CollegeID    string    `bson:"college_id" json:"college_id"`
	IsActive     bool      `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	CollegeCode string `json:"college_code"`
	Identifier  string `json:"identifier"`
	Password    string `json:"password"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token  string `json:"token"`
	Member Member `json:"member"`
}

// ProvisionRequest is the body of the admin provisioning endpoint.
type ProvisionRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	UID       string `json:"uid"`
	CollegeID string `json:"collegeId"`
	Role      Role   `json:"role"`
}

// ProvisionResponse mirrors the provisioning shim contract.
type ProvisionResponse struct {
	Success bool   `json:"success"`
	UID     string `json:"uid,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Claims represents JWT claims
type Claims struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	CollegeID string `json:"college_id"`
	Exp       int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleDriver:
		return true
	default:
		return false
	}
}

// Can checks if a role has permission for a specific action
func (r Role) Can(action string) bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleTeacher, RoleStudent:
		return action == "view_location" || action == "view_buses"
	case RoleDriver:
		return action == "view_location" || action == "view_buses" ||
			action == "start_tracking" || action == "stop_tracking"
	default:
		return false
	}
}
