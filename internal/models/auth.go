package models

import "time"

// LoginRequest defines the structure for login requests
type LoginRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required"`
	Role     UserRole `json:"role" binding:"required,userrole"`
}

// RegisterRequest defines the structure for registration requests
type RegisterRequest struct {
	Name     string   `json:"name" binding:"required"`
	Email    string   `json:"email" binding:"required,email"`
	Password string   `json:"password" binding:"required,min=6"`
	Role     UserRole `json:"role" binding:"required,userrole"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Session is the authenticated caller of a single request. It is built by the
// auth middleware from a verified token and handed to services explicitly.
type Session struct {
	UserID    string
	Name      string
	Email     string
	Role      UserRole
	TokenID   string
	ExpiresAt time.Time
}

// IsPatient reports whether the session belongs to a patient
func (s *Session) IsPatient() bool { return s != nil && s.Role == RolePatient }

// IsInsurer reports whether the session belongs to an insurer
func (s *Session) IsInsurer() bool { return s != nil && s.Role == RoleInsurer }
