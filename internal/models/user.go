package models

import "time"

// Role is the user's access role
type Role string

// Role constants
const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a user in the system
type User struct {
	ID                int       `json:"id"`
	Username          string    `json:"username"`
	Email             string    `json:"email"`
	PasswordHash      string    `json:"-"` // Never serialize password hash
	Role              Role      `json:"role"`
	Verified          bool      `json:"verified"`
	VerificationToken *string   `json:"-"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UserInfo is the public part of a user returned to clients
type UserInfo struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role,omitempty"`
}

// Info returns the public view of the user
func (u *User) Info() UserInfo {
	return UserInfo{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"` // accepted for compatibility, the stored role is authoritative
}

// LoginResponse is returned on successful login
type LoginResponse struct {
	AccessToken string   `json:"access_token"`
	UserInfo    UserInfo `json:"user_info"`
}

// EmailRequest carries a single email address (resend verification, forgot password)
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents a password reset request body
type ResetPasswordRequest struct {
	Password string `json:"password"`
}
