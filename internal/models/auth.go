package models

import "time"

// RegisterRequest holds the fields required to create an account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name" validate:"required,max=120"`
	Major    string `json:"major" validate:"max=120"`
	Year     string `json:"year" validate:"max=40"`
	Bio      string `json:"bio" validate:"max=1000"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is what the collaborator returns on a successful login.
type AuthResult struct {
	User  User
	Token string
}

// Session is the explicit per-user context threaded through service calls.
// UpstreamToken is forwarded to the collaborator as-is and never validated here.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	UpstreamToken string    `json:"upstream_token,omitempty"`
	Profile       User      `json:"profile"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// LoginResponse returns the session token and profile snapshot.
type LoginResponse struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// RegisterResponse echoes the created user id.
type RegisterResponse struct {
	UserID string `json:"user_id"`
}
