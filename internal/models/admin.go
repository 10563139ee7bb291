package models

import "time"

// Admin is the server confirmed principal of an admin session.
type Admin struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

// LoginRequest holds credentials for authenticating an admin.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginData is the payload of a successful login.
type LoginData struct {
	Admin     Admin  `json:"admin"`
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn"`
}

// VerifyData is the payload of a successful token verification.
type VerifyData struct {
	Admin Admin `json:"admin"`
}
