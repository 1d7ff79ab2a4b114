package dto

import "time"

// RegisterRequest payload for citizen self-registration.
type RegisterRequest struct {
	Email       string `json:"email" form:"email"`
	Password    string `json:"password" form:"password"`
	FullName    string `json:"full_name" form:"full_name"`
	NationalID  string `json:"national_id" form:"national_id"`
	PhoneNumber string `json:"phone_number" form:"phone_number"`
}

// LoginRequest payload for login. Username is accepted as an alias of Email
// for OAuth2 password-style form posts to /api/auth/token.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	NationalID  string    `json:"national_id"`
	PhoneNumber string    `json:"phone_number"`
	Role        string    `json:"role"`
	ParentRole  *string   `json:"parent_role"`
	AgencyID    *string   `json:"agency_id,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
