package dto

import "time"

// CreateUserRequest payload for administrator-created accounts.
type CreateUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"full_name"`
	NationalID  string `json:"national_id"`
	PhoneNumber string `json:"phone_number"`
	Role        string `json:"role"`
}

// RoleRequest payload for PUT /api/admin/users/:id/role.
type RoleRequest struct {
	Role string `json:"role"`
}

// AgencyRequest payload for creating or replacing an agency.
type AgencyRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ContactEmail string   `json:"contact_email"`
	ContactPhone string   `json:"contact_phone"`
	AdminID      *string  `json:"admin_id"`
	Categories   []string `json:"categories"`
}

// AgencyResponse is the agency view.
type AgencyResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone"`
	AdminID      *string   `json:"admin_id"`
	Categories   []string  `json:"categories"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
