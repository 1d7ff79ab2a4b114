package domain

import "time"

// Agency is an organizational unit that handles complaints. AdminID is a weak
// reference to the agency_admin user that manages it.
type Agency struct {
	ID           string
	Name         string
	Description  string
	ContactEmail string
	ContactPhone string
	AdminID      *string
	Categories   []Category
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
