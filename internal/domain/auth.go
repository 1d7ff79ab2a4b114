package domain

import "time"

// Identity is the resolved caller of a request. It is passed explicitly to
// services; there is no ambient session.
type Identity struct {
	UserID   string
	Email    string
	Role     Role
	AgencyID *string
	TokenID  string
}

// ManagesAgency reports whether the identity is the admin of agencyID.
func (i Identity) ManagesAgency(agencyID *string) bool {
	return i.Role == RoleAgencyAdmin && i.AgencyID != nil && agencyID != nil && *i.AgencyID == *agencyID
}

// Token carries issued bearer token metadata.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}
