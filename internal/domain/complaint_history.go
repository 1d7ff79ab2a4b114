package domain

import "time"

// ComplaintChangeType captures what changed in a history entry.
type ComplaintChangeType string

const (
	ChangeTypeCreated  ComplaintChangeType = "created"
	ChangeTypeStatus   ComplaintChangeType = "status_change"
	ChangeTypeAssignee ComplaintChangeType = "agency_assignment"
)

// ComplaintHistory is an immutable audit trail entry.
type ComplaintHistory struct {
	ID          string
	ComplaintID string
	ActorID     string
	ActorRole   Role
	ChangeType  ComplaintChangeType
	OldValue    string
	NewValue    string
	Note        string
	CreatedAt   time.Time
}
