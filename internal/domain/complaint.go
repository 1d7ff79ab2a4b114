package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ComplaintStatus enumerates lifecycle states for complaints.
type ComplaintStatus string

const (
	StatusSubmitted  ComplaintStatus = "submitted"
	StatusInReview   ComplaintStatus = "in_review"
	StatusInProgress ComplaintStatus = "in_progress"
	StatusResponded  ComplaintStatus = "responded"
	StatusResolved   ComplaintStatus = "resolved"
	StatusClosed     ComplaintStatus = "closed"
	StatusRejected   ComplaintStatus = "rejected"
)

// Statuses lists every status in lifecycle order.
func Statuses() []ComplaintStatus {
	return []ComplaintStatus{
		StatusSubmitted,
		StatusInReview,
		StatusInProgress,
		StatusResponded,
		StatusResolved,
		StatusClosed,
		StatusRejected,
	}
}

// Valid reports whether s is a declared status.
func (s ComplaintStatus) Valid() bool {
	for _, candidate := range Statuses() {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStatus normalizes a status name.
func ParseStatus(raw string) (ComplaintStatus, error) {
	status := ComplaintStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

// Category enumerates the public service areas a complaint can target.
type Category string

const (
	CategoryHealth    Category = "health"
	CategoryEducation Category = "education"
	CategoryWater     Category = "water"
	CategoryRoads     Category = "roads"
	CategorySecurity  Category = "security"
	CategoryLocal     Category = "local"
)

// Categories lists every category.
func Categories() []Category {
	return []Category{
		CategoryHealth,
		CategoryEducation,
		CategoryWater,
		CategoryRoads,
		CategorySecurity,
		CategoryLocal,
	}
}

// Valid reports whether c is a declared category.
func (c Category) Valid() bool {
	for _, candidate := range Categories() {
		if candidate == c {
			return true
		}
	}
	return false
}

// Priority is an ordinal urgency from 1 (low) to 5 (critical).
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityMedium   Priority = 2
	PriorityHigh     Priority = 3
	PriorityUrgent   Priority = 4
	PriorityCritical Priority = 5
)

// Valid reports whether p is within 1..5.
func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityCritical
}

// Label returns the human name of the priority.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	case PriorityCritical:
		return "critical"
	default:
		return strconv.Itoa(int(p))
	}
}

// Location is a province/district/sector triple from the administrative hierarchy.
type Location struct {
	Province string
	District string
	Sector   string
}

// AttachmentRef points at a stored file. Handle is opaque to everything but the
// blob store.
type AttachmentRef struct {
	Handle      string
	FileName    string
	ContentType string
	SizeBytes   int64
}

// Complaint is the aggregate tracked through the status lifecycle.
type Complaint struct {
	ID          string
	Title       string
	Description string
	Category    Category
	Location    Location
	Priority    Priority
	Status      ComplaintStatus
	SubmitterID string
	AgencyID    *string
	Attachments []AttachmentRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ResolvedAt  *time.Time
}

// AssignedTo reports whether the complaint is currently assigned to agencyID.
func (c *Complaint) AssignedTo(agencyID string) bool {
	return c.AgencyID != nil && *c.AgencyID == agencyID
}

// Attachment returns the reference with the given handle.
func (c *Complaint) Attachment(handle string) (AttachmentRef, bool) {
	for _, ref := range c.Attachments {
		if ref.Handle == handle {
			return ref, true
		}
	}
	return AttachmentRef{}, false
}
