// Package repository declares the storage contract of the service and its
// PostgreSQL implementation. Sibling packages provide MongoDB and in-memory
// implementations of the same interfaces.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/civicdesk/complaints-service/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleStatus is returned when a status compare-and-set finds a different current status.
	ErrStaleStatus = errors.New("complaint status changed concurrently")
)

// DefaultPageSize and MaxPageSize bound list windows.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role   *domain.Role
	Active *bool
	Search string
	Limit  int
	Offset int
}

// UserRepository defines persistence access for users. Email is unique.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

// AgencyRepository defines persistence access for agencies. Name is unique.
type AgencyRepository interface {
	Create(ctx context.Context, agency *domain.Agency) error
	Update(ctx context.Context, agency *domain.Agency) error
	GetByID(ctx context.Context, id string) (*domain.Agency, error)
	GetByAdmin(ctx context.Context, adminID string) (*domain.Agency, error)
	List(ctx context.Context) ([]domain.Agency, error)
}

// ComplaintFilter captures list scope and filters. Scope fields (SubmitterID,
// AgencyID) are set by the service, never from request input directly.
type ComplaintFilter struct {
	SubmitterID *string
	AgencyID    *string
	Statuses    []domain.ComplaintStatus
	Category    *domain.Category
	SearchTerm  string
	Limit       int
	Offset      int
}

// NormalizedWindow returns Limit and Offset clamped to the allowed window.
func (f ComplaintFilter) NormalizedWindow() (limit, offset int) {
	return NormalizeWindow(f.Limit, f.Offset)
}

// NormalizeWindow clamps a page window.
func NormalizeWindow(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// StatusChange is a compare-and-set on a complaint's status. The write only
// applies when the stored status still equals From.
type StatusChange struct {
	From       domain.ComplaintStatus
	To         domain.ComplaintStatus
	UpdatedAt  time.Time
	ResolvedAt *time.Time
}

// ComplaintRepository encapsulates complaint persistence. Complaints are never deleted.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	// UpdateStatus applies change atomically and returns the stored complaint.
	// It fails with ErrStaleStatus when the current status is not change.From.
	UpdateStatus(ctx context.Context, id string, change StatusChange) (*domain.Complaint, error)
	UpdateAgency(ctx context.Context, id string, agencyID *string, updatedAt time.Time) (*domain.Complaint, error)
	// List orders by updated_at desc, created_at desc, id asc.
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	Count(ctx context.Context, filter ComplaintFilter) (int, error)
}

// ComplaintHistoryRepository stores the audit trail of a complaint.
type ComplaintHistoryRepository interface {
	Create(ctx context.Context, entry *domain.ComplaintHistory) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintHistory, error)
}

// ComplaintResponseRepository stores the message thread of a complaint.
type ComplaintResponseRepository interface {
	Create(ctx context.Context, response *domain.ComplaintResponse) error
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.ComplaintResponse, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Users      UserRepository
	Agencies   AgencyRepository
	Complaints ComplaintRepository
	History    ComplaintHistoryRepository
	Responses  ComplaintResponseRepository
	// Ping reports backend health; nil means always healthy.
	Ping func(ctx context.Context) error
	// Close releases backend resources; may be nil.
	Close func(ctx context.Context) error
}
