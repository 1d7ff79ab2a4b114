// Package memstore keeps every record in process memory. It honours the same
// uniqueness and compare-and-set contract as the database backends and backs
// tests and STORAGE_DRIVER=memory.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/repository"
)

// DB is the shared state behind all repositories of one store.
type DB struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	agencies   map[string]domain.Agency
	complaints map[string]domain.Complaint
	history    []domain.ComplaintHistory
	responses  []domain.ComplaintResponse
}

// New returns a Store backed by a fresh DB.
func New() *repository.Store {
	db := &DB{
		users:      make(map[string]domain.User),
		agencies:   make(map[string]domain.Agency),
		complaints: make(map[string]domain.Complaint),
	}
	return &repository.Store{
		Users:      &userRepo{db: db},
		Agencies:   &agencyRepo{db: db},
		Complaints: &complaintRepo{db: db},
		History:    &historyRepo{db: db},
		Responses:  &responseRepo{db: db},
	}
}

type userRepo struct{ db *DB }

func (r *userRepo) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.users[user.ID]; exists {
		return repository.ErrDuplicate
	}
	for _, existing := range r.db.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.db.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *userRepo) Update(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.users[user.ID]; !exists {
		return repository.ErrNotFound
	}
	for id, existing := range r.db.users {
		if id != user.ID && existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.db.users[user.ID] = cloneUser(*user)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	user, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneUser(user)
	return &out, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, user := range r.db.users {
		if user.Email == email {
			out := cloneUser(user)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.db.mu.RLock()
	term := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []domain.User
	for _, user := range r.db.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && user.Active != *filter.Active {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(user.FullName), term) && !strings.Contains(user.Email, term) {
			continue
		}
		matched = append(matched, cloneUser(user))
	}
	r.db.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	limit, offset := repository.NormalizeWindow(filter.Limit, filter.Offset)
	return window(matched, limit, offset), nil
}

type agencyRepo struct{ db *DB }

func (r *agencyRepo) Create(_ context.Context, agency *domain.Agency) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.agencies[agency.ID]; exists {
		return repository.ErrDuplicate
	}
	if r.nameTaken(agency.ID, agency.Name) {
		return repository.ErrDuplicate
	}
	r.db.agencies[agency.ID] = cloneAgency(*agency)
	return nil
}

func (r *agencyRepo) Update(_ context.Context, agency *domain.Agency) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.agencies[agency.ID]; !exists {
		return repository.ErrNotFound
	}
	if r.nameTaken(agency.ID, agency.Name) {
		return repository.ErrDuplicate
	}
	r.db.agencies[agency.ID] = cloneAgency(*agency)
	return nil
}

func (r *agencyRepo) nameTaken(selfID, name string) bool {
	for id, existing := range r.db.agencies {
		if id != selfID && strings.EqualFold(existing.Name, name) {
			return true
		}
	}
	return false
}

func (r *agencyRepo) GetByID(_ context.Context, id string) (*domain.Agency, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	agency, ok := r.db.agencies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneAgency(agency)
	return &out, nil
}

func (r *agencyRepo) GetByAdmin(_ context.Context, adminID string) (*domain.Agency, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var found *domain.Agency
	for _, agency := range r.db.agencies {
		if agency.AdminID == nil || *agency.AdminID != adminID {
			continue
		}
		if found == nil || agency.CreatedAt.Before(found.CreatedAt) {
			out := cloneAgency(agency)
			found = &out
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

func (r *agencyRepo) List(_ context.Context) ([]domain.Agency, error) {
	r.db.mu.RLock()
	out := make([]domain.Agency, 0, len(r.db.agencies))
	for _, agency := range r.db.agencies {
		out = append(out, cloneAgency(agency))
	}
	r.db.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type complaintRepo struct{ db *DB }

func (r *complaintRepo) Create(_ context.Context, complaint *domain.Complaint) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, exists := r.db.complaints[complaint.ID]; exists {
		return repository.ErrDuplicate
	}
	r.db.complaints[complaint.ID] = cloneComplaint(*complaint)
	return nil
}

func (r *complaintRepo) GetByID(_ context.Context, id string) (*domain.Complaint, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	complaint, ok := r.db.complaints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneComplaint(complaint)
	return &out, nil
}

func (r *complaintRepo) UpdateStatus(_ context.Context, id string, change repository.StatusChange) (*domain.Complaint, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	complaint, ok := r.db.complaints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if complaint.Status != change.From {
		return nil, repository.ErrStaleStatus
	}
	complaint.Status = change.To
	complaint.UpdatedAt = change.UpdatedAt
	if complaint.ResolvedAt == nil && change.ResolvedAt != nil {
		resolvedAt := *change.ResolvedAt
		complaint.ResolvedAt = &resolvedAt
	}
	r.db.complaints[id] = complaint
	out := cloneComplaint(complaint)
	return &out, nil
}

func (r *complaintRepo) UpdateAgency(_ context.Context, id string, agencyID *string, updatedAt time.Time) (*domain.Complaint, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	complaint, ok := r.db.complaints[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	complaint.AgencyID = cloneString(agencyID)
	complaint.UpdatedAt = updatedAt
	r.db.complaints[id] = complaint
	out := cloneComplaint(complaint)
	return &out, nil
}

func (r *complaintRepo) List(_ context.Context, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	matched := r.match(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	limit, offset := filter.NormalizedWindow()
	return window(matched, limit, offset), nil
}

func (r *complaintRepo) Count(_ context.Context, filter repository.ComplaintFilter) (int, error) {
	return len(r.match(filter)), nil
}

func (r *complaintRepo) match(filter repository.ComplaintFilter) []domain.Complaint {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	var out []domain.Complaint
	for _, c := range r.db.complaints {
		if filter.SubmitterID != nil && c.SubmitterID != *filter.SubmitterID {
			continue
		}
		if filter.AgencyID != nil && !c.AssignedTo(*filter.AgencyID) {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, c.Status) {
			continue
		}
		if filter.Category != nil && c.Category != *filter.Category {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(c.Title), term) &&
			!strings.Contains(strings.ToLower(c.Description), term) {
			continue
		}
		out = append(out, cloneComplaint(c))
	}
	return out
}

type historyRepo struct{ db *DB }

func (r *historyRepo) Create(_ context.Context, entry *domain.ComplaintHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.history = append(r.db.history, *entry)
	return nil
}

func (r *historyRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.ComplaintHistory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []domain.ComplaintHistory
	for _, entry := range r.db.history {
		if entry.ComplaintID == complaintID {
			out = append(out, entry)
		}
	}
	return out, nil
}

type responseRepo struct{ db *DB }

func (r *responseRepo) Create(_ context.Context, response *domain.ComplaintResponse) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.responses = append(r.db.responses, *response)
	return nil
}

func (r *responseRepo) ListByComplaint(_ context.Context, complaintID string) ([]domain.ComplaintResponse, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	var out []domain.ComplaintResponse
	for _, response := range r.db.responses {
		if response.ComplaintID == complaintID {
			out = append(out, response)
		}
	}
	return out, nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsStatus(statuses []domain.ComplaintStatus, status domain.ComplaintStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneUser(u domain.User) domain.User {
	if u.ParentRole != nil {
		parent := *u.ParentRole
		u.ParentRole = &parent
	}
	return u
}

func cloneAgency(a domain.Agency) domain.Agency {
	a.AdminID = cloneString(a.AdminID)
	a.Categories = append([]domain.Category(nil), a.Categories...)
	return a
}

func cloneComplaint(c domain.Complaint) domain.Complaint {
	c.AgencyID = cloneString(c.AgencyID)
	c.Attachments = append([]domain.AttachmentRef(nil), c.Attachments...)
	if c.ResolvedAt != nil {
		resolvedAt := *c.ResolvedAt
		c.ResolvedAt = &resolvedAt
	}
	return c
}
