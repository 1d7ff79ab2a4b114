// Package repotest holds the behavioural contract every repository backend
// must satisfy. Backend test files call Run with a factory for a clean store.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/repository"
)

// Base is the reference timestamp used by fixtures, millisecond aligned.
var Base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore func(t *testing.T) *repository.Store) {
	t.Run("UserEmailUnique", func(t *testing.T) { userEmailUnique(t, newStore(t)) })
	t.Run("UserListFilters", func(t *testing.T) { userListFilters(t, newStore(t)) })
	t.Run("AgencyNameUnique", func(t *testing.T) { agencyNameUnique(t, newStore(t)) })
	t.Run("StatusCompareAndSet", func(t *testing.T) { statusCompareAndSet(t, newStore(t)) })
	t.Run("ResolvedAtKept", func(t *testing.T) { resolvedAtKept(t, newStore(t)) })
	t.Run("ConcurrentTransitions", func(t *testing.T) { concurrentTransitions(t, newStore(t)) })
	t.Run("ListOrderingAndWindow", func(t *testing.T) { listOrderingAndWindow(t, newStore(t)) })
	t.Run("SearchIsLiteral", func(t *testing.T) { searchIsLiteral(t, newStore(t)) })
	t.Run("AgencyAssignment", func(t *testing.T) { agencyAssignment(t, newStore(t)) })
	t.Run("HistoryAndResponses", func(t *testing.T) { historyAndResponses(t, newStore(t)) })
}

// User builds a persisted-ready user fixture.
func User(email string, role domain.Role) *domain.User {
	return &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: "hash",
		FullName:     "Test " + email,
		NationalID:   "1199080012345678",
		PhoneNumber:  "0781234567",
		Role:         role,
		Active:       true,
		CreatedAt:    Base,
		UpdatedAt:    Base,
	}
}

// Complaint builds a persisted-ready complaint fixture.
func Complaint(submitterID string, updated time.Time) *domain.Complaint {
	id := uuid.NewString()
	return &domain.Complaint{
		ID:          id,
		Title:       "Broken water pipe " + id[:8],
		Description: "Water has been leaking on the main road for days.",
		Category:    domain.CategoryWater,
		Location:    domain.Location{Province: "kigali", District: "gasabo", Sector: "Kacyiru"},
		Priority:    domain.PriorityHigh,
		Status:      domain.StatusSubmitted,
		SubmitterID: submitterID,
		Attachments: []domain.AttachmentRef{},
		CreatedAt:   Base,
		UpdatedAt:   updated,
	}
}

func userEmailUnique(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	first := User("a@example.rw", domain.RoleCitizen)
	require.NoError(t, store.Users.Create(ctx, first))

	err := store.Users.Create(ctx, User("a@example.rw", domain.RoleCitizen))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := store.Users.GetByEmail(ctx, "a@example.rw")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.NationalID, got.NationalID)

	_, err = store.Users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got.Active = false
	require.NoError(t, store.Users.Update(ctx, got))
	reloaded, err := store.Users.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Active)
}

func userListFilters(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	parent := domain.RoleSystemAdmin
	admin := User("admin@example.rw", domain.RoleAgencyAdmin)
	admin.ParentRole = &parent
	require.NoError(t, store.Users.Create(ctx, admin))
	require.NoError(t, store.Users.Create(ctx, User("citizen@example.rw", domain.RoleCitizen)))

	role := domain.RoleAgencyAdmin
	users, err := store.Users.List(ctx, repository.UserFilter{Role: &role})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NotNil(t, users[0].ParentRole)
	assert.Equal(t, domain.RoleSystemAdmin, *users[0].ParentRole)

	users, err = store.Users.List(ctx, repository.UserFilter{Search: "CITIZEN"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func agencyNameUnique(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	adminID := uuid.NewString()
	agency := &domain.Agency{
		ID: uuid.NewString(), Name: "WASAC", AdminID: &adminID,
		Categories: []domain.Category{domain.CategoryWater}, CreatedAt: Base, UpdatedAt: Base,
	}
	require.NoError(t, store.Agencies.Create(ctx, agency))

	err := store.Agencies.Create(ctx, &domain.Agency{ID: uuid.NewString(), Name: "wasac", CreatedAt: Base, UpdatedAt: Base})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	byAdmin, err := store.Agencies.GetByAdmin(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, agency.ID, byAdmin.ID)
	assert.Equal(t, []domain.Category{domain.CategoryWater}, byAdmin.Categories)

	_, err = store.Agencies.GetByAdmin(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func statusCompareAndSet(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	c := Complaint(uuid.NewString(), Base)
	require.NoError(t, store.Complaints.Create(ctx, c))

	later := Base.Add(time.Hour)
	updated, err := store.Complaints.UpdateStatus(ctx, c.ID, repository.StatusChange{
		From: domain.StatusSubmitted, To: domain.StatusInReview, UpdatedAt: later,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, updated.Status)
	assert.True(t, later.Equal(updated.UpdatedAt))
	assert.Nil(t, updated.ResolvedAt)

	_, err = store.Complaints.UpdateStatus(ctx, c.ID, repository.StatusChange{
		From: domain.StatusSubmitted, To: domain.StatusRejected, UpdatedAt: later,
	})
	assert.ErrorIs(t, err, repository.ErrStaleStatus)

	_, err = store.Complaints.UpdateStatus(ctx, uuid.NewString(), repository.StatusChange{
		From: domain.StatusSubmitted, To: domain.StatusInReview, UpdatedAt: later,
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func resolvedAtKept(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	c := Complaint(uuid.NewString(), Base)
	c.Status = domain.StatusResponded
	require.NoError(t, store.Complaints.Create(ctx, c))

	first := Base.Add(time.Hour)
	_, err := store.Complaints.UpdateStatus(ctx, c.ID, repository.StatusChange{
		From: domain.StatusResponded, To: domain.StatusResolved, UpdatedAt: first, ResolvedAt: &first,
	})
	require.NoError(t, err)

	second := Base.Add(2 * time.Hour)
	closed, err := store.Complaints.UpdateStatus(ctx, c.ID, repository.StatusChange{
		From: domain.StatusResolved, To: domain.StatusClosed, UpdatedAt: second, ResolvedAt: &second,
	})
	require.NoError(t, err)
	require.NotNil(t, closed.ResolvedAt)
	assert.True(t, first.Equal(*closed.ResolvedAt))
}

func concurrentTransitions(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	c := Complaint(uuid.NewString(), Base)
	require.NoError(t, store.Complaints.Create(ctx, c))

	const racers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		wins  int
		stale int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := domain.StatusInReview
			if i%2 == 0 {
				target = domain.StatusRejected
			}
			_, err := store.Complaints.UpdateStatus(ctx, c.ID, repository.StatusChange{
				From: domain.StatusSubmitted, To: target, UpdatedAt: Base.Add(time.Minute),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case err == repository.ErrStaleStatus:
				stale++
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, stale)
}

func listOrderingAndWindow(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	submitter := uuid.NewString()
	var expected []string
	for i := 4; i >= 0; i-- {
		c := Complaint(submitter, Base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Complaints.Create(ctx, c))
		expected = append(expected, c.ID)
	}
	other := Complaint(uuid.NewString(), Base.Add(time.Hour))
	other.Title = "Pothole near the school gate"
	require.NoError(t, store.Complaints.Create(ctx, other))

	list, err := store.Complaints.List(ctx, repository.ComplaintFilter{SubmitterID: &submitter})
	require.NoError(t, err)
	require.Len(t, list, 5)
	for i, c := range list {
		assert.Equal(t, expected[i], c.ID, fmt.Sprintf("position %d", i))
	}

	page, err := store.Complaints.List(ctx, repository.ComplaintFilter{SubmitterID: &submitter, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, expected[2], page[0].ID)

	total, err := store.Complaints.Count(ctx, repository.ComplaintFilter{SubmitterID: &submitter})
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	found, err := store.Complaints.List(ctx, repository.ComplaintFilter{SearchTerm: "POTHOLE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, other.ID, found[0].ID)

	category := domain.CategoryHealth
	none, err := store.Complaints.List(ctx, repository.ComplaintFilter{Category: &category})
	require.NoError(t, err)
	assert.Empty(t, none)

	statuses := []domain.ComplaintStatus{domain.StatusSubmitted}
	all, err := store.Complaints.Count(ctx, repository.ComplaintFilter{Statuses: statuses})
	require.NoError(t, err)
	assert.Equal(t, 6, all)
}

func searchIsLiteral(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	exact := Complaint(uuid.NewString(), Base)
	exact.Title = "Valve a_c leaking at 100% pressure"
	require.NoError(t, store.Complaints.Create(ctx, exact))
	lookalike := Complaint(uuid.NewString(), Base.Add(time.Minute))
	lookalike.Title = "Valve abc leaking at 1000 pressure"
	require.NoError(t, store.Complaints.Create(ctx, lookalike))

	for _, term := range []string{"a_c", "100%"} {
		found, err := store.Complaints.List(ctx, repository.ComplaintFilter{SearchTerm: term})
		require.NoError(t, err)
		require.Len(t, found, 1, term)
		assert.Equal(t, exact.ID, found[0].ID, term)
	}

	user := User("under_score@example.rw", domain.RoleCitizen)
	require.NoError(t, store.Users.Create(ctx, user))
	require.NoError(t, store.Users.Create(ctx, User("underxscore@example.rw", domain.RoleCitizen)))
	users, err := store.Users.List(ctx, repository.UserFilter{Search: "under_score"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)
}

func agencyAssignment(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	c := Complaint(uuid.NewString(), Base)
	require.NoError(t, store.Complaints.Create(ctx, c))

	agencyID := uuid.NewString()
	updated, err := store.Complaints.UpdateAgency(ctx, c.ID, &agencyID, Base.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, updated.AgencyID)
	assert.Equal(t, agencyID, *updated.AgencyID)

	scoped, err := store.Complaints.List(ctx, repository.ComplaintFilter{AgencyID: &agencyID})
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	_, err = store.Complaints.UpdateAgency(ctx, uuid.NewString(), &agencyID, Base)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func historyAndResponses(t *testing.T, store *repository.Store) {
	ctx := context.Background()
	c := Complaint(uuid.NewString(), Base)
	require.NoError(t, store.Complaints.Create(ctx, c))

	for i, to := range []domain.ComplaintStatus{domain.StatusInReview, domain.StatusInProgress} {
		require.NoError(t, store.History.Create(ctx, &domain.ComplaintHistory{
			ID: uuid.NewString(), ComplaintID: c.ID, ActorID: "admin", ActorRole: domain.RoleAgencyAdmin,
			ChangeType: domain.ChangeTypeStatus, NewValue: string(to), CreatedAt: Base.Add(time.Duration(i) * time.Minute),
		}))
	}
	history, err := store.History.ListByComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, string(domain.StatusInReview), history[0].NewValue)

	require.NoError(t, store.Responses.Create(ctx, &domain.ComplaintResponse{
		ID: uuid.NewString(), ComplaintID: c.ID, AuthorID: c.SubmitterID, AuthorRole: domain.RoleCitizen,
		Message: "Any update?", CreatedAt: Base,
	}))
	responses, err := store.Responses.ListByComplaint(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, domain.RoleCitizen, responses[0].AuthorRole)
}
