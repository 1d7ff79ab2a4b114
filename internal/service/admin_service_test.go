package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/repository"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

func TestAdminActionsRequireSystemAdmin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	citizen := h.seedUser(t, "c@example.rw", domain.RoleCitizen)
	agencyAdmin := h.seedUser(t, "a@example.rw", domain.RoleAgencyAdmin)

	for _, actor := range []domain.Identity{citizen, agencyAdmin} {
		_, err := h.admin.ListUsers(ctx, actor, repository.UserFilter{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
		_, err = h.admin.ToggleUserStatus(ctx, actor, citizen.UserID)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
		_, err = h.admin.CreateAgency(ctx, actor, AgencyInput{Name: "Rogue"})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

		agencies, err := h.admin.ListAgencies(ctx, actor)
		require.NoError(t, err, "any authenticated role may list agencies")
		assert.Empty(t, agencies)
	}
}

func TestCreateUserSetsParentRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sysadmin := h.seedUser(t, "root@example.rw", domain.RoleSystemAdmin)

	admin, err := h.admin.CreateUser(ctx, sysadmin, UserInput{
		Email:       "rura@example.rw",
		Password:    strongPassword,
		FullName:    "Transport Desk",
		NationalID:  "1199080012345679",
		PhoneNumber: "0722000000",
		Role:        "agency_admin",
	})
	require.NoError(t, err)
	require.NotNil(t, admin.ParentRole)
	assert.Equal(t, domain.RoleSystemAdmin, *admin.ParentRole)

	_, err = h.admin.CreateUser(ctx, sysadmin, UserInput{
		Email:       "x@example.rw",
		Password:    strongPassword,
		FullName:    "Someone",
		NationalID:  "1199080012345679",
		PhoneNumber: "0722000000",
		Role:        "mayor",
	})
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Details["fields"], "role")
}

func TestToggleUserStatus(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sysadmin := h.seedUser(t, "root@example.rw", domain.RoleSystemAdmin)
	citizen := h.seedUser(t, "c@example.rw", domain.RoleCitizen)

	_, err := h.admin.ToggleUserStatus(ctx, sysadmin, sysadmin.UserID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	user, err := h.admin.ToggleUserStatus(ctx, sysadmin, citizen.UserID)
	require.NoError(t, err)
	assert.False(t, user.Active)

	inactive := false
	users, err := h.admin.ListUsers(ctx, sysadmin, repository.UserFilter{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, citizen.UserID, users[0].ID)

	user, err = h.admin.ToggleUserStatus(ctx, sysadmin, citizen.UserID)
	require.NoError(t, err)
	assert.True(t, user.Active)

	_, err = h.admin.ToggleUserStatus(ctx, sysadmin, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAssignRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sysadmin := h.seedUser(t, "root@example.rw", domain.RoleSystemAdmin)
	citizen := h.seedUser(t, "c@example.rw", domain.RoleCitizen)

	user, err := h.admin.AssignRole(ctx, sysadmin, citizen.UserID, "agency_admin")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgencyAdmin, user.Role)
	require.NotNil(t, user.ParentRole)

	user, err = h.admin.AssignRole(ctx, sysadmin, citizen.UserID, "citizen")
	require.NoError(t, err)
	assert.Nil(t, user.ParentRole)

	_, err = h.admin.AssignRole(ctx, sysadmin, sysadmin.UserID, "citizen")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	_, err = h.admin.AssignRole(ctx, sysadmin, citizen.UserID, "king")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestAssignRoleKeepsAgencyAdminInCharge(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sysadmin := h.seedUser(t, "root@example.rw", domain.RoleSystemAdmin)
	admin, agency := h.seedAgency(t, sysadmin, "RBC", h.seedUser(t, "rbc@example.rw", domain.RoleAgencyAdmin))

	_, err := h.admin.AssignRole(ctx, sysadmin, admin.UserID, "citizen")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)

	user, err := h.store.Users.GetByID(ctx, admin.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgencyAdmin, user.Role)

	_, err = h.admin.UpdateAgency(ctx, sysadmin, agency.ID, AgencyInput{Name: agency.Name, Categories: []string{"health"}})
	require.NoError(t, err)
	user, err = h.admin.AssignRole(ctx, sysadmin, admin.UserID, "citizen")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCitizen, user.Role)
}

func TestAgencyManagement(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sysadmin := h.seedUser(t, "root@example.rw", domain.RoleSystemAdmin)
	citizen := h.seedUser(t, "c@example.rw", domain.RoleCitizen)
	admin := h.seedUser(t, "a@example.rw", domain.RoleAgencyAdmin)

	_, err := h.admin.CreateAgency(ctx, sysadmin, AgencyInput{Name: "WASAC", AdminID: &citizen.UserID, Categories: []string{"water", "lava"}})
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Contains(t, domainErr.Details["fields"], "admin_id")
	assert.Contains(t, domainErr.Details["fields"], "categories")

	agency, err := h.admin.CreateAgency(ctx, sysadmin, AgencyInput{
		Name:         "WASAC",
		ContactEmail: "Info@WASAC.rw",
		AdminID:      &admin.UserID,
		Categories:   []string{"water"},
	})
	require.NoError(t, err)
	assert.Equal(t, "info@wasac.rw", agency.ContactEmail)
	assert.Equal(t, []domain.Category{domain.CategoryWater}, agency.Categories)

	_, err = h.admin.CreateAgency(ctx, sysadmin, AgencyInput{Name: "wasac"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "names are unique ignoring case")

	_, err = h.admin.CreateAgency(ctx, sysadmin, AgencyInput{Name: "REG", AdminID: &admin.UserID})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "one agency per admin")

	updated, err := h.admin.UpdateAgency(ctx, sysadmin, agency.ID, AgencyInput{
		Name:        "WASAC Ltd",
		Description: "Water and sanitation",
		AdminID:     &admin.UserID,
	})
	require.NoError(t, err)
	assert.Equal(t, "WASAC Ltd", updated.Name)

	got, err := h.admin.GetAgency(ctx, citizen, agency.ID)
	require.NoError(t, err)
	assert.Equal(t, "Water and sanitation", got.Description)

	_, err = h.admin.GetAgency(ctx, citizen, "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCreateSuperuserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	input := UserInput{
		Email:       "root@example.rw",
		Password:    strongPassword,
		FullName:    "Root",
		NationalID:  "1199080012345678",
		PhoneNumber: "0780000000",
	}

	first, created, err := h.admin.CreateSuperuser(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoleSystemAdmin, first.Role)

	second, created, err := h.admin.CreateSuperuser(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
