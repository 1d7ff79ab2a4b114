package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/repository/memstore"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

func registration() RegisterInput {
	return RegisterInput{
		Email:       "Citizen@Example.rw ",
		Password:    strongPassword,
		FullName:    "Uwase Aline",
		NationalID:  "1199080012345678",
		PhoneNumber: "0788123456",
	}
}

func TestRegisterAndResolve(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	user, token, err := h.auth.Register(ctx, registration())
	require.NoError(t, err)
	assert.Equal(t, "citizen@example.rw", user.Email)
	assert.Equal(t, domain.RoleCitizen, user.Role)
	assert.True(t, user.Active)
	assert.NotEqual(t, strongPassword, user.PasswordHash)
	assert.NotEmpty(t, token.Value)

	identity, err := h.auth.ResolveToken(ctx, token.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, domain.RoleCitizen, identity.Role)
	assert.Equal(t, token.ID, identity.TokenID)

	me, err := h.auth.Me(ctx, identity)
	require.NoError(t, err)
	assert.Equal(t, "Uwase Aline", me.FullName)
}

func TestRegisterShortNationalID(t *testing.T) {
	h := newHarness(t)
	input := registration()
	input.NationalID = "119908001234567"

	_, _, err := h.auth.Register(context.Background(), input)
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	require.Equal(t, apperrors.CodeValidation, domainErr.Code)
	fields := domainErr.Details["fields"].(map[string]any)
	assert.Equal(t, []string{"national_id"}, keys(fields))
}

func TestRegisterReportsEveryField(t *testing.T) {
	h := newHarness(t)
	_, _, err := h.auth.Register(context.Background(), RegisterInput{
		Email:       "not-an-email",
		Password:    "weak",
		NationalID:  "abc",
		PhoneNumber: "0812345678",
	})
	domainErr := apperrors.ToDomainError(err)
	require.NotNil(t, domainErr)
	fields := domainErr.Details["fields"].(map[string]any)
	assert.ElementsMatch(t, []string{"email", "password", "full_name", "national_id", "phone_number"}, keys(fields))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, _, err := h.auth.Register(ctx, registration())
	require.NoError(t, err)

	input := registration()
	input.Email = "CITIZEN@example.rw"
	_, _, err = h.auth.Register(ctx, input)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "got %v", err)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	user, _, err := h.auth.Register(ctx, registration())
	require.NoError(t, err)

	_, token, err := h.auth.Authenticate(ctx, "CITIZEN@example.rw", strongPassword)
	require.NoError(t, err)
	assert.NotEmpty(t, token.Value)

	_, _, err = h.auth.Authenticate(ctx, user.Email, "Wr0ng!Pass")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))
	_, _, err = h.auth.Authenticate(ctx, "nobody@example.rw", strongPassword)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))

	sysadmin := domain.Identity{UserID: "root", Role: domain.RoleSystemAdmin}
	_, err = h.admin.ToggleUserStatus(ctx, sysadmin, user.ID)
	require.NoError(t, err)

	_, _, err = h.auth.Authenticate(ctx, user.Email, strongPassword)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccountInactive))
	_, err = h.auth.ResolveToken(ctx, token.Value)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAccountInactive), "tokens of deactivated users stop working")
}

func TestLoginThrottle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Auth.LoginPerMinute = 1
	cfg.Auth.LoginBurst = 2
	h := newHarnessWith(t, cfg, memstore.New())

	for i := 0; i < 2; i++ {
		_, _, err := h.auth.Authenticate(ctx, "nobody@example.rw", "x")
		assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials))
	}
	_, _, err := h.auth.Authenticate(ctx, "nobody@example.rw", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRateLimited))

	_, _, err = h.auth.Authenticate(ctx, "someone-else@example.rw", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredentials), "throttle is per email")
}

func TestLogoutRevokesToken(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	_, token, err := h.auth.Register(ctx, registration())
	require.NoError(t, err)

	require.NoError(t, h.auth.Logout(ctx, token.Value))
	_, err = h.auth.ResolveToken(ctx, token.Value)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestResolveTokenRejectsGarbage(t *testing.T) {
	h := newHarness(t)
	_, err := h.auth.ResolveToken(context.Background(), "not.a.jwt")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestResolveTokenLoadsAgencyScope(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sysadmin := h.seedUser(t, "root@example.rw", domain.RoleSystemAdmin)
	admin := h.seedUser(t, "admin@example.rw", domain.RoleAgencyAdmin)

	_, token, err := h.auth.Authenticate(ctx, admin.Email, strongPassword)
	require.NoError(t, err)
	identity, err := h.auth.ResolveToken(ctx, token.Value)
	require.NoError(t, err)
	assert.Nil(t, identity.AgencyID)

	_, agency := h.seedAgency(t, sysadmin, "REG", admin)
	identity, err = h.auth.ResolveToken(ctx, token.Value)
	require.NoError(t, err)
	require.NotNil(t, identity.AgencyID)
	assert.Equal(t, agency.ID, *identity.AgencyID)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
