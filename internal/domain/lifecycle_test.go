package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from  ComplaintStatus
		to    ComplaintStatus
		roles []Role
	}{
		{StatusSubmitted, StatusInReview, []Role{RoleAgencyAdmin, RoleSystemAdmin}},
		{StatusSubmitted, StatusRejected, []Role{RoleAgencyAdmin, RoleSystemAdmin}},
		{StatusInReview, StatusInProgress, []Role{RoleAgencyAdmin, RoleSystemAdmin}},
		{StatusInReview, StatusRejected, []Role{RoleAgencyAdmin, RoleSystemAdmin}},
		{StatusInProgress, StatusResponded, []Role{RoleAgencyAdmin, RoleSystemAdmin}},
		{StatusInProgress, StatusRejected, []Role{RoleAgencyAdmin, RoleSystemAdmin}},
		{StatusResponded, StatusResolved, []Role{RoleAgencyAdmin, RoleSystemAdmin}},
		{StatusResolved, StatusClosed, []Role{RoleSystemAdmin}},
		{StatusSubmitted, StatusClosed, []Role{RoleSystemAdmin}},
		{StatusInReview, StatusClosed, []Role{RoleSystemAdmin}},
		{StatusInProgress, StatusClosed, []Role{RoleSystemAdmin}},
		{StatusResponded, StatusClosed, []Role{RoleSystemAdmin}},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.True(t, IsLegalTransition(tt.from, tt.to))
			assert.ElementsMatch(t, tt.roles, EdgeRoles(tt.from, tt.to))
		})
	}

	assert.Len(t, Edges(), len(tests), "no edges beyond the table")
}

func TestCitizenNeverTransitions(t *testing.T) {
	for _, edge := range Edges() {
		assert.False(t, RoleMayTransition(RoleCitizen, edge.From, edge.To), "%s->%s", edge.From, edge.To)
	}
}

func TestIllegalEdgesDenyEveryRole(t *testing.T) {
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if IsLegalTransition(from, to) {
				continue
			}
			for _, role := range Roles() {
				assert.False(t, RoleMayTransition(role, from, to), "%s: %s->%s", role, from, to)
			}
			assert.Empty(t, EdgeRoles(from, to))
		}
	}
}

func TestTerminalStatesHaveNoExitsExceptResolvedClose(t *testing.T) {
	for _, edge := range Edges() {
		if edge.From.IsTerminal() {
			assert.Equal(t, Edge{StatusResolved, StatusClosed}, edge)
		}
	}
	assert.Empty(t, NextStatuses(StatusClosed, RoleSystemAdmin))
	assert.Empty(t, NextStatuses(StatusRejected, RoleSystemAdmin))
}

func TestEveryStatusReachableFromSubmitted(t *testing.T) {
	reached := map[ComplaintStatus]bool{InitialStatus: true}
	queue := []ComplaintStatus{InitialStatus}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range NextStatuses(current, RoleSystemAdmin) {
			if !reached[next] {
				reached[next] = true
				queue = append(queue, next)
			}
		}
	}
	for _, status := range Statuses() {
		assert.True(t, reached[status], "%s unreachable", status)
	}
}

func TestNextStatuses(t *testing.T) {
	assert.Equal(t, []ComplaintStatus{StatusInReview, StatusRejected}, NextStatuses(StatusSubmitted, RoleAgencyAdmin))
	assert.Equal(t, []ComplaintStatus{StatusInReview, StatusClosed, StatusRejected}, NextStatuses(StatusSubmitted, RoleSystemAdmin))
	assert.Empty(t, NextStatuses(StatusSubmitted, RoleCitizen))
	assert.Equal(t, []ComplaintStatus{StatusClosed}, NextStatuses(StatusResolved, RoleSystemAdmin))
	assert.Empty(t, NextStatuses(StatusResolved, RoleAgencyAdmin))
}

func TestParseHelpers(t *testing.T) {
	status, err := ParseStatus(" In_Review ")
	require.NoError(t, err)
	assert.Equal(t, StatusInReview, status)

	_, err = ParseStatus("pending")
	assert.Error(t, err)

	role, err := ParseRole("SYSTEM_ADMIN")
	require.NoError(t, err)
	assert.Equal(t, RoleSystemAdmin, role)

	_, err = ParseRole("superuser")
	assert.Error(t, err)
	assert.False(t, Role("").Valid())
}

func TestPriority(t *testing.T) {
	assert.False(t, Priority(0).Valid())
	assert.True(t, Priority(1).Valid())
	assert.True(t, Priority(5).Valid())
	assert.False(t, Priority(6).Valid())
	assert.Equal(t, "critical", PriorityCritical.Label())
	assert.Equal(t, "high", Priority(3).Label())
}

func TestIdentityFields(t *testing.T) {
	assert.True(t, ValidNationalID("1199080012345678"))
	assert.False(t, ValidNationalID("119908001234567"))
	assert.False(t, ValidNationalID("11990800123456AB"))

	assert.True(t, ValidPhoneNumber("0781234567"))
	assert.False(t, ValidPhoneNumber("0881234567"))
	assert.False(t, ValidPhoneNumber("078123456"))

	assert.True(t, ValidEmail("citizen@example.rw"))
	assert.False(t, ValidEmail("Jane <citizen@example.rw>"))
	assert.False(t, ValidEmail("not-an-email"))

	assert.Equal(t, "jane@example.rw", NormalizeEmail("  Jane@Example.RW "))
	assert.Equal(t, "1199************", MaskNationalID("1199080012345678"))
}
