package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicdesk/complaints-service/internal/domain"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

func strPtr(s string) *string { return &s }

func TestAuthorizeMatrix(t *testing.T) {
	agency := "agency-1"
	citizen := domain.Identity{UserID: "u-citizen", Role: domain.RoleCitizen}
	admin := domain.Identity{UserID: "u-admin", Role: domain.RoleAgencyAdmin, AgencyID: &agency}
	sysadmin := domain.Identity{UserID: "u-root", Role: domain.RoleSystemAdmin}

	own := Resource{OwnerID: citizen.UserID, AgencyID: strPtr(agency)}
	foreign := Resource{OwnerID: "someone-else", AgencyID: strPtr("agency-2")}
	unassigned := Resource{OwnerID: citizen.UserID}

	tests := []struct {
		name   string
		id     domain.Identity
		action Action
		res    Resource
		want   Decision
	}{
		{"citizen creates own", citizen, ActionComplaintCreate, own, Allow},
		{"citizen creates for other", citizen, ActionComplaintCreate, foreign, Deny},
		{"citizen reads own", citizen, ActionComplaintRead, own, Allow},
		{"citizen reads other", citizen, ActionComplaintRead, foreign, Deny},
		{"citizen lists", citizen, ActionComplaintList, Resource{}, Allow},
		{"citizen transitions own", citizen, ActionComplaintTransition, own, Deny},
		{"citizen assigns", citizen, ActionComplaintAssign, own, Deny},
		{"citizen responds on own", citizen, ActionComplaintRespond, own, Allow},
		{"citizen manages users", citizen, ActionUserManage, Resource{}, Deny},
		{"citizen reads agencies", citizen, ActionAgencyRead, Resource{}, Allow},

		{"agency admin reads assigned", admin, ActionComplaintRead, own, Allow},
		{"agency admin reads foreign", admin, ActionComplaintRead, foreign, Deny},
		{"agency admin reads unassigned", admin, ActionComplaintRead, unassigned, Deny},
		{"agency admin transitions assigned", admin, ActionComplaintTransition, own, Allow},
		{"agency admin transitions foreign", admin, ActionComplaintTransition, foreign, Deny},
		{"agency admin assigns", admin, ActionComplaintAssign, own, Deny},
		{"agency admin creates", admin, ActionComplaintCreate, Resource{OwnerID: admin.UserID}, Deny},
		{"agency admin manages agencies", admin, ActionAgencyManage, Resource{}, Deny},

		{"system admin transitions anything", sysadmin, ActionComplaintTransition, foreign, Allow},
		{"system admin assigns", sysadmin, ActionComplaintAssign, unassigned, Allow},
		{"system admin manages users", sysadmin, ActionUserManage, Resource{}, Allow},
		{"system admin manages agencies", sysadmin, ActionAgencyManage, Resource{}, Allow},
		{"system admin creates", sysadmin, ActionComplaintCreate, Resource{OwnerID: sysadmin.UserID}, Deny},

		{"unknown role", domain.Identity{UserID: "x", Role: "auditor"}, ActionComplaintList, Resource{}, Deny},
		{"anonymous", domain.Identity{Role: domain.RoleSystemAdmin}, ActionComplaintList, Resource{}, Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Authorize(tt.id, tt.action, tt.res))
		})
	}
}

func TestUnknownActionDenied(t *testing.T) {
	sysadmin := domain.Identity{UserID: "u-root", Role: domain.RoleSystemAdmin}
	assert.Equal(t, Deny, Authorize(sysadmin, Action("complaint.delete"), Resource{}))
}

func TestAgencyAdminWithoutAgency(t *testing.T) {
	admin := domain.Identity{UserID: "u-admin", Role: domain.RoleAgencyAdmin}
	assert.Equal(t, Deny, Authorize(admin, ActionComplaintRead, Resource{OwnerID: "c"}))
	assert.True(t, ListScope(admin).Empty)
}

func TestCheckReturnsForbidden(t *testing.T) {
	citizen := domain.Identity{UserID: "u-citizen", Role: domain.RoleCitizen}
	err := Check(citizen, ActionUserManage, Resource{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
	assert.NoError(t, Check(citizen, ActionComplaintList, Resource{}))
}

func TestListScope(t *testing.T) {
	agency := "agency-1"

	scope := ListScope(domain.Identity{UserID: "u1", Role: domain.RoleCitizen})
	if assert.NotNil(t, scope.SubmitterID) {
		assert.Equal(t, "u1", *scope.SubmitterID)
	}
	assert.Nil(t, scope.AgencyID)

	scope = ListScope(domain.Identity{UserID: "u2", Role: domain.RoleAgencyAdmin, AgencyID: &agency})
	if assert.NotNil(t, scope.AgencyID) {
		assert.Equal(t, agency, *scope.AgencyID)
	}
	assert.False(t, scope.Empty)

	scope = ListScope(domain.Identity{UserID: "u3", Role: domain.RoleSystemAdmin})
	assert.Equal(t, Scope{}, scope)
}
