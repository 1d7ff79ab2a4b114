// Package policy decides whether an identity may perform an action on a
// resource. Every rule is an explicit allow; anything unmatched is denied.
package policy

import (
	"fmt"

	"github.com/civicdesk/complaints-service/internal/domain"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// Action names an operation subject to authorization.
type Action string

const (
	ActionComplaintCreate     Action = "complaint.create"
	ActionComplaintRead       Action = "complaint.read"
	ActionComplaintList       Action = "complaint.list"
	ActionComplaintTransition Action = "complaint.transition"
	ActionComplaintAssign     Action = "complaint.assign"
	ActionComplaintRespond    Action = "complaint.respond"
	ActionUserManage          Action = "user.manage"
	ActionAgencyManage        Action = "agency.manage"
	ActionAgencyRead          Action = "agency.read"
)

// Actions lists every action.
func Actions() []Action {
	return []Action{
		ActionComplaintCreate,
		ActionComplaintRead,
		ActionComplaintList,
		ActionComplaintTransition,
		ActionComplaintAssign,
		ActionComplaintRespond,
		ActionUserManage,
		ActionAgencyManage,
		ActionAgencyRead,
	}
}

// Decision is the outcome of Authorize.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Resource carries the ownership facts rules look at. For complaints OwnerID is
// the submitter and AgencyID the assigned agency.
type Resource struct {
	OwnerID  string
	AgencyID *string
}

// ComplaintResource describes c for authorization.
func ComplaintResource(c *domain.Complaint) Resource {
	if c == nil {
		return Resource{}
	}
	return Resource{OwnerID: c.SubmitterID, AgencyID: c.AgencyID}
}

// Authorize evaluates the closed rule set.
func Authorize(id domain.Identity, action Action, res Resource) Decision {
	if id.UserID == "" {
		return Deny
	}
	switch id.Role {
	case domain.RoleCitizen:
		return citizenRules(id, action, res)
	case domain.RoleAgencyAdmin:
		return agencyAdminRules(id, action, res)
	case domain.RoleSystemAdmin:
		return systemAdminRules(action)
	default:
		return Deny
	}
}

func citizenRules(id domain.Identity, action Action, res Resource) Decision {
	switch action {
	case ActionComplaintCreate, ActionComplaintRead, ActionComplaintRespond:
		return allowIf(res.OwnerID == id.UserID)
	case ActionComplaintList, ActionAgencyRead:
		return Allow
	default:
		return Deny
	}
}

func agencyAdminRules(id domain.Identity, action Action, res Resource) Decision {
	switch action {
	case ActionComplaintRead, ActionComplaintTransition, ActionComplaintRespond:
		return allowIf(id.ManagesAgency(res.AgencyID))
	case ActionComplaintList, ActionAgencyRead:
		return Allow
	default:
		return Deny
	}
}

func systemAdminRules(action Action) Decision {
	switch action {
	case ActionComplaintRead,
		ActionComplaintList,
		ActionComplaintTransition,
		ActionComplaintAssign,
		ActionComplaintRespond,
		ActionUserManage,
		ActionAgencyManage,
		ActionAgencyRead:
		return Allow
	default:
		return Deny
	}
}

func allowIf(cond bool) Decision {
	if cond {
		return Allow
	}
	return Deny
}

// Check is Authorize returning a FORBIDDEN error on deny.
func Check(id domain.Identity, action Action, res Resource) error {
	if Authorize(id, action, res) == Allow {
		return nil
	}
	return apperrors.NewForbidden(fmt.Sprintf("%s not permitted for role %s", action, id.Role))
}

// Scope restricts complaint listings to what an identity may see.
type Scope struct {
	SubmitterID *string
	AgencyID    *string
	// Empty means nothing is visible, e.g. an agency admin with no agency.
	Empty bool
}

// ListScope returns the visibility scope for id.
func ListScope(id domain.Identity) Scope {
	switch id.Role {
	case domain.RoleCitizen:
		userID := id.UserID
		return Scope{SubmitterID: &userID}
	case domain.RoleAgencyAdmin:
		if id.AgencyID == nil {
			return Scope{Empty: true}
		}
		agencyID := *id.AgencyID
		return Scope{AgencyID: &agencyID}
	case domain.RoleSystemAdmin:
		return Scope{}
	default:
		return Scope{Empty: true}
	}
}
