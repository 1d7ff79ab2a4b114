package domain

// Edge is a directed move between two complaint statuses.
type Edge struct {
	From ComplaintStatus
	To   ComplaintStatus
}

var (
	staffRoles = []Role{RoleAgencyAdmin, RoleSystemAdmin}
	adminOnly  = []Role{RoleSystemAdmin}
)

// transitionRoles is the complete state machine. An edge missing from this map
// is illegal for every role.
var transitionRoles = map[Edge][]Role{
	{StatusSubmitted, StatusInReview}:   staffRoles,
	{StatusSubmitted, StatusRejected}:   staffRoles,
	{StatusInReview, StatusInProgress}:  staffRoles,
	{StatusInReview, StatusRejected}:    staffRoles,
	{StatusInProgress, StatusResponded}: staffRoles,
	{StatusInProgress, StatusRejected}:  staffRoles,
	{StatusResponded, StatusResolved}:   staffRoles,
	{StatusResolved, StatusClosed}:      adminOnly,

	// system admin override from any non-terminal state
	{StatusSubmitted, StatusClosed}:  adminOnly,
	{StatusInReview, StatusClosed}:   adminOnly,
	{StatusInProgress, StatusClosed}: adminOnly,
	{StatusResponded, StatusClosed}:  adminOnly,
}

// InitialStatus is the status every complaint starts in.
const InitialStatus = StatusSubmitted

// IsTerminal reports whether s ends the normal lifecycle. Resolved is terminal
// but may still be closed by a system admin.
func (s ComplaintStatus) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusClosed, StatusRejected:
		return true
	default:
		return false
	}
}

// IsLegalTransition reports whether from->to is an edge of the state machine.
func IsLegalTransition(from, to ComplaintStatus) bool {
	_, ok := transitionRoles[Edge{From: from, To: to}]
	return ok
}

// EdgeRoles returns the roles allowed to trigger from->to, nil when illegal.
func EdgeRoles(from, to ComplaintStatus) []Role {
	roles := transitionRoles[Edge{From: from, To: to}]
	out := make([]Role, len(roles))
	copy(out, roles)
	return out
}

// RoleMayTransition reports whether role may trigger the edge from->to.
func RoleMayTransition(role Role, from, to ComplaintStatus) bool {
	for _, allowed := range transitionRoles[Edge{From: from, To: to}] {
		if allowed == role {
			return true
		}
	}
	return false
}

// NextStatuses lists the targets role may move a complaint to from the given status.
func NextStatuses(from ComplaintStatus, role Role) []ComplaintStatus {
	var next []ComplaintStatus
	for _, to := range Statuses() {
		if RoleMayTransition(role, from, to) {
			next = append(next, to)
		}
	}
	return next
}

// Edges returns every legal edge.
func Edges() []Edge {
	edges := make([]Edge, 0, len(transitionRoles))
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if IsLegalTransition(from, to) {
				edges = append(edges, Edge{From: from, To: to})
			}
		}
	}
	return edges
}
