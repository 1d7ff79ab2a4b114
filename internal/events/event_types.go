package events

import (
	"time"

	"github.com/civicdesk/complaints-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventComplaintCreated       EventType = "complaint.created"
	EventComplaintStatusChanged EventType = "complaint.status_changed"
	EventComplaintAssigned      EventType = "complaint.assigned"
	EventComplaintResponseAdded EventType = "complaint.response_added"
)

// EventTypes lists every published type.
func EventTypes() []EventType {
	return []EventType{
		EventComplaintCreated,
		EventComplaintStatusChanged,
		EventComplaintAssigned,
		EventComplaintResponseAdded,
	}
}

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// ActorOf converts an identity.
func ActorOf(identity domain.Identity) Actor {
	return Actor{UserID: identity.UserID, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID          string    `json:"id"`
	Type        EventType `json:"type"`
	ComplaintID string    `json:"complaint_id"`
	Actor       Actor     `json:"actor"`
	Timestamp   time.Time `json:"timestamp"`
	Payload     any       `json:"payload"`
}

// ComplaintCreatedPayload payload.
type ComplaintCreatedPayload struct {
	Category    domain.Category `json:"category"`
	Priority    domain.Priority `json:"priority"`
	Province    string          `json:"province"`
	District    string          `json:"district"`
	Title       string          `json:"title"`
	Attachments int             `json:"attachments"`
}

// ComplaintStatusChangedPayload payload.
type ComplaintStatusChangedPayload struct {
	OldStatus domain.ComplaintStatus `json:"old_status"`
	NewStatus domain.ComplaintStatus `json:"new_status"`
	Note      string                 `json:"note,omitempty"`
}

// ComplaintAssignedPayload payload.
type ComplaintAssignedPayload struct {
	OldAgencyID *string `json:"old_agency_id,omitempty"`
	NewAgencyID string  `json:"new_agency_id"`
}

// ComplaintResponseAddedPayload payload.
type ComplaintResponseAddedPayload struct {
	ResponseID string      `json:"response_id"`
	AuthorRole domain.Role `json:"author_role"`
	Preview    string      `json:"preview"`
}
