package dto

import "time"

// CreateComplaintRequest payload. Multipart requests carry the same fields as
// form values plus files under "attachments".
type CreateComplaintRequest struct {
	Title       string `json:"title" form:"title"`
	Description string `json:"description" form:"description"`
	Category    string `json:"category" form:"category"`
	Province    string `json:"province" form:"province"`
	District    string `json:"district" form:"district"`
	Sector      string `json:"sector" form:"sector"`
	Priority    int    `json:"priority" form:"priority"`
}

// UpdateComplaintRequest payload for PUT /api/complaints/:id. Either field may
// be omitted; assignment is applied before the status change.
type UpdateComplaintRequest struct {
	Status   *string `json:"status"`
	AgencyID *string `json:"agency_id"`
	Note     string  `json:"note"`
}

// StatusRequest payload for PUT /api/complaints/:id/status.
type StatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// AssignRequest payload for PUT /api/complaints/:id/agency.
type AssignRequest struct {
	AgencyID string `json:"agency_id"`
}

// ResponseRequest payload for posting on a complaint thread.
type ResponseRequest struct {
	Message string `json:"message"`
}

// LocationResponse is the administrative location of a complaint.
type LocationResponse struct {
	Province string `json:"province"`
	District string `json:"district"`
	Sector   string `json:"sector"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	Handle      string `json:"handle"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	URL         string `json:"url"`
}

// ComplaintResponse is the complaint view. NextStatuses lists the statuses
// the caller's role may move it to.
type ComplaintResponse struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Category      string               `json:"category"`
	Location      LocationResponse     `json:"location"`
	Priority      int                  `json:"priority"`
	PriorityLabel string               `json:"priority_label"`
	Status        string               `json:"status"`
	SubmitterID   string               `json:"submitter_id"`
	AgencyID      *string              `json:"agency_id"`
	Attachments   []AttachmentResponse `json:"attachments"`
	NextStatuses  []string             `json:"next_statuses"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
	ResolvedAt    *time.Time           `json:"resolved_at"`
}

// Pagination describes the window of a list response.
type Pagination struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// HistoryResponse is one audit trail entry.
type HistoryResponse struct {
	ID         string    `json:"id"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	ChangeType string    `json:"change_type"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ThreadMessageResponse is one message on a complaint thread.
type ThreadMessageResponse struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole string    `json:"author_role"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
