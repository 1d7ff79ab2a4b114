package domain

import "time"

// ComplaintResponse is a message posted on a complaint thread by the submitter
// or by staff handling it.
type ComplaintResponse struct {
	ID          string
	ComplaintID string
	AuthorID    string
	AuthorRole  Role
	Message     string
	CreatedAt   time.Time
}
