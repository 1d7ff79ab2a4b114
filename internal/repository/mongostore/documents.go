package mongostore

import (
	"time"

	"github.com/civicdesk/complaints-service/internal/domain"
)

type userDocument struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	FullName     string    `bson:"full_name"`
	NationalID   string    `bson:"national_id"`
	PhoneNumber  string    `bson:"phone_number"`
	Role         string    `bson:"role"`
	ParentRole   *string   `bson:"parent_role,omitempty"`
	Active       bool      `bson:"active"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newUserDocument(u *domain.User) userDocument {
	doc := userDocument{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		NationalID:   u.NationalID,
		PhoneNumber:  u.PhoneNumber,
		Role:         string(u.Role),
		Active:       u.Active,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.ParentRole != nil {
		parent := string(*u.ParentRole)
		doc.ParentRole = &parent
	}
	return doc
}

func (d userDocument) toDomain() domain.User {
	u := domain.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FullName:     d.FullName,
		NationalID:   d.NationalID,
		PhoneNumber:  d.PhoneNumber,
		Role:         domain.Role(d.Role),
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.ParentRole != nil {
		parent := domain.Role(*d.ParentRole)
		u.ParentRole = &parent
	}
	return u
}

type agencyDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Description  string    `bson:"description"`
	ContactEmail string    `bson:"contact_email"`
	ContactPhone string    `bson:"contact_phone"`
	AdminID      *string   `bson:"admin_id"`
	Categories   []string  `bson:"categories"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func newAgencyDocument(a *domain.Agency) agencyDocument {
	categories := make([]string, len(a.Categories))
	for i, c := range a.Categories {
		categories[i] = string(c)
	}
	return agencyDocument{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		ContactEmail: a.ContactEmail,
		ContactPhone: a.ContactPhone,
		AdminID:      a.AdminID,
		Categories:   categories,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (d agencyDocument) toDomain() domain.Agency {
	categories := make([]domain.Category, len(d.Categories))
	for i, c := range d.Categories {
		categories[i] = domain.Category(c)
	}
	return domain.Agency{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		ContactEmail: d.ContactEmail,
		ContactPhone: d.ContactPhone,
		AdminID:      d.AdminID,
		Categories:   categories,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type locationDocument struct {
	Province string `bson:"province"`
	District string `bson:"district"`
	Sector   string `bson:"sector"`
}

type attachmentDocument struct {
	Handle      string `bson:"handle"`
	FileName    string `bson:"file_name"`
	ContentType string `bson:"content_type"`
	SizeBytes   int64  `bson:"size_bytes"`
}

type complaintDocument struct {
	ID          string               `bson:"_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Category    string               `bson:"category"`
	Location    locationDocument     `bson:"location"`
	Priority    int                  `bson:"priority"`
	Status      string               `bson:"status"`
	SubmitterID string               `bson:"submitter_id"`
	AgencyID    *string              `bson:"agency_id"`
	Attachments []attachmentDocument `bson:"attachments"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
	ResolvedAt  *time.Time           `bson:"resolved_at"`
}

func newComplaintDocument(c *domain.Complaint) complaintDocument {
	attachments := make([]attachmentDocument, len(c.Attachments))
	for i, ref := range c.Attachments {
		attachments[i] = attachmentDocument(ref)
	}
	return complaintDocument{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Category:    string(c.Category),
		Location:    locationDocument(c.Location),
		Priority:    int(c.Priority),
		Status:      string(c.Status),
		SubmitterID: c.SubmitterID,
		AgencyID:    c.AgencyID,
		Attachments: attachments,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		ResolvedAt:  c.ResolvedAt,
	}
}

func (d complaintDocument) toDomain() domain.Complaint {
	attachments := make([]domain.AttachmentRef, len(d.Attachments))
	for i, ref := range d.Attachments {
		attachments[i] = domain.AttachmentRef(ref)
	}
	return domain.Complaint{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    domain.Category(d.Category),
		Location:    domain.Location(d.Location),
		Priority:    domain.Priority(d.Priority),
		Status:      domain.ComplaintStatus(d.Status),
		SubmitterID: d.SubmitterID,
		AgencyID:    d.AgencyID,
		Attachments: attachments,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		ResolvedAt:  utcPtr(d.ResolvedAt),
	}
}

type historyDocument struct {
	ID          string    `bson:"_id"`
	ComplaintID string    `bson:"complaint_id"`
	ActorID     string    `bson:"actor_id"`
	ActorRole   string    `bson:"actor_role"`
	ChangeType  string    `bson:"change_type"`
	OldValue    string    `bson:"old_value"`
	NewValue    string    `bson:"new_value"`
	Note        string    `bson:"note"`
	CreatedAt   time.Time `bson:"created_at"`
}

type responseDocument struct {
	ID          string    `bson:"_id"`
	ComplaintID string    `bson:"complaint_id"`
	AuthorID    string    `bson:"author_id"`
	AuthorRole  string    `bson:"author_role"`
	Message     string    `bson:"message"`
	CreatedAt   time.Time `bson:"created_at"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
