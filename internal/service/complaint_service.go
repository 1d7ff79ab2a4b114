package service

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/events"
	"github.com/civicdesk/complaints-service/internal/location"
	"github.com/civicdesk/complaints-service/internal/observability"
	"github.com/civicdesk/complaints-service/internal/policy"
	"github.com/civicdesk/complaints-service/internal/repository"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

const (
	minTitleLength       = 5
	maxTitleLength       = 200
	minDescriptionLength = 20
	maxResponseLength    = 4000
)

// ComplaintService owns complaint creation, the status lifecycle and
// role-scoped queries.
type ComplaintService struct {
	complaints  repository.ComplaintRepository
	history     repository.ComplaintHistoryRepository
	responses   repository.ComplaintResponseRepository
	attachments *AttachmentService
	locations   *location.Hierarchy
	metrics     *observability.Metrics
	events      publisher
	logger      *zap.Logger
}

// ComplaintDependencies bundles collaborators for the complaint service.
type ComplaintDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	ResponseRepo  repository.ComplaintResponseRepository
	Attachments   *AttachmentService
	Locations     *location.Hierarchy
	Metrics       *observability.Metrics
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// ComplaintInput describes complaint creation payload. Category and Priority
// are kept raw so every invalid field can be reported together.
type ComplaintInput struct {
	Title       string
	Description string
	Category    string
	Province    string
	District    string
	Sector      string
	Priority    int
}

// ComplaintQuery describes caller supplied list filters. The role scope is
// applied on top and cannot be widened by AgencyID.
type ComplaintQuery struct {
	Statuses   []domain.ComplaintStatus
	Category   *domain.Category
	SearchTerm string
	AgencyID   *string
	Limit      int
	Offset     int
}

// ComplaintPage is one window of a listing.
type ComplaintPage struct {
	Items  []domain.Complaint
	Total  int
	Limit  int
	Offset int
}

// NewComplaintService constructs the service.
func NewComplaintService(deps ComplaintDependencies) *ComplaintService {
	locations := deps.Locations
	if locations == nil {
		locations = location.MustDefault()
	}
	logger := nopLogger(deps.Logger)
	return &ComplaintService{
		complaints:  deps.ComplaintRepo,
		history:     deps.HistoryRepo,
		responses:   deps.ResponseRepo,
		attachments: deps.Attachments,
		locations:   locations,
		metrics:     deps.Metrics,
		events:      publisher{dispatcher: deps.Dispatcher, logger: logger},
		logger:      logger,
	}
}

// CreateComplaint validates input, stores attachments and records a new
// complaint in status submitted for the calling citizen.
func (s *ComplaintService) CreateComplaint(ctx context.Context, identity domain.Identity, input ComplaintInput, uploads []Upload) (*domain.Complaint, error) {
	if err := policy.Check(identity, policy.ActionComplaintCreate, policy.Resource{OwnerID: identity.UserID}); err != nil {
		return nil, err
	}

	complaint, fields := s.buildComplaint(identity, input)
	if s.attachments != nil && s.attachments.MaxFiles() > 0 && len(uploads) > s.attachments.MaxFiles() {
		fields.Add("attachments", "too many files")
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	if len(uploads) > 0 {
		if s.attachments == nil {
			return nil, apperrors.NewValidationError("attachments are not accepted", map[string]any{
				"fields": map[string]any{"attachments": "attachments are not accepted"},
			})
		}
		refs, err := s.attachments.Attach(ctx, complaint.ID, uploads)
		if err != nil {
			return nil, err
		}
		complaint.Attachments = refs
	}

	if err := s.complaints.Create(ctx, complaint); err != nil {
		if s.attachments != nil {
			s.attachments.Remove(ctx, complaint.Attachments)
		}
		return nil, mapRepoError(err, "complaint", nil)
	}

	s.recordHistory(ctx, identity, complaint.ID, domain.ChangeTypeCreated, "", string(complaint.Status), "", complaint.CreatedAt)
	s.metrics.RecordComplaintCreated(string(complaint.Category))
	s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintCreated,
		ComplaintID: complaint.ID,
		Actor:       events.ActorOf(identity),
		Payload: events.ComplaintCreatedPayload{
			Category:    complaint.Category,
			Priority:    complaint.Priority,
			Province:    complaint.Location.Province,
			District:    complaint.Location.District,
			Title:       complaint.Title,
			Attachments: len(complaint.Attachments),
		},
	})
	s.logger.Info("complaint created",
		zap.String("complaint_id", complaint.ID),
		zap.String("category", string(complaint.Category)),
		zap.Int("attachments", len(complaint.Attachments)))
	return complaint, nil
}

func (s *ComplaintService) buildComplaint(identity domain.Identity, input ComplaintInput) (*domain.Complaint, apperrors.FieldErrors) {
	fields := apperrors.FieldErrors{}

	title := strings.TrimSpace(input.Title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		fields.Add("title", "title is required")
	case n < minTitleLength:
		fields.Add("title", "title should be at least 5 characters")
	case n > maxTitleLength:
		fields.Add("title", "title should be at most 200 characters")
	}

	description := strings.TrimSpace(input.Description)
	if n := utf8.RuneCountInString(description); n == 0 {
		fields.Add("description", "description is required")
	} else if n < minDescriptionLength {
		fields.Add("description", "description should be at least 20 characters")
	}

	category := domain.Category(strings.ToLower(strings.TrimSpace(input.Category)))
	if category == "" {
		fields.Add("category", "category is required")
	} else if !category.Valid() {
		fields.Add("category", "unknown category")
	}

	loc := domain.Location{Province: input.Province, District: input.District, Sector: input.Sector}
	violations := s.locations.Validate(loc)
	fields.Merge("location", violations)
	if len(violations) == 0 {
		loc = s.locations.Canonical(loc)
	}

	priority := domain.Priority(input.Priority)
	if !priority.Valid() {
		fields.Add("priority", "priority must be between 1 and 5")
	}

	ts := now()
	return &domain.Complaint{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Category:    category,
		Location:    loc,
		Priority:    priority,
		Status:      domain.InitialStatus,
		SubmitterID: identity.UserID,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, fields
}

// Transition moves a complaint to target. Checks run in order: existence,
// edge legality for every role, caller rights, then an atomic compare-and-set
// on the status read. Re-applying the current status succeeds without writing,
// including when a concurrent writer reached target first.
func (s *ComplaintService) Transition(ctx context.Context, identity domain.Identity, complaintID string, target domain.ComplaintStatus, note string) (*domain.Complaint, error) {
	complaint, err := s.loadForTransition(ctx, identity, complaintID, target, nil)
	if err != nil {
		return nil, err
	}
	from := complaint.Status
	if from == target {
		return complaint, nil
	}

	ts := now()
	change := repository.StatusChange{From: from, To: target, UpdatedAt: ts}
	if target.IsTerminal() && complaint.ResolvedAt == nil {
		change.ResolvedAt = &ts
	}
	updated, err := s.complaints.UpdateStatus(ctx, complaintID, change)
	if errors.Is(err, repository.ErrStaleStatus) {
		if current, getErr := s.complaints.GetByID(ctx, complaintID); getErr == nil && current.Status == target {
			return current, nil
		}
	}
	if err != nil {
		return nil, mapRepoError(err, "complaint", map[string]any{"complaint_id": complaintID, "expected_status": string(from)})
	}

	note = strings.TrimSpace(note)
	s.recordHistory(ctx, identity, complaintID, domain.ChangeTypeStatus, string(from), string(target), note, ts)
	s.metrics.RecordTransition(string(from), string(target))
	s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintStatusChanged,
		ComplaintID: complaintID,
		Actor:       events.ActorOf(identity),
		Payload: events.ComplaintStatusChangedPayload{
			OldStatus: from,
			NewStatus: target,
			Note:      note,
		},
	})
	return updated, nil
}

// CheckTransition runs every Transition check without writing. When agencyID
// is set the caller rights are evaluated as if the complaint were already
// assigned to it, so a combined assign and transition can be validated up
// front.
func (s *ComplaintService) CheckTransition(ctx context.Context, identity domain.Identity, complaintID string, target domain.ComplaintStatus, agencyID *string) error {
	_, err := s.loadForTransition(ctx, identity, complaintID, target, agencyID)
	return err
}

func (s *ComplaintService) loadForTransition(ctx context.Context, identity domain.Identity, complaintID string, target domain.ComplaintStatus, agencyID *string) (*domain.Complaint, error) {
	if !target.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"fields": map[string]any{"status": "unknown status"},
		})
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapRepoError(err, "complaint", map[string]any{"complaint_id": complaintID})
	}
	resource := policy.ComplaintResource(complaint)
	if agencyID != nil {
		resource.AgencyID = agencyID
	}
	from := complaint.Status

	if from != target && !domain.IsLegalTransition(from, target) {
		return nil, apperrors.NewIllegalTransition(string(from), string(target))
	}
	if err := policy.Check(identity, policy.ActionComplaintTransition, resource); err != nil {
		return nil, err
	}
	if from != target && !domain.RoleMayTransition(identity.Role, from, target) {
		return nil, apperrors.NewForbidden(string(identity.Role) + " may not move a complaint from " + string(from) + " to " + string(target))
	}
	return complaint, nil
}

// GetComplaint returns a complaint the identity may read.
func (s *ComplaintService) GetComplaint(ctx context.Context, identity domain.Identity, complaintID string) (*domain.Complaint, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapRepoError(err, "complaint", map[string]any{"complaint_id": complaintID})
	}
	if err := policy.Check(identity, policy.ActionComplaintRead, policy.ComplaintResource(complaint)); err != nil {
		return nil, err
	}
	return complaint, nil
}

// ListComplaints returns one window of the complaints visible to identity,
// most recently updated first.
func (s *ComplaintService) ListComplaints(ctx context.Context, identity domain.Identity, query ComplaintQuery) (ComplaintPage, error) {
	limit, offset := repository.NormalizeWindow(query.Limit, query.Offset)
	page := ComplaintPage{Items: []domain.Complaint{}, Limit: limit, Offset: offset}

	filter, visible, err := s.scopedFilter(identity, query)
	if err != nil || !visible {
		return page, err
	}
	filter.Limit, filter.Offset = limit, offset

	items, err := s.complaints.List(ctx, filter)
	if err != nil {
		return page, apperrors.MapError(err)
	}
	total, err := s.complaints.Count(ctx, filter)
	if err != nil {
		return page, apperrors.MapError(err)
	}
	page.Items = items
	page.Total = total
	return page, nil
}

// Complaints is a lazy sequence over every complaint visible to identity that
// matches query, fetched pageSize at a time starting at query.Offset. Each
// range over the result restarts from the first page. The sequence stops
// after yielding the first error.
func (s *ComplaintService) Complaints(ctx context.Context, identity domain.Identity, query ComplaintQuery, pageSize int) iter.Seq2[domain.Complaint, error] {
	return func(yield func(domain.Complaint, error) bool) {
		filter, visible, err := s.scopedFilter(identity, query)
		if err != nil {
			yield(domain.Complaint{}, err)
			return
		}
		if !visible {
			return
		}
		limit, offset := repository.NormalizeWindow(pageSize, query.Offset)
		for {
			filter.Limit, filter.Offset = limit, offset
			items, err := s.complaints.List(ctx, filter)
			if err != nil {
				yield(domain.Complaint{}, apperrors.MapError(err))
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if len(items) < limit {
				return
			}
			offset += limit
		}
	}
}

// scopedFilter intersects query with the identity's visibility. visible is
// false when the intersection is empty.
func (s *ComplaintService) scopedFilter(identity domain.Identity, query ComplaintQuery) (repository.ComplaintFilter, bool, error) {
	if err := policy.Check(identity, policy.ActionComplaintList, policy.Resource{}); err != nil {
		return repository.ComplaintFilter{}, false, err
	}
	scope := policy.ListScope(identity)
	if scope.Empty {
		return repository.ComplaintFilter{}, false, nil
	}

	filter := repository.ComplaintFilter{
		SubmitterID: scope.SubmitterID,
		AgencyID:    scope.AgencyID,
		Statuses:    query.Statuses,
		Category:    query.Category,
		SearchTerm:  strings.TrimSpace(query.SearchTerm),
	}
	if query.AgencyID != nil {
		if filter.AgencyID != nil && *filter.AgencyID != *query.AgencyID {
			return filter, false, nil
		}
		filter.AgencyID = query.AgencyID
	}
	return filter, true, nil
}

// History returns the audit trail of a complaint, oldest first.
func (s *ComplaintService) History(ctx context.Context, identity domain.Identity, complaintID string) ([]domain.ComplaintHistory, error) {
	if _, err := s.GetComplaint(ctx, identity, complaintID); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// AddResponse posts a message on a complaint thread.
func (s *ComplaintService) AddResponse(ctx context.Context, identity domain.Identity, complaintID, message string) (*domain.ComplaintResponse, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapRepoError(err, "complaint", map[string]any{"complaint_id": complaintID})
	}
	if err := policy.Check(identity, policy.ActionComplaintRespond, policy.ComplaintResource(complaint)); err != nil {
		return nil, err
	}

	message = strings.TrimSpace(message)
	fields := apperrors.FieldErrors{}
	if message == "" {
		fields.Add("message", "message is required")
	} else if utf8.RuneCountInString(message) > maxResponseLength {
		fields.Add("message", "message should be at most 4000 characters")
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	response := &domain.ComplaintResponse{
		ID:          uuid.NewString(),
		ComplaintID: complaintID,
		AuthorID:    identity.UserID,
		AuthorRole:  identity.Role,
		Message:     message,
		CreatedAt:   now(),
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, mapRepoError(err, "response", nil)
	}
	s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintResponseAdded,
		ComplaintID: complaintID,
		Actor:       events.ActorOf(identity),
		Payload: events.ComplaintResponseAddedPayload{
			ResponseID: response.ID,
			AuthorRole: response.AuthorRole,
			Preview:    stringPreview(message, 120),
		},
	})
	return response, nil
}

// ListResponses returns the thread of a complaint, oldest first.
func (s *ComplaintService) ListResponses(ctx context.Context, identity domain.Identity, complaintID string) ([]domain.ComplaintResponse, error) {
	if _, err := s.GetComplaint(ctx, identity, complaintID); err != nil {
		return nil, err
	}
	responses, err := s.responses.ListByComplaint(ctx, complaintID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return responses, nil
}

// recordHistory appends an audit entry. The complaint write already happened,
// so a failure here is logged rather than returned.
func (s *ComplaintService) recordHistory(ctx context.Context, identity domain.Identity, complaintID string, kind domain.ComplaintChangeType, oldValue, newValue, note string, at time.Time) {
	appendHistory(ctx, s.history, s.logger, &domain.ComplaintHistory{
		ID:          uuid.NewString(),
		ComplaintID: complaintID,
		ActorID:     identity.UserID,
		ActorRole:   identity.Role,
		ChangeType:  kind,
		OldValue:    oldValue,
		NewValue:    newValue,
		Note:        note,
		CreatedAt:   at,
	})
}

func appendHistory(ctx context.Context, repo repository.ComplaintHistoryRepository, logger *zap.Logger, entry *domain.ComplaintHistory) {
	if repo == nil {
		return
	}
	if err := repo.Create(ctx, entry); err != nil {
		logger.Error("record complaint history failed",
			zap.String("complaint_id", entry.ComplaintID),
			zap.String("change_type", string(entry.ChangeType)),
			zap.Error(err))
	}
}
