package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/events"
	"github.com/civicdesk/complaints-service/internal/policy"
	"github.com/civicdesk/complaints-service/internal/repository"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// AssignmentService routes complaints to agencies.
type AssignmentService struct {
	complaints repository.ComplaintRepository
	agencies   repository.AgencyRepository
	history    repository.ComplaintHistoryRepository
	events     publisher
	logger     *zap.Logger
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	ComplaintRepo repository.ComplaintRepository
	AgencyRepo    repository.AgencyRepository
	HistoryRepo   repository.ComplaintHistoryRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := nopLogger(deps.Logger)
	return &AssignmentService{
		complaints: deps.ComplaintRepo,
		agencies:   deps.AgencyRepo,
		history:    deps.HistoryRepo,
		events:     publisher{dispatcher: deps.Dispatcher, logger: logger},
		logger:     logger,
	}
}

// AssignAgency sets the agency handling a complaint. Only system admins may
// assign; assigning the current agency again is a no-op.
func (s *AssignmentService) AssignAgency(ctx context.Context, identity domain.Identity, complaintID, agencyID string) (*domain.Complaint, error) {
	if err := policy.Check(identity, policy.ActionComplaintAssign, policy.Resource{}); err != nil {
		return nil, err
	}
	agencyID = strings.TrimSpace(agencyID)
	if agencyID == "" {
		return nil, apperrors.NewValidationError("agency is required", map[string]any{
			"fields": map[string]any{"agency_id": "agency_id is required"},
		})
	}

	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, mapRepoError(err, "complaint", map[string]any{"complaint_id": complaintID})
	}
	if complaint.AssignedTo(agencyID) {
		return complaint, nil
	}
	if _, err := s.agencies.GetByID(ctx, agencyID); err != nil {
		return nil, mapRepoError(err, "agency", map[string]any{"agency_id": agencyID})
	}

	previous := complaint.AgencyID
	ts := now()
	updated, err := s.complaints.UpdateAgency(ctx, complaintID, &agencyID, ts)
	if err != nil {
		return nil, mapRepoError(err, "complaint", map[string]any{"complaint_id": complaintID})
	}

	oldValue := ""
	if previous != nil {
		oldValue = *previous
	}
	appendHistory(ctx, s.history, s.logger, &domain.ComplaintHistory{
		ID:          uuid.NewString(),
		ComplaintID: complaintID,
		ActorID:     identity.UserID,
		ActorRole:   identity.Role,
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue:    oldValue,
		NewValue:    agencyID,
		CreatedAt:   ts,
	})
	s.events.publish(ctx, events.Event{
		Type:        events.EventComplaintAssigned,
		ComplaintID: complaintID,
		Actor:       events.ActorOf(identity),
		Payload: events.ComplaintAssignedPayload{
			OldAgencyID: previous,
			NewAgencyID: agencyID,
		},
	})
	s.logger.Info("complaint assigned",
		zap.String("complaint_id", complaintID),
		zap.String("agency_id", agencyID))
	return updated, nil
}
