package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/auth"
	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/policy"
	"github.com/civicdesk/complaints-service/internal/repository"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// AdminService manages users and agencies.
type AdminService struct {
	users      repository.UserRepository
	agencies   repository.AgencyRepository
	bcryptCost int
	logger     *zap.Logger
}

// AdminDependencies encapsulates repositories required for administration.
type AdminDependencies struct {
	UserRepo   repository.UserRepository
	AgencyRepo repository.AgencyRepository
	Logger     *zap.Logger
}

// UserInput is the payload for creating a user as an administrator.
type UserInput struct {
	Email       string
	Password    string
	FullName    string
	NationalID  string
	PhoneNumber string
	Role        string
}

// AgencyInput is the payload for creating or replacing an agency.
type AgencyInput struct {
	Name         string
	Description  string
	ContactEmail string
	ContactPhone string
	AdminID      *string
	Categories   []string
}

// NewAdminService constructs the service.
func NewAdminService(cfg config.Config, deps AdminDependencies) *AdminService {
	return &AdminService{
		users:      deps.UserRepo,
		agencies:   deps.AgencyRepo,
		bcryptCost: cfg.Auth.BcryptCost,
		logger:     nopLogger(deps.Logger),
	}
}

// ListUsers returns users matching filter.
func (s *AdminService) ListUsers(ctx context.Context, identity domain.Identity, filter repository.UserFilter) ([]domain.User, error) {
	if err := policy.Check(identity, policy.ActionUserManage, policy.Resource{}); err != nil {
		return nil, err
	}
	filter.Limit, filter.Offset = repository.NormalizeWindow(filter.Limit, filter.Offset)
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// CreateUser creates an account with any role. Agency admins are recorded as
// scoped under a system admin.
func (s *AdminService) CreateUser(ctx context.Context, identity domain.Identity, input UserInput) (*domain.User, error) {
	if err := policy.Check(identity, policy.ActionUserManage, policy.Resource{}); err != nil {
		return nil, err
	}
	return s.createUser(ctx, input)
}

// CreateSuperuser creates a system admin without an acting identity. It is
// idempotent on email: an existing account is returned with created=false.
func (s *AdminService) CreateSuperuser(ctx context.Context, input UserInput) (*domain.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(input.Email))
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, false, apperrors.MapError(err)
	}
	input.Role = string(domain.RoleSystemAdmin)
	user, err := s.createUser(ctx, input)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *AdminService) createUser(ctx context.Context, input UserInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	nationalID := strings.TrimSpace(input.NationalID)
	phone := strings.TrimSpace(input.PhoneNumber)

	fields := validateProfile(email, fullName, nationalID, phone)
	if problem := auth.PasswordProblem(input.Password); problem != "" {
		fields.Add("password", problem)
	}
	role, err := domain.ParseRole(input.Role)
	if err != nil {
		fields.Add("role", "role must be one of citizen, agency_admin, system_admin")
	}
	if err := fields.Err(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	ts := now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		NationalID:   nationalID,
		PhoneNumber:  phone,
		Role:         role,
		ParentRole:   parentRoleOf(role),
		Active:       true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"email": email})
	}
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// ToggleUserStatus flips the active flag. Users are never deleted, and an
// administrator cannot deactivate their own account.
func (s *AdminService) ToggleUserStatus(ctx context.Context, identity domain.Identity, userID string) (*domain.User, error) {
	if err := policy.Check(identity, policy.ActionUserManage, policy.Resource{}); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": userID})
	}
	if user.ID == identity.UserID && user.Active {
		return nil, apperrors.NewForbidden("cannot deactivate your own account")
	}
	user.Active = !user.Active
	user.UpdatedAt = now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": userID})
	}
	s.logger.Info("user status toggled", zap.String("user_id", user.ID), zap.Bool("active", user.Active))
	return user, nil
}

// AssignRole changes a user's role. Administrators cannot change their own
// role, and an agency admin cannot be demoted while an agency names them.
func (s *AdminService) AssignRole(ctx context.Context, identity domain.Identity, userID, rawRole string) (*domain.User, error) {
	if err := policy.Check(identity, policy.ActionUserManage, policy.Resource{}); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{
			"fields": map[string]any{"role": "role must be one of citizen, agency_admin, system_admin"},
		})
	}
	if userID == identity.UserID {
		return nil, apperrors.NewForbidden("cannot change your own role")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": userID})
	}
	if user.Role == role {
		return user, nil
	}
	if user.Role == domain.RoleAgencyAdmin {
		agency, err := s.agencies.GetByAdmin(ctx, user.ID)
		switch {
		case err == nil:
			return nil, apperrors.NewConflict("user still administers an agency, assign the agency to another admin first", map[string]any{
				"user_id":   user.ID,
				"agency_id": agency.ID,
			})
		case !errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.MapError(err)
		}
	}
	user.Role = role
	user.ParentRole = parentRoleOf(role)
	user.UpdatedAt = now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// CreateAgency registers an agency. Names are unique case-insensitively.
func (s *AdminService) CreateAgency(ctx context.Context, identity domain.Identity, input AgencyInput) (*domain.Agency, error) {
	if err := policy.Check(identity, policy.ActionAgencyManage, policy.Resource{}); err != nil {
		return nil, err
	}
	ts := now()
	agency := &domain.Agency{ID: uuid.NewString(), CreatedAt: ts, UpdatedAt: ts}
	if err := s.applyAgencyInput(ctx, agency, input); err != nil {
		return nil, err
	}
	if err := s.agencies.Create(ctx, agency); err != nil {
		return nil, mapRepoError(err, "agency", map[string]any{"name": agency.Name})
	}
	s.logger.Info("agency created", zap.String("agency_id", agency.ID), zap.String("name", agency.Name))
	return agency, nil
}

// UpdateAgency replaces an agency's mutable fields.
func (s *AdminService) UpdateAgency(ctx context.Context, identity domain.Identity, agencyID string, input AgencyInput) (*domain.Agency, error) {
	if err := policy.Check(identity, policy.ActionAgencyManage, policy.Resource{}); err != nil {
		return nil, err
	}
	agency, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		return nil, mapRepoError(err, "agency", map[string]any{"agency_id": agencyID})
	}
	if err := s.applyAgencyInput(ctx, agency, input); err != nil {
		return nil, err
	}
	agency.UpdatedAt = now()
	if err := s.agencies.Update(ctx, agency); err != nil {
		return nil, mapRepoError(err, "agency", map[string]any{"agency_id": agencyID})
	}
	return agency, nil
}

// GetAgency returns one agency.
func (s *AdminService) GetAgency(ctx context.Context, identity domain.Identity, agencyID string) (*domain.Agency, error) {
	if err := policy.Check(identity, policy.ActionAgencyRead, policy.Resource{}); err != nil {
		return nil, err
	}
	agency, err := s.agencies.GetByID(ctx, agencyID)
	if err != nil {
		return nil, mapRepoError(err, "agency", map[string]any{"agency_id": agencyID})
	}
	return agency, nil
}

// ListAgencies returns every agency ordered by name.
func (s *AdminService) ListAgencies(ctx context.Context, identity domain.Identity) ([]domain.Agency, error) {
	if err := policy.Check(identity, policy.ActionAgencyRead, policy.Resource{}); err != nil {
		return nil, err
	}
	agencies, err := s.agencies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agencies, nil
}

// applyAgencyInput validates input against agency (whose ID must be set) and
// copies it over. An admin may manage at most one agency.
func (s *AdminService) applyAgencyInput(ctx context.Context, agency *domain.Agency, input AgencyInput) error {
	fields := apperrors.FieldErrors{}
	name := strings.TrimSpace(input.Name)
	if utf8.RuneCountInString(name) < 2 {
		fields.Add("name", "name must be at least 2 characters")
	}
	contactEmail := domain.NormalizeEmail(input.ContactEmail)
	if contactEmail != "" && !domain.ValidEmail(contactEmail) {
		fields.Add("contact_email", "contact email is not a valid address")
	}
	categories := make([]domain.Category, 0, len(input.Categories))
	for _, raw := range input.Categories {
		category := domain.Category(strings.ToLower(strings.TrimSpace(raw)))
		if !category.Valid() {
			fields.Add("categories", "unknown category "+raw)
			continue
		}
		categories = append(categories, category)
	}

	var adminID *string
	if input.AdminID != nil && strings.TrimSpace(*input.AdminID) != "" {
		id := strings.TrimSpace(*input.AdminID)
		adminID = &id
		admin, err := s.users.GetByID(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			fields.Add("admin_id", "admin user does not exist")
		case err != nil:
			return apperrors.MapError(err)
		case admin.Role != domain.RoleAgencyAdmin:
			fields.Add("admin_id", "admin user must have role agency_admin")
		}
	}
	if err := fields.Err(); err != nil {
		return err
	}

	if adminID != nil {
		managed, err := s.agencies.GetByAdmin(ctx, *adminID)
		switch {
		case err == nil && managed.ID != agency.ID:
			return apperrors.NewConflict("admin already manages another agency", map[string]any{
				"admin_id":  *adminID,
				"agency_id": managed.ID,
			})
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return apperrors.MapError(err)
		}
	}

	agency.Name = name
	agency.Description = strings.TrimSpace(input.Description)
	agency.ContactEmail = contactEmail
	agency.ContactPhone = strings.TrimSpace(input.ContactPhone)
	agency.AdminID = adminID
	agency.Categories = categories
	return nil
}

func parentRoleOf(role domain.Role) *domain.Role {
	if role != domain.RoleAgencyAdmin {
		return nil
	}
	parent := domain.RoleSystemAdmin
	return &parent
}
