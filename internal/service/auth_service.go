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
	"github.com/civicdesk/complaints-service/internal/repository"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// RegisterInput is the citizen self-registration payload.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	NationalID  string
	PhoneNumber string
}

// AuthService coordinates registration, login and token resolution.
type AuthService struct {
	users       repository.UserRepository
	agencies    repository.AgencyRepository
	tokenMgr    *auth.TokenManager
	revocations auth.Revocations
	throttle    *auth.LoginThrottle
	bcryptCost  int
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	AgencyRepo  repository.AgencyRepository
	Revocations auth.Revocations
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	revocations := deps.Revocations
	if revocations == nil {
		revocations = auth.NewMemoryRevocations()
	}
	return &AuthService{
		users:       deps.UserRepo,
		agencies:    deps.AgencyRepo,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL()),
		revocations: revocations,
		throttle:    auth.NewLoginThrottle(cfg.Auth.LoginPerMinute, cfg.Auth.LoginBurst),
		bcryptCost:  cfg.Auth.BcryptCost,
		logger:      nopLogger(deps.Logger),
	}
}

// Register creates a citizen account and signs it in. Every invalid field is
// reported in a single VALIDATION_FAILED error.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, domain.Token, error) {
	email := domain.NormalizeEmail(input.Email)
	fullName := strings.TrimSpace(input.FullName)
	nationalID := strings.TrimSpace(input.NationalID)
	phone := strings.TrimSpace(input.PhoneNumber)

	fields := validateProfile(email, fullName, nationalID, phone)
	if problem := auth.PasswordProblem(input.Password); problem != "" {
		fields.Add("password", problem)
	}
	if err := fields.Err(); err != nil {
		return nil, domain.Token{}, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}

	ts := now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		NationalID:   nationalID,
		PhoneNumber:  phone,
		Role:         domain.RoleCitizen,
		Active:       true,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, domain.Token{}, mapRepoError(err, "user", map[string]any{"email": email})
	}

	token, err := s.tokenMgr.GenerateToken(domain.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	s.logger.Info("citizen registered", zap.String("user_id", user.ID))
	return user, token, nil
}

// Authenticate checks credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*domain.User, domain.Token, error) {
	email = domain.NormalizeEmail(email)
	if !s.throttle.Allow(email) {
		return nil, domain.Token{}, apperrors.NewRateLimited("too many login attempts, try again later")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.Token{}, apperrors.NewInvalidCredentials()
		}
		return nil, domain.Token{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, domain.Token{}, apperrors.NewInvalidCredentials()
	}
	if !user.Active {
		return nil, domain.Token{}, apperrors.NewAccountInactive()
	}

	token, err := s.tokenMgr.GenerateToken(domain.Identity{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, domain.Token{}, apperrors.NewInternalError(err)
	}
	return user, token, nil
}

// ResolveToken turns a bearer token into the caller's identity. The role is
// read from the stored user, so role changes apply to tokens already issued.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return domain.Identity{}, apperrors.NewTokenExpired()
		}
		return domain.Identity{}, apperrors.NewUnauthenticated("invalid token")
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return domain.Identity{}, apperrors.NewInternalError(err)
	}
	if revoked {
		return domain.Identity{}, apperrors.NewUnauthenticated("token revoked")
	}

	user, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, apperrors.NewUnauthenticated("invalid token")
		}
		return domain.Identity{}, apperrors.MapError(err)
	}
	if !user.Active {
		return domain.Identity{}, apperrors.NewAccountInactive()
	}

	identity := domain.Identity{
		UserID:  user.ID,
		Email:   user.Email,
		Role:    user.Role,
		TokenID: claims.ID,
	}
	if user.Role == domain.RoleAgencyAdmin {
		agency, err := s.agencies.GetByAdmin(ctx, user.ID)
		switch {
		case err == nil:
			identity.AgencyID = &agency.ID
		case errors.Is(err, repository.ErrNotFound):
		default:
			return domain.Identity{}, apperrors.MapError(err)
		}
	}
	return identity, nil
}

// Logout revokes token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil
		}
		return apperrors.NewUnauthenticated("invalid token")
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Me loads the caller's user record.
func (s *AuthService) Me(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		return nil, mapRepoError(err, "user", map[string]any{"user_id": identity.UserID})
	}
	return user, nil
}

// TokenManager exposes the underlying token manager.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func validateProfile(email, fullName, nationalID, phone string) apperrors.FieldErrors {
	fields := apperrors.FieldErrors{}
	if email == "" {
		fields.Add("email", "email is required")
	} else if !domain.ValidEmail(email) {
		fields.Add("email", "email is not a valid address")
	}
	if utf8.RuneCountInString(fullName) < 2 {
		fields.Add("full_name", "full name must be at least 2 characters")
	}
	if !domain.ValidNationalID(nationalID) {
		fields.Add("national_id", "national id must be exactly 16 digits")
	}
	if !domain.ValidPhoneNumber(phone) {
		fields.Add("phone_number", "phone number must start with 07 and be 10 digits")
	}
	return fields
}
