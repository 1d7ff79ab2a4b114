package service

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/events"
	"github.com/civicdesk/complaints-service/internal/location"
	"github.com/civicdesk/complaints-service/internal/observability"
	"github.com/civicdesk/complaints-service/internal/repository"
	"github.com/civicdesk/complaints-service/internal/repository/memstore"
	"github.com/civicdesk/complaints-service/internal/storage"
)

const strongPassword = "Str0ng!Pass"

type harness struct {
	cfg         config.Config
	store       *repository.Store
	blobs       *storage.LocalStore
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	auth        *AuthService
	admin       *AdminService
	complaints  *ComplaintService
	assignment  *AssignmentService
	attachments *AttachmentService
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 15,
			BcryptCost:            4,
		},
		Upload: config.UploadConfig{
			Driver:       config.BlobLocal,
			MaxBytes:     1 << 10,
			MaxFiles:     2,
			AllowedTypes: config.DefaultAllowedTypes,
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, testConfig(), memstore.New())
}

func newHarnessWith(t *testing.T, cfg config.Config, store *repository.Store) *harness {
	t.Helper()
	blobs, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	attachments := NewAttachmentService(cfg.Upload, blobs, store.Complaints, logger)

	return &harness{
		cfg:        cfg,
		store:      store,
		blobs:      blobs,
		dispatcher: dispatcher,
		metrics:    metrics,
		auth: NewAuthService(cfg, AuthDependencies{
			UserRepo:   store.Users,
			AgencyRepo: store.Agencies,
			Logger:     logger,
		}),
		admin: NewAdminService(cfg, AdminDependencies{
			UserRepo:   store.Users,
			AgencyRepo: store.Agencies,
			Logger:     logger,
		}),
		complaints: NewComplaintService(ComplaintDependencies{
			ComplaintRepo: store.Complaints,
			HistoryRepo:   store.History,
			ResponseRepo:  store.Responses,
			Attachments:   attachments,
			Locations:     location.MustDefault(),
			Metrics:       metrics,
			Dispatcher:    dispatcher,
			Logger:        logger,
		}),
		assignment: NewAssignmentService(AssignmentDependencies{
			ComplaintRepo: store.Complaints,
			AgencyRepo:    store.Agencies,
			HistoryRepo:   store.History,
			Dispatcher:    dispatcher,
			Logger:        logger,
		}),
		attachments: attachments,
	}
}

// seedUser stores a user with role and returns the identity a resolved token
// would carry.
func (h *harness) seedUser(t *testing.T, email string, role domain.Role) domain.Identity {
	t.Helper()
	sysadmin := domain.Identity{UserID: "bootstrap", Role: domain.RoleSystemAdmin}
	user, err := h.admin.CreateUser(context.Background(), sysadmin, UserInput{
		Email:       email,
		Password:    strongPassword,
		FullName:    "User " + email,
		NationalID:  "1199080012345678",
		PhoneNumber: "0781234567",
		Role:        string(role),
	})
	require.NoError(t, err)
	return domain.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
}

// seedAgency creates an agency managed by admin and returns admin with its
// agency scope filled in.
func (h *harness) seedAgency(t *testing.T, sysadmin domain.Identity, name string, admin domain.Identity) (domain.Identity, *domain.Agency) {
	t.Helper()
	agency, err := h.admin.CreateAgency(context.Background(), sysadmin, AgencyInput{
		Name:       name,
		AdminID:    &admin.UserID,
		Categories: []string{"health"},
	})
	require.NoError(t, err)
	admin.AgencyID = &agency.ID
	return admin, agency
}

func validInput() ComplaintInput {
	return ComplaintInput{
		Title:       "Clinic closed during hours",
		Description: "The health centre was closed all Tuesday morning without notice.",
		Category:    "health",
		Province:    "kigali",
		District:    "gasabo",
		Sector:      "Kacyiru",
		Priority:    3,
	}
}

func (h *harness) create(t *testing.T, citizen domain.Identity) *domain.Complaint {
	t.Helper()
	complaint, err := h.complaints.CreateComplaint(context.Background(), citizen, validInput(), nil)
	require.NoError(t, err)
	return complaint
}

func memUpload(name string, body []byte) Upload {
	return Upload{
		FileName: name,
		Size:     int64(len(body)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		},
	}
}

// pngBytes is a minimal PNG signature followed by padding.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
