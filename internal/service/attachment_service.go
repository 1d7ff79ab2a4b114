package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicdesk/complaints-service/internal/config"
	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/policy"
	"github.com/civicdesk/complaints-service/internal/repository"
	"github.com/civicdesk/complaints-service/internal/storage"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

// sniffBytes is how much of a file is read to detect its content type.
const sniffBytes = 3072

// Upload is one incoming file. Size is the size declared by the transport;
// the stored byte count is enforced independently.
type Upload struct {
	FileName string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// AttachmentService stores complaint files in the blob store and serves them
// back to authorized readers.
type AttachmentService struct {
	blobs      storage.BlobStore
	complaints repository.ComplaintRepository
	maxBytes   int64
	maxFiles   int
	allowed    []string
	logger     *zap.Logger
}

// NewAttachmentService creates the service.
func NewAttachmentService(cfg config.UploadConfig, blobs storage.BlobStore, complaints repository.ComplaintRepository, logger *zap.Logger) *AttachmentService {
	allowed := cfg.AllowedTypes
	if len(allowed) == 0 {
		allowed = config.DefaultAllowedTypes
	}
	return &AttachmentService{
		blobs:      blobs,
		complaints: complaints,
		maxBytes:   cfg.MaxBytes,
		maxFiles:   cfg.MaxFiles,
		allowed:    allowed,
		logger:     nopLogger(logger),
	}
}

// MaxFiles is the number of attachments accepted per complaint.
func (s *AttachmentService) MaxFiles() int {
	return s.maxFiles
}

// Attach stores uploads under complaintID and returns their references in
// upload order. On any failure nothing stays stored.
func (s *AttachmentService) Attach(ctx context.Context, complaintID string, uploads []Upload) ([]domain.AttachmentRef, error) {
	if s.maxFiles > 0 && len(uploads) > s.maxFiles {
		return nil, apperrors.NewValidationError("too many attachments", map[string]any{
			"fields": map[string]any{"attachments": fmt.Sprintf("at most %d files are allowed", s.maxFiles)},
		})
	}
	for _, upload := range uploads {
		if upload.Size > s.maxBytes {
			return nil, apperrors.NewAttachmentTooLarge(upload.FileName, upload.Size, s.maxBytes)
		}
	}

	refs := make([]domain.AttachmentRef, 0, len(uploads))
	for _, upload := range uploads {
		ref, err := s.store(ctx, complaintID, upload)
		if err != nil {
			s.Remove(ctx, refs)
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *AttachmentService) store(ctx context.Context, complaintID string, upload Upload) (domain.AttachmentRef, error) {
	rc, err := upload.Open()
	if err != nil {
		return domain.AttachmentRef{}, apperrors.NewInternalError(fmt.Errorf("open upload %s: %w", upload.FileName, err))
	}
	defer rc.Close()

	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return domain.AttachmentRef{}, apperrors.NewInternalError(fmt.Errorf("read upload %s: %w", upload.FileName, err))
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !mimetype.EqualsAny(detected.String(), s.allowed...) {
		return domain.AttachmentRef{}, apperrors.NewUnsupportedType(upload.FileName, detected.String())
	}
	contentType := strings.SplitN(detected.String(), ";", 2)[0]

	ext := detected.Extension()
	if ext == "" {
		ext = strings.ToLower(path.Ext(upload.FileName))
	}
	handle := fmt.Sprintf("complaints/%s/%s%s", complaintID, uuid.NewString(), ext)

	counter := &countingReader{r: io.MultiReader(bytes.NewReader(head), io.LimitReader(rc, s.maxBytes+1-int64(n)))}
	size := upload.Size
	if size <= 0 || size > s.maxBytes {
		size = -1
	}
	if err := s.blobs.Put(ctx, handle, counter, size, contentType); err != nil {
		return domain.AttachmentRef{}, apperrors.NewInternalError(fmt.Errorf("store %s: %w", upload.FileName, err))
	}
	if counter.n > s.maxBytes {
		s.deleteQuietly(ctx, handle)
		return domain.AttachmentRef{}, apperrors.NewAttachmentTooLarge(upload.FileName, counter.n, s.maxBytes)
	}

	return domain.AttachmentRef{
		Handle:      handle,
		FileName:    path.Base(strings.ReplaceAll(upload.FileName, "\\", "/")),
		ContentType: contentType,
		SizeBytes:   counter.n,
	}, nil
}

// Remove deletes stored blobs, logging failures.
func (s *AttachmentService) Remove(ctx context.Context, refs []domain.AttachmentRef) {
	for _, ref := range refs {
		s.deleteQuietly(ctx, ref.Handle)
	}
}

func (s *AttachmentService) deleteQuietly(ctx context.Context, handle string) {
	if err := s.blobs.Delete(ctx, handle); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("delete attachment failed", zap.String("handle", handle), zap.Error(err))
	}
}

// Open streams an attachment of a complaint the identity may read. The
// caller closes the returned reader.
func (s *AttachmentService) Open(ctx context.Context, identity domain.Identity, complaintID, handle string) (io.ReadCloser, domain.AttachmentRef, error) {
	complaint, err := s.complaints.GetByID(ctx, complaintID)
	if err != nil {
		return nil, domain.AttachmentRef{}, mapRepoError(err, "complaint", map[string]any{"complaint_id": complaintID})
	}
	if err := policy.Check(identity, policy.ActionComplaintRead, policy.ComplaintResource(complaint)); err != nil {
		return nil, domain.AttachmentRef{}, err
	}
	ref, ok := complaint.Attachment(handle)
	if !ok {
		return nil, domain.AttachmentRef{}, apperrors.NewNotFound("attachment", map[string]any{"handle": handle})
	}
	rc, err := s.blobs.Open(ctx, ref.Handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.AttachmentRef{}, apperrors.NewNotFound("attachment", map[string]any{"handle": handle})
		}
		return nil, domain.AttachmentRef{}, apperrors.NewInternalError(err)
	}
	return rc, ref, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
