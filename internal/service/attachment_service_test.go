package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/complaints-service/internal/domain"
	"github.com/civicdesk/complaints-service/internal/repository"
	"github.com/civicdesk/complaints-service/internal/repository/memstore"
	apperrors "github.com/civicdesk/complaints-service/pkg/util"
)

func TestCreateComplaintWithAttachments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	citizen := h.seedUser(t, "c@example.rw", domain.RoleCitizen)

	complaint, err := h.complaints.CreateComplaint(ctx, citizen, validInput(), []Upload{
		memUpload("photo.png", pngBytes),
		memUpload("notes.txt", []byte("queue started at 6am")),
	})
	require.NoError(t, err)
	require.Len(t, complaint.Attachments, 2)

	photo := complaint.Attachments[0]
	assert.Equal(t, "photo.png", photo.FileName)
	assert.Equal(t, "image/png", photo.ContentType)
	assert.Equal(t, int64(len(pngBytes)), photo.SizeBytes)
	assert.True(t, strings.HasPrefix(photo.Handle, "complaints/"+complaint.ID+"/"))
	assert.True(t, strings.HasSuffix(photo.Handle, ".png"))
	assert.Equal(t, "text/plain", complaint.Attachments[1].ContentType)

	rc, ref, err := h.attachments.Open(ctx, citizen, complaint.ID, photo.Handle)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, body)
	assert.Equal(t, photo, ref)
}

func TestAttachmentPolicy(t *testing.T) {
	h := newHarness(t)
	citizen := h.seedUser(t, "c@example.rw", domain.RoleCitizen)

	tests := []struct {
		name    string
		uploads []Upload
		code    string
	}{
		{
			name:    "too large",
			uploads: []Upload{memUpload("big.txt", bytes.Repeat([]byte("a"), 2<<10))},
			code:    apperrors.CodeAttachmentTooLarge,
		},
		{
			name: "understated size",
			uploads: []Upload{{
				FileName: "liar.txt",
				Size:     10,
				Open: func() (io.ReadCloser, error) {
					return io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("a"), 2<<10))), nil
				},
			}},
			code: apperrors.CodeAttachmentTooLarge,
		},
		{
			name:    "executable",
			uploads: []Upload{memUpload("setup.exe", append([]byte("MZ\x90\x00"), bytes.Repeat([]byte{0xff}, 64)...))},
			code:    apperrors.CodeUnsupportedType,
		},
		{
			name: "too many files",
			uploads: []Upload{
				memUpload("a.txt", []byte("a")),
				memUpload("b.txt", []byte("b")),
				memUpload("c.txt", []byte("c")),
			},
			code: apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.complaints.CreateComplaint(context.Background(), citizen, validInput(), tt.uploads)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	page, err := h.complaints.ListComplaints(context.Background(), citizen, ComplaintQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assertNoBlobs(t, h)
}

type failingCreate struct {
	repository.ComplaintRepository
}

func (failingCreate) Create(context.Context, *domain.Complaint) error {
	return errors.New("disk full")
}

func TestAttachmentsRemovedWhenInsertFails(t *testing.T) {
	store := memstore.New()
	store.Complaints = failingCreate{store.Complaints}
	h := newHarnessWith(t, testConfig(), store)
	citizen := h.seedUser(t, "c@example.rw", domain.RoleCitizen)

	_, err := h.complaints.CreateComplaint(context.Background(), citizen, validInput(), []Upload{memUpload("photo.png", pngBytes)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInternal), "got %v", err)
	assertNoBlobs(t, h)
}

func TestOpenAttachmentAuthorization(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	owner := h.seedUser(t, "owner@example.rw", domain.RoleCitizen)
	stranger := h.seedUser(t, "stranger@example.rw", domain.RoleCitizen)

	complaint, err := h.complaints.CreateComplaint(ctx, owner, validInput(), []Upload{memUpload("photo.png", pngBytes)})
	require.NoError(t, err)
	handle := complaint.Attachments[0].Handle

	_, _, err = h.attachments.Open(ctx, stranger, complaint.ID, handle)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))

	_, _, err = h.attachments.Open(ctx, owner, complaint.ID, "complaints/"+complaint.ID+"/other.png")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func assertNoBlobs(t *testing.T, h *harness) {
	t.Helper()
	var files []string
	err := filepath.WalkDir(h.blobs.Root(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, files)
}
