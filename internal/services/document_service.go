package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/healthclaims-backend/internal/access"
	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/pkg/filehost"
)

// MaxFilesPerRequest caps a single upload or presign batch
const MaxFilesPerRequest = 10

// UploadResult lists stored documents and the files that failed
type UploadResult struct {
	Documents []models.Document  `json:"documents"`
	Failed    []filehost.Failure `json:"failed"`
}

// PresignResult lists direct upload URLs and the entries that failed
type PresignResult struct {
	Uploads []filehost.PresignedUpload `json:"uploads"`
	Failed  []filehost.Failure         `json:"failed"`
}

type documentService struct {
	host *filehost.Host
}

// NewDocumentService creates a DocumentService over host
func NewDocumentService(host *filehost.Host) DocumentService {
	return &documentService{host: host}
}

// Upload stores files for the calling patient. A failed file is reported and
// left out of Documents; it never fails the batch.
func (s *documentService) Upload(ctx context.Context, session *models.Session, files []filehost.Source) (*UploadResult, error) {
	if err := access.Authorize(session, access.UploadDocuments); err != nil {
		return nil, err
	}
	if err := checkBatch(len(files)); err != nil {
		return nil, err
	}

	uploaded, failed := s.host.UploadAll(ctx, session.UserID, files)
	documents := make([]models.Document, 0, len(uploaded))
	for _, u := range uploaded {
		uploadedAt := u.UploadedAt
		documents = append(documents, models.Document{
			URL:          u.URL,
			OriginalName: u.OriginalName,
			ContentType:  u.ContentType,
			UploadedAt:   &uploadedAt,
		})
	}
	return &UploadResult{Documents: documents, Failed: wrapFailures(failed)}, nil
}

// Presign returns direct upload URLs for the calling patient
func (s *documentService) Presign(ctx context.Context, session *models.Session, reqs []filehost.PresignRequest) (*PresignResult, error) {
	if err := access.Authorize(session, access.UploadDocuments); err != nil {
		return nil, err
	}
	if err := checkBatch(len(reqs)); err != nil {
		return nil, err
	}
	uploads, failed := s.host.Presign(ctx, session.UserID, reqs)
	return &PresignResult{Uploads: uploads, Failed: wrapFailures(failed)}, nil
}

func checkBatch(n int) error {
	switch {
	case n == 0:
		return apperrors.Validation("no files").Add("files", "at least one file is required")
	case n > MaxFilesPerRequest:
		return apperrors.Validation("too many files").Add("files", fmt.Sprintf("at most %d files per request", MaxFilesPerRequest))
	}
	return nil
}

// wrapFailures marks file host failures as upstream errors. Files rejected
// before any network call keep their own error.
func wrapFailures(failed []filehost.Failure) []filehost.Failure {
	for i, f := range failed {
		if errors.Is(f.Err, filehost.ErrEmptyName) || errors.Is(f.Err, filehost.ErrTooLarge) || errors.Is(f.Err, filehost.ErrUnsupportedType) {
			continue
		}
		failed[i].Err = apperrors.Upstream("upload "+f.Name, f.Err)
	}
	return failed
}
