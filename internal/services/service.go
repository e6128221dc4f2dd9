package services

import (
	"context"

	"github.com/ArowuTest/healthclaims-backend/internal/claimfilter"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/pkg/filehost"
)

// ClaimService defines the claim lifecycle operations. Every method takes the
// caller's session and enforces the access table before touching the store.
type ClaimService interface {
	// Submit creates a pending claim for the calling patient
	Submit(ctx context.Context, session *models.Session, in SubmitClaimInput) (*models.Claim, error)

	// Review approves or rejects a claim
	Review(ctx context.Context, session *models.Session, claimID string, in ReviewInput) (*models.Claim, error)

	// Get returns one claim
	Get(ctx context.Context, session *models.Session, claimID string) (*models.Claim, error)

	// ListByPatient returns one patient's claims after applying spec
	ListByPatient(ctx context.Context, session *models.Session, patientID string, spec claimfilter.Spec) ([]*models.Claim, error)

	// ListAll returns every claim after applying spec
	ListAll(ctx context.Context, session *models.Session, spec claimfilter.Spec) ([]*models.Claim, error)

	// Stats summarises all claims for the insurer dashboard
	Stats(ctx context.Context, session *models.Session) (*models.ClaimStats, error)
}

// AuthService defines account and session operations
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error)
	Logout(ctx context.Context, session *models.Session) error
	Me(ctx context.Context, session *models.Session) (*models.User, error)

	// Authenticate turns a bearer token into a session
	Authenticate(ctx context.Context, token string) (*models.Session, error)
}

// DocumentService defines the document upload operations
type DocumentService interface {
	Upload(ctx context.Context, session *models.Session, files []filehost.Source) (*UploadResult, error)
	Presign(ctx context.Context, session *models.Session, reqs []filehost.PresignRequest) (*PresignResult, error)
}
