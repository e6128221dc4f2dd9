package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ArowuTest/healthclaims-backend/internal/access"
	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/claimfilter"
	"github.com/ArowuTest/healthclaims-backend/internal/config"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MinDescriptionLength is the shortest accepted claim description
const MinDescriptionLength = 5

// SubmitClaimInput carries the patient supplied claim fields
type SubmitClaimInput struct {
	Amount      float64
	Description string
	Documents   []models.Document
}

// ReviewInput carries an insurer's decision
type ReviewInput struct {
	Decision       models.ClaimStatus
	ApprovedAmount *float64
	Comments       string
}

type claimService struct {
	claimRepo    repositories.ClaimRepository
	reviewPolicy string
	logger       *zap.Logger
	now          func() time.Time
}

// NewClaimService creates a ClaimService. An empty policy means pending-only.
func NewClaimService(claimRepo repositories.ClaimRepository, reviewPolicy string, logger *zap.Logger) ClaimService {
	if reviewPolicy == "" {
		reviewPolicy = config.ReviewPolicyPendingOnly
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &claimService{
		claimRepo:    claimRepo,
		reviewPolicy: reviewPolicy,
		logger:       logger,
		now:          time.Now,
	}
}

// Submit creates a pending claim owned by the session's patient
func (s *claimService) Submit(ctx context.Context, session *models.Session, in SubmitClaimInput) (*models.Claim, error) {
	if err := access.Authorize(session, access.SubmitClaim); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	verr := apperrors.Validation("invalid claim")
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		verr.Add("amount", "must be a positive number")
	}
	if utf8.RuneCountInString(description) < MinDescriptionLength {
		verr.Add("description", fmt.Sprintf("must be at least %d characters", MinDescriptionLength))
	}
	documents := make([]models.Document, 0, len(in.Documents))
	for i, doc := range in.Documents {
		doc.URL = strings.TrimSpace(doc.URL)
		if !doc.HasHTTPURL() {
			verr.Add(fmt.Sprintf("documents[%d].url", i), "must be an absolute http or https URL")
			continue
		}
		documents = append(documents, doc)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	claim := &models.Claim{
		PatientID:      session.UserID,
		PatientName:    session.Name,
		PatientEmail:   session.Email,
		Amount:         in.Amount,
		Description:    description,
		Status:         models.StatusPending,
		SubmissionDate: s.now().UTC(),
		Documents:      documents,
	}
	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.logger.Info("claim submitted",
		zap.String("claim_id", claim.ID.Hex()),
		zap.String("patient_id", claim.PatientID),
		zap.Float64("amount", claim.Amount),
		zap.Int("documents", len(claim.Documents)))
	return claim, nil
}

// Review moves a claim out of pending. Authorization is checked before the
// claim is looked up so patients cannot probe ids.
func (s *claimService) Review(ctx context.Context, session *models.Session, claimID string, in ReviewInput) (*models.Claim, error) {
	if err := access.Authorize(session, access.ReviewClaim); err != nil {
		return nil, err
	}

	verr := apperrors.Validation("invalid review")
	if !in.Decision.IsDecision() {
		verr.Add("status", "must be approved or rejected")
	}
	comments := strings.TrimSpace(in.Comments)
	if comments == "" {
		verr.Add("comments", "are required")
	}
	if in.Decision == models.StatusApproved && in.ApprovedAmount != nil {
		if a := *in.ApprovedAmount; math.IsNaN(a) || math.IsInf(a, 0) || a <= 0 {
			verr.Add("approvedAmount", "must be a positive number")
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	id, err := primitive.ObjectIDFromHex(claimID)
	if err != nil {
		return nil, apperrors.NotFound("claim", claimID)
	}
	claim, err := s.claimRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, claimID)
	}

	requirePending := s.reviewPolicy == config.ReviewPolicyPendingOnly
	if requirePending && claim.Status != models.StatusPending {
		return nil, apperrors.Conflict("claim %s was already %s", claimID, claim.Status)
	}

	review := models.ClaimReview{
		Status:     in.Decision,
		ReviewedBy: session.UserID,
		Comments:   comments,
	}
	if in.Decision == models.StatusApproved {
		amount := claim.Amount
		if in.ApprovedAmount != nil {
			amount = *in.ApprovedAmount
		}
		review.ApprovedAmount = &amount
	}

	updated, err := s.claimRepo.ApplyReview(ctx, id, review, requirePending)
	if err != nil {
		return nil, s.storeError(err, claimID)
	}

	s.logger.Info("claim reviewed",
		zap.String("claim_id", claimID),
		zap.String("reviewer_id", session.UserID),
		zap.String("decision", string(in.Decision)),
		zap.String("previous_status", string(claim.Status)))
	return updated, nil
}

// Get returns a claim; patients only see their own. A patient asking for an
// unknown id gets the same AuthorizationError as for another patient's claim.
func (s *claimService) Get(ctx context.Context, session *models.Session, claimID string) (*models.Claim, error) {
	if err := access.Authorize(session, access.ViewClaim); err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(claimID)
	if err != nil {
		return nil, s.missingClaim(session, claimID)
	}
	claim, err := s.claimRepo.FindByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, s.missingClaim(session, claimID)
	}
	if err != nil {
		return nil, s.storeError(err, claimID)
	}
	if err := access.AuthorizeOwner(session, access.ViewClaim, claim.PatientID); err != nil {
		return nil, err
	}
	return claim, nil
}

func (s *claimService) missingClaim(session *models.Session, claimID string) error {
	if session.IsPatient() {
		return access.AuthorizeOwner(session, access.ViewClaim, "")
	}
	return apperrors.NotFound("claim", claimID)
}

// ListByPatient returns patientID's claims; a patient may only ask for themselves
func (s *claimService) ListByPatient(ctx context.Context, session *models.Session, patientID string, spec claimfilter.Spec) ([]*models.Claim, error) {
	if err := access.AuthorizeOwner(session, access.ListOwnClaims, patientID); err != nil {
		return nil, err
	}
	claims, err := s.claimRepo.FindByPatientID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list claims for patient %s: %w", patientID, err)
	}
	return claimfilter.Filter(claims, spec), nil
}

// ListAll returns every claim
func (s *claimService) ListAll(ctx context.Context, session *models.Session, spec claimfilter.Spec) ([]*models.Claim, error) {
	if err := access.Authorize(session, access.ListAllClaims); err != nil {
		return nil, err
	}
	claims, err := s.claimRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claimfilter.Filter(claims, spec), nil
}

// Stats summarises every claim
func (s *claimService) Stats(ctx context.Context, session *models.Session) (*models.ClaimStats, error) {
	if err := access.Authorize(session, access.ViewStats); err != nil {
		return nil, err
	}
	claims, err := s.claimRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	stats := Summarize(claims)
	return &stats, nil
}

// Summarize counts claims by status and totals their amounts. Money is summed
// as decimals and rounded to cents.
func Summarize(claims []*models.Claim) models.ClaimStats {
	var (
		stats    models.ClaimStats
		claimed  = decimal.Zero
		approved = decimal.Zero
	)
	for _, c := range claims {
		stats.Total++
		claimed = claimed.Add(decimal.NewFromFloat(c.Amount))
		switch c.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusApproved:
			stats.Approved++
			if c.ApprovedAmount != nil {
				approved = approved.Add(decimal.NewFromFloat(*c.ApprovedAmount))
			}
		case models.StatusRejected:
			stats.Rejected++
		}
	}

	stats.TotalClaimedAmount = claimed.Round(2).InexactFloat64()
	stats.TotalApprovedAmount = approved.Round(2).InexactFloat64()
	if stats.Total > 0 {
		stats.AverageClaimAmount = claimed.Div(decimal.NewFromInt(int64(stats.Total))).Round(2).InexactFloat64()
	}
	return stats
}

// storeError translates repository errors into the service taxonomy
func (s *claimService) storeError(err error, claimID string) error {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return apperrors.NotFound("claim", claimID)
	case errors.Is(err, repositories.ErrStaleClaim):
		return apperrors.Conflict("claim %s is no longer pending", claimID)
	default:
		return fmt.Errorf("claim %s: %w", claimID, err)
	}
}
