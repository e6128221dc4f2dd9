// Package memory holds map-backed stores used by the "memory" storage driver
// and by service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.ClaimRepository = (*ClaimRepository)(nil)

// ClaimRepository keeps claims in process memory
type ClaimRepository struct {
	mu     sync.RWMutex
	claims map[primitive.ObjectID]*models.Claim
	order  []primitive.ObjectID
}

// NewClaimRepository creates an empty ClaimRepository
func NewClaimRepository() *ClaimRepository {
	return &ClaimRepository{claims: make(map[primitive.ObjectID]*models.Claim)}
}

// Create stores a copy of claim under a fresh id
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	claim.ID = primitive.NewObjectID()
	if claim.SubmissionDate.IsZero() {
		claim.SubmissionDate = time.Now().UTC()
	}
	if claim.Documents == nil {
		claim.Documents = []models.Document{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims[claim.ID] = cloneClaim(claim)
	r.order = append(r.order, claim.ID)
	return nil
}

// FindByID returns a copy of the stored claim
func (r *ClaimRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	claim, ok := r.claims[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneClaim(claim), nil
}

// FindByPatientID returns one patient's claims in submission order
func (r *ClaimRepository) FindByPatientID(ctx context.Context, patientID string) ([]*models.Claim, error) {
	return r.list(ctx, func(c *models.Claim) bool { return c.PatientID == patientID })
}

// FindAll returns every claim in submission order
func (r *ClaimRepository) FindAll(ctx context.Context) ([]*models.Claim, error) {
	return r.list(ctx, func(*models.Claim) bool { return true })
}

func (r *ClaimRepository) list(ctx context.Context, keep func(*models.Claim) bool) ([]*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	claims := []*models.Claim{}
	for _, id := range r.order {
		if c := r.claims[id]; keep(c) {
			claims = append(claims, cloneClaim(c))
		}
	}
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].SubmissionDate.Before(claims[j].SubmissionDate)
	})
	return claims, nil
}

// ApplyReview sets the review fields under the write lock
func (r *ClaimRepository) ApplyReview(ctx context.Context, id primitive.ObjectID, review models.ClaimReview, requirePending bool) (*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, ok := r.claims[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if requirePending && claim.Status != models.StatusPending {
		return nil, repositories.ErrStaleClaim
	}

	claim.Status = review.Status
	claim.ReviewedBy = review.ReviewedBy
	claim.Comments = review.Comments
	claim.ApprovedAmount = nil
	if review.ApprovedAmount != nil {
		amount := *review.ApprovedAmount
		claim.ApprovedAmount = &amount
	}
	return cloneClaim(claim), nil
}

// Seed inserts claims as-is, keeping their ids and dates. Zero ids are assigned.
func (r *ClaimRepository) Seed(claims ...*models.Claim) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range claims {
		if c.ID.IsZero() {
			c.ID = primitive.NewObjectID()
		}
		if _, exists := r.claims[c.ID]; !exists {
			r.order = append(r.order, c.ID)
		}
		r.claims[c.ID] = cloneClaim(c)
	}
}

func cloneClaim(c *models.Claim) *models.Claim {
	out := *c
	if c.ApprovedAmount != nil {
		amount := *c.ApprovedAmount
		out.ApprovedAmount = &amount
	}
	out.Documents = make([]models.Document, len(c.Documents))
	copy(out.Documents, c.Documents)
	return &out
}
