package leveldb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"github.com/syndtr/goleveldb/leveldb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClaimRepository stores claims as BSON values keyed by id
type ClaimRepository struct {
	db *leveldb.DB
	mu sync.Mutex
}

var _ repositories.ClaimRepository = (*ClaimRepository)(nil)

// NewClaimRepository creates a new ClaimRepository
func NewClaimRepository(db *leveldb.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func claimKey(id primitive.ObjectID) string { return claimPrefix + id.Hex() }

// Create inserts a new claim
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

	batch := new(leveldb.Batch)
	if err := putDoc(batch, claimKey(claim.ID), claim); err != nil {
		return err
	}
	return r.db.Write(batch, nil)
}

// FindByID finds a claim by ID
func (r *ClaimRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var claim models.Claim
	if err := getDoc(r.db, claimKey(id), &claim); err != nil {
		if isNotFound(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// FindByPatientID returns a patient's claims in submission order
func (r *ClaimRepository) FindByPatientID(ctx context.Context, patientID string) ([]*models.Claim, error) {
	claims, err := r.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := claims[:0]
	for _, c := range claims {
		if c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out, nil
}

// FindAll returns every claim in submission order
func (r *ClaimRepository) FindAll(ctx context.Context) ([]*models.Claim, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	claims, err := scan[models.Claim](r.db, claimPrefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].SubmissionDate.Before(claims[j].SubmissionDate)
	})
	return claims, nil
}

// ApplyReview updates the review fields under the repository lock
func (r *ClaimRepository) ApplyReview(ctx context.Context, id primitive.ObjectID, review models.ClaimReview, requirePending bool) (*models.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requirePending && claim.Status != models.StatusPending {
		return nil, repositories.ErrStaleClaim
	}

	claim.Status = review.Status
	claim.ApprovedAmount = review.ApprovedAmount
	claim.ReviewedBy = review.ReviewedBy
	claim.Comments = review.Comments

	batch := new(leveldb.Batch)
	if err := putDoc(batch, claimKey(id), claim); err != nil {
		return nil, err
	}
	if err := r.db.Write(batch, nil); err != nil {
		return nil, err
	}
	return claim, nil
}
