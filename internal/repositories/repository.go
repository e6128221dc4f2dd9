package repositories

import (
	"context"
	"errors"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store-level errors. Every implementation maps its driver errors onto these.
var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("record already exists")
	ErrStaleClaim = errors.New("claim is no longer pending")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ClaimRepository defines the interface for the claim record store
type ClaimRepository interface {
	// Create assigns the id and persists a new claim
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error)
	// FindByPatientID returns a patient's claims in submission order
	FindByPatientID(ctx context.Context, patientID string) ([]*models.Claim, error)
	// FindAll returns every claim in submission order
	FindAll(ctx context.Context) ([]*models.Claim, error)
	// ApplyReview writes status, reviewer, comments and approved amount in one
	// atomic update. With requirePending the write only matches a pending claim
	// and ErrStaleClaim is returned otherwise.
	ApplyReview(ctx context.Context, id primitive.ObjectID, review models.ClaimReview, requirePending bool) (*models.Claim, error)
}
