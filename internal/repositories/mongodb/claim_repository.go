package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Compile-time check to ensure ClaimRepository implements the interface
var _ repositories.ClaimRepository = (*ClaimRepository)(nil)

// ClaimRepository handles MongoDB operations for Claim
type ClaimRepository struct {
	collection *mongo.Collection
}

// NewClaimRepository creates a new ClaimRepository
func NewClaimRepository(db *mongo.Database) *ClaimRepository {
	return &ClaimRepository{
		collection: db.Collection(ClaimsCollection),
	}
}

// Create inserts a new claim
func (r *ClaimRepository) Create(ctx context.Context, claim *models.Claim) error {
	claim.ID = primitive.NewObjectID()
	if claim.SubmissionDate.IsZero() {
		claim.SubmissionDate = time.Now().UTC()
	}
	if claim.Documents == nil {
		claim.Documents = []models.Document{}
	}
	_, err := r.collection.InsertOne(ctx, claim)
	return err
}

// FindByID finds a claim by ID
func (r *ClaimRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error) {
	var claim models.Claim
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&claim)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &claim, nil
}

// FindByPatientID retrieves all claims submitted by one patient
func (r *ClaimRepository) FindByPatientID(ctx context.Context, patientID string) ([]*models.Claim, error) {
	return r.find(ctx, bson.M{"patientId": patientID})
}

// FindAll retrieves all claims
func (r *ClaimRepository) FindAll(ctx context.Context) ([]*models.Claim, error) {
	return r.find(ctx, bson.M{})
}

func (r *ClaimRepository) find(ctx context.Context, filter bson.M) ([]*models.Claim, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submissionDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var claims []*models.Claim
	if err = cursor.All(ctx, &claims); err != nil {
		return nil, err
	}
	if claims == nil {
		claims = []*models.Claim{}
	}
	return claims, nil
}

// ApplyReview atomically sets the review fields. The pending check lives in the
// update filter, so two concurrent reviews cannot both match.
func (r *ClaimRepository) ApplyReview(ctx context.Context, id primitive.ObjectID, review models.ClaimReview, requirePending bool) (*models.Claim, error) {
	filter := bson.M{"_id": id}
	if requirePending {
		filter["status"] = models.StatusPending
	}

	set := bson.M{
		"status":     review.Status,
		"reviewedBy": review.ReviewedBy,
		"comments":   review.Comments,
	}
	update := bson.M{"$set": set}
	if review.ApprovedAmount != nil {
		set["approvedAmount"] = *review.ApprovedAmount
	} else {
		update["$unset"] = bson.M{"approvedAmount": ""}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var claim models.Claim
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&claim)
	if err == nil {
		return &claim, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	// Nothing matched: unknown id, or the claim already left pending
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, repositories.ErrStaleClaim
}
