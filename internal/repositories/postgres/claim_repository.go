package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.ClaimRepository = (*ClaimRepository)(nil)

const claimCols = `id, patient_id, patient_name, patient_email, amount, description, status,
	submission_date, approved_amount, COALESCE(reviewed_by, ''), COALESCE(comments, ''), documents`

// ClaimRepository stores claims in the claims table
type ClaimRepository struct {
	pool *pgxpool.Pool
}

// NewClaimRepository creates a ClaimRepository
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
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

	_, err := r.pool.Exec(ctx, `
		INSERT INTO claims (id, patient_id, patient_name, patient_email, amount, description, status, submission_date, documents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		claim.ID.Hex(), claim.PatientID, claim.PatientName, claim.PatientEmail,
		claim.Amount, claim.Description, string(claim.Status), claim.SubmissionDate, claim.Documents,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// FindByID returns one claim
func (r *ClaimRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Claim, error) {
	claim, err := scanClaim(r.pool.QueryRow(ctx, `SELECT `+claimCols+` FROM claims WHERE id = $1`, id.Hex()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return claim, nil
}

// FindByPatientID returns one patient's claims in submission order
func (r *ClaimRepository) FindByPatientID(ctx context.Context, patientID string) ([]*models.Claim, error) {
	return r.query(ctx, `SELECT `+claimCols+` FROM claims WHERE patient_id = $1 ORDER BY submission_date, id`, patientID)
}

// FindAll returns every claim in submission order
func (r *ClaimRepository) FindAll(ctx context.Context) ([]*models.Claim, error) {
	return r.query(ctx, `SELECT `+claimCols+` FROM claims ORDER BY submission_date, id`)
}

func (r *ClaimRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Claim, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	claims := []*models.Claim{}
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

// ApplyReview updates the review columns in a single statement; with
// requirePending the WHERE clause only matches a pending row.
func (r *ClaimRepository) ApplyReview(ctx context.Context, id primitive.ObjectID, review models.ClaimReview, requirePending bool) (*models.Claim, error) {
	sql := `UPDATE claims SET status = $2, reviewed_by = $3, comments = $4, approved_amount = $5 WHERE id = $1`
	if requirePending {
		sql += ` AND status = 'pending'`
	}
	sql += ` RETURNING ` + claimCols

	claim, err := scanClaim(r.pool.QueryRow(ctx, sql,
		id.Hex(), string(review.Status), review.ReviewedBy, review.Comments, review.ApprovedAmount))
	if err == nil {
		return claim, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, repositories.ErrStaleClaim
}

func scanClaim(row pgx.Row) (*models.Claim, error) {
	var (
		c      models.Claim
		id     string
		status string
	)
	err := row.Scan(&id, &c.PatientID, &c.PatientName, &c.PatientEmail, &c.Amount, &c.Description, &status,
		&c.SubmissionDate, &c.ApprovedAmount, &c.ReviewedBy, &c.Comments, &c.Documents)
	if err != nil {
		return nil, err
	}
	if c.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("claim id %q: %w", id, err)
	}
	c.Status = models.ClaimStatus(status)
	c.SubmissionDate = c.SubmissionDate.UTC()
	if c.Documents == nil {
		c.Documents = []models.Document{}
	}
	return &c, nil
}
