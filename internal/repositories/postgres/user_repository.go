package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.UserRepository = (*UserRepository)(nil)

const userCols = `id, name, email, password, role, created_at, updated_at`

// uniqueViolation is the SQLSTATE for a unique constraint failure
const uniqueViolation = "23505"

// UserRepository stores accounts in the users table
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a UserRepository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create inserts a user with a lower-cased email
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `INSERT INTO users (`+userCols+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID.Hex(), user.Name, user.Email, user.Password, string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repositories.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByEmail looks a user up case-insensitively
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

// FindByID looks a user up by id
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id.Hex())
}

func (r *UserRepository) findOne(ctx context.Context, sql string, arg any) (*models.User, error) {
	var (
		u    models.User
		id   string
		role string
	)
	err := r.pool.QueryRow(ctx, sql, arg).Scan(&id, &u.Name, &u.Email, &u.Password, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	if u.ID, err = primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("user id %q: %w", id, err)
	}
	u.Role = models.UserRole(role)
	return &u, nil
}
