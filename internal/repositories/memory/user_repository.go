package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository keeps user accounts in process memory
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[primitive.ObjectID]*models.User
	byEmail map[string]primitive.ObjectID
}

// NewUserRepository creates an empty UserRepository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[primitive.ObjectID]*models.User),
		byEmail: make(map[string]primitive.ObjectID),
	}
}

// Create stores a new user; emails are unique regardless of case
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return repositories.ErrDuplicate
	}

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.Email = email
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[email] = user.ID
	return nil
}

// FindByEmail looks a user up case-insensitively
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	user := *r.byID[id]
	return &user, nil
}

// FindByID looks a user up by id
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	user := *stored
	return &user, nil
}
