package leveldb

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"github.com/syndtr/goleveldb/leveldb"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRepository stores users plus an email index
type UserRepository struct {
	db *leveldb.DB
	mu sync.Mutex
}

var _ repositories.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *leveldb.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user; the email must be unused
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	r.mu.Lock()
	defer r.mu.Unlock()

	exists, err := r.db.Has([]byte(emailPrefix+user.Email), nil)
	if err != nil {
		return err
	}
	if exists {
		return repositories.ErrDuplicate
	}

	now := time.Now().UTC()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = now
	user.UpdatedAt = now

	batch := new(leveldb.Batch)
	if err := putDoc(batch, userPrefix+user.ID.Hex(), user); err != nil {
		return err
	}
	batch.Put([]byte(emailPrefix+user.Email), []byte(user.ID.Hex()))
	return r.db.Write(batch, nil)
}

// FindByEmail finds a user by email address
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hexID, err := r.db.Get([]byte(emailPrefix+strings.ToLower(strings.TrimSpace(email))), nil)
	if err != nil {
		if isNotFound(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(string(hexID))
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindByID finds a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := getDoc(r.db, userPrefix+id.Hex(), &user); err != nil {
		if isNotFound(err) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
