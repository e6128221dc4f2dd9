package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/healthclaims-backend/internal/apperrors"
	"github.com/ArowuTest/healthclaims-backend/internal/models"
	"github.com/ArowuTest/healthclaims-backend/internal/repositories"
	"github.com/ArowuTest/healthclaims-backend/pkg/jwt"
	"github.com/ArowuTest/healthclaims-backend/pkg/revocation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest accepted password
const MinPasswordLength = 6

type authService struct {
	userRepo    repositories.UserRepository
	tokens      *jwt.TokenService
	revocations revocation.Store
	logger      *zap.Logger
	bcryptCost  int
}

// NewAuthService creates a new AuthService implementation
func NewAuthService(userRepo repositories.UserRepository, tokens *jwt.TokenService, revocations revocation.Store, logger *zap.Logger) AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &authService{
		userRepo:    userRepo,
		tokens:      tokens,
		revocations: revocations,
		logger:      logger,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// Register creates an account and signs the new user in
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResponse, error) {
	verr := apperrors.Validation("invalid registration")
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if name == "" {
		verr.Add("name", "is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		verr.Add("email", "must be a valid email address")
	}
	if len(req.Password) < MinPasswordLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if !req.Role.Valid() {
		verr.Add("role", "must be patient or insurer")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     req.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, apperrors.Conflict("an account with email %s already exists", email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	return s.signIn(user)
}

// Login checks the credentials and that the account holds the selected role
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.Unauthenticated("invalid email or password")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthenticated("invalid email or password")
	}
	if user.Role != req.Role {
		s.logger.Warn("login with mismatched role",
			zap.String("user_id", user.ID.Hex()),
			zap.String("requested_role", string(req.Role)))
		return nil, apperrors.Unauthenticated("invalid email or password")
	}

	return s.signIn(user)
}

func (s *authService) signIn(user *models.User) (*models.AuthResponse, error) {
	token, _, err := s.tokens.Issue(jwt.Subject{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
		Role:  string(user.Role),
	})
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Logout revokes the session's token until it would have expired
func (s *authService) Logout(ctx context.Context, session *models.Session) error {
	if session == nil || session.TokenID == "" {
		return apperrors.Unauthenticated("authentication required")
	}
	if err := s.revocations.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return apperrors.Upstream("revoke token", err)
	}
	return nil
}

// Me returns the account behind the session
func (s *authService) Me(ctx context.Context, session *models.Session) (*models.User, error) {
	if session == nil {
		return nil, apperrors.Unauthenticated("authentication required")
	}
	id, err := primitive.ObjectIDFromHex(session.UserID)
	if err != nil {
		return nil, apperrors.NotFound("user", session.UserID)
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperrors.NotFound("user", session.UserID)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.Password = ""
	return user, nil
}

// Authenticate verifies token and rejects revoked ones
func (s *authService) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, apperrors.Unauthenticated("token has expired")
		}
		return nil, apperrors.Unauthenticated("invalid token")
	}

	role := models.UserRole(claims.Role)
	if !role.Valid() {
		return nil, apperrors.Unauthenticated("invalid token")
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperrors.Upstream("check token revocation", err)
	}
	if revoked {
		return nil, apperrors.Unauthenticated("token has been revoked")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &models.Session{
		UserID:    claims.Subject,
		Name:      claims.Name,
		Email:     claims.Email,
		Role:      role,
		TokenID:   claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}
