package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/stockroom-app/stockroom/internal/shared"
)

// RepositoryPort describes the account lookup surface.
type RepositoryPort interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
}

// TokenPort describes token issuance and validation.
type TokenPort interface {
	Mint(ctx context.Context, userID int64) (Session, error)
	Resolve(ctx context.Context, token string) (int64, error)
	Revoke(ctx context.Context, token string) error
}

// Service authenticates users and manages their sessions.
type Service struct {
	repo   RepositoryPort
	tokens TokenPort
}

// NewService constructs the auth service.
func NewService(repo RepositoryPort, tokens TokenPort) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login verifies credentials and mints a session token.
func (s *Service) Login(ctx context.Context, username, password string) (User, Session, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, Session{}, ErrInvalidCredentials
		}
		return User{}, Session{}, err
	}
	if !user.Active {
		return User{}, Session{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, Session{}, ErrInvalidCredentials
	}
	session, err := s.tokens.Mint(ctx, user.ID)
	if err != nil {
		return User{}, Session{}, err
	}
	return user, session, nil
}

// Logout revokes the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Identify resolves a bearer token into its user.
func (s *Service) Identify(ctx context.Context, token string) (User, error) {
	userID, err := s.tokens.Resolve(ctx, token)
	if err != nil {
		return User{}, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return User{}, ErrTokenExpired
		}
		return User{}, err
	}
	if !user.Active {
		return User{}, ErrTokenExpired
	}
	return user, nil
}

// HashPassword produces a bcrypt hash for account provisioning.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
