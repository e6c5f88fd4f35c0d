package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore mints opaque bearer tokens in Redis. Tokens expire server-side;
// there is nothing to verify client-side and revocation is a delete.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs the store.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func tokenKey(token string) string {
	return "auth:token:" + token
}

// Mint issues a fresh token for the user.
func (s *TokenStore) Mint(ctx context.Context, userID int64) (Session, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKey(token), userID, s.ttl).Err(); err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserID: userID, ExpiresAt: time.Now().Add(s.ttl)}, nil
}

// Resolve maps a token back to its user id, refreshing the TTL on each hit
// so active sessions slide instead of expiring mid-use.
func (s *TokenStore) Resolve(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.Get(ctx, tokenKey(token)).Result()
	if err == redis.Nil {
		return 0, ErrTokenExpired
	}
	if err != nil {
		return 0, err
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, ErrTokenExpired
	}
	_ = s.client.Expire(ctx, tokenKey(token), s.ttl).Err()
	return userID, nil
}

// Revoke deletes the token.
func (s *TokenStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, tokenKey(token)).Err()
}
