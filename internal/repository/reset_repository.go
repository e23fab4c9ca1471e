package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResetRepo stores password-reset tokens in Redis under a TTL. The token
// itself is the secret; Redis expiry is the only invalidation mechanism
// besides one-shot consumption.
type ResetRepo struct {
	RDB    *redis.Client
	Prefix string
}

func NewResetRepo(rdb *redis.Client) *ResetRepo {
	return &ResetRepo{RDB: rdb, Prefix: "pwreset"}
}

func (r *ResetRepo) key(email string) string { return r.Prefix + ":" + email }

// Store saves the reset token for an email, replacing any outstanding one.
func (r *ResetRepo) Store(ctx context.Context, email, token string, ttl time.Duration) error {
	if r.RDB == nil {
		return errors.New("reset store unavailable")
	}
	return r.RDB.Set(ctx, r.key(email), token, ttl).Err()
}

// Consume validates and deletes the token in one pass. It returns
// ErrNotFound when the token is absent, expired or does not match.
func (r *ResetRepo) Consume(ctx context.Context, email, token string) error {
	if r.RDB == nil {
		return ErrNotFound
	}
	stored, err := r.RDB.Get(ctx, r.key(email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	// Only a matching token consumes the stored one; a wrong guess must
	// not invalidate an outstanding reset.
	if stored != token {
		return ErrNotFound
	}
	return r.RDB.Del(ctx, r.key(email)).Err()
}
