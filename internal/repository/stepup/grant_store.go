package stepup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"corevai-be/internal/constant"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// GrantStore records short-lived proofs that a user recently passed a
// TOTP or backup-code challenge. Grants are keyed by an opaque token so
// the cookie value alone is useless without the matching Redis entry.
type GrantStore interface {
	Grant(ctx context.Context, userId uuid.UUID) (token string, err error)
	Check(ctx context.Context, userId uuid.UUID, token string) (bool, error)
	Revoke(ctx context.Context, userId uuid.UUID, token string) error
	RevokeAll(ctx context.Context, userId uuid.UUID) error
}

type RedisGrantStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGrantStore(rdb *redis.Client) GrantStore {
	return &RedisGrantStore{
		rdb: rdb,
		ttl: constant.StepUpWindow,
	}
}

func grantKey(userId uuid.UUID, token string) string {
	return "stepup:" + userId.String() + ":" + token
}

func (s *RedisGrantStore) Grant(ctx context.Context, userId uuid.UUID) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	if err := s.rdb.Set(ctx, grantKey(userId, token), "1", s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisGrantStore) Check(ctx context.Context, userId uuid.UUID, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, grantKey(userId, token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisGrantStore) Revoke(ctx context.Context, userId uuid.UUID, token string) error {
	return s.rdb.Del(ctx, grantKey(userId, token)).Err()
}

func (s *RedisGrantStore) RevokeAll(ctx context.Context, userId uuid.UUID) error {
	iter := s.rdb.Scan(ctx, 0, "stepup:"+userId.String()+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
