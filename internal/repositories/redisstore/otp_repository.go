// Package redisstore keeps one-time codes in Redis so every replica sees the same code.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/disbursement_ledger/internal/apperrors"
	"github.com/SscSPs/disbursement_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/disbursement_ledger/internal/core/ports/repositories"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:"

// consumeScript deletes the key only while it still holds the expected hash.
var consumeScript = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], 'hash')
if stored ~= ARGV[1] then
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

type OTPRepository struct {
	client redis.UniversalClient
}

var _ portsrepo.OTPRepository = (*OTPRepository)(nil)

// NewOTPRepository stores codes through client.
func NewOTPRepository(client redis.UniversalClient) *OTPRepository {
	return &OTPRepository{client: client}
}

// NewClient parses a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func key(identifier string) string {
	return keyPrefix + identifier
}

// ReplaceCode overwrites any earlier code and lets Redis expire the key with the code.
func (r *OTPRepository) ReplaceCode(ctx context.Context, code domain.OneTimeCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("%w: code already expired", apperrors.ErrValidation)
	}
	k := key(code.Identifier)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"hash", code.CodeHash,
			"expires_at", code.ExpiresAt.UTC().Format(time.RFC3339Nano),
			"created_at", code.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store one-time code: %w", err)
	}
	return nil
}

func (r *OTPRepository) FindActiveCode(ctx context.Context, identifier string, now time.Time) (*domain.OneTimeCode, error) {
	fields, err := r.client.HGetAll(ctx, key(identifier)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load one-time code: %w", err)
	}
	if fields["hash"] == "" {
		return nil, apperrors.ErrNotFound
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, fields["expires_at"])
	if err != nil {
		return nil, fmt.Errorf("failed to decode one-time code expiry: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339Nano, fields["created_at"])
	code := domain.OneTimeCode{
		Identifier: identifier,
		CodeHash:   fields["hash"],
		ExpiresAt:  expiresAt,
		CreatedAt:  createdAt,
	}
	if code.Expired(now) {
		return nil, apperrors.ErrNotFound
	}
	return &code, nil
}

func (r *OTPRepository) ConsumeCode(ctx context.Context, identifier, codeHash string) (bool, error) {
	deleted, err := consumeScript.Run(ctx, r.client, []string{key(identifier)}, codeHash).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume one-time code: %w", err)
	}
	return deleted == 1, nil
}
