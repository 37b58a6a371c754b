package account

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"invenflow.org/internal/ids"
)

const (
	recordKeyPrefix = "acct:id:"
	emailKeyPrefix  = "acct:email:"

	// watchRetries bounds optimistic-transaction retries before surfacing
	// ErrConflict to the caller.
	watchRetries = 4
)

var errRedisUnavailable = errors.New("account: redis unavailable")

// RedisStore persists account records in Redis. Each account lives under a
// record key with a separate email index key. All mutations run inside WATCH
// transactions so counter updates and code consumption stay atomic.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(id string) string { return recordKeyPrefix + id }

func emailKey(email string) string {
	return emailKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

func (s *RedisStore) Create(ctx context.Context, a *Account) error {
	if a.ID == "" {
		a.ID = ids.New()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	data, err := json.Marshal(a)
	if err != nil {
		return err
	}

	// The email index is the uniqueness guard: claim it first with SETNX,
	// then write the record.
	ok, err := s.client.SetNX(ctx, emailKey(a.Email), a.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	if !ok {
		return ErrAlreadyExists
	}
	if err := s.client.Set(ctx, recordKey(a.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, id string) (*Account, error) {
	data, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return decodeRecord(data)
}

func (s *RedisStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	id, err := s.client.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	return s.FindByID(ctx, id)
}

func (s *RedisStore) Update(ctx context.Context, a *Account) error {
	key := recordKey(a.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}
		stored, err := decodeRecord(data)
		if err != nil {
			return err
		}
		if stored.Version != a.Version {
			return ErrConflict
		}

		a.Version++
		a.UpdatedAt = time.Now().UTC()
		encoded, err := json.Marshal(a)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		// Somebody wrote between our read and commit; the version we hold
		// is stale either way.
		return ErrConflict
	case errors.Is(err, ErrConflict), errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
}

func (s *RedisStore) ConsumeResetToken(ctx context.Context, email, codeHash string, now time.Time) (*Account, error) {
	return s.consume(ctx, email, codeHash, now, false)
}

func (s *RedisStore) ConsumeOTP(ctx context.Context, email, codeHash string, now time.Time) (*Account, error) {
	return s.consume(ctx, email, codeHash, now, true)
}

// consume validates and clears a verification code in one WATCH transaction,
// so two concurrent verifications of the same code cannot both succeed.
func (s *RedisStore) consume(ctx context.Context, email, codeHash string, now time.Time, otp bool) (*Account, error) {
	id, err := s.client.Get(ctx, emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("%w: %v", errRedisUnavailable, err)
	}
	key := recordKey(id)

	for i := 0; i < watchRetries; i++ {
		var consumed *Account

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return ErrInvalidCode
				}
				return err
			}
			stored, err := decodeRecord(data)
			if err != nil {
				return err
			}

			hash, expiry := stored.ResetToken, stored.ResetTokenExpiry
			if otp {
				hash, expiry = stored.OTP, stored.ResetOTPExpiry
			}
			if hash == "" || expiry == nil || !expiry.After(now) {
				return ErrInvalidCode
			}
			if subtle.ConstantTimeCompare([]byte(hash), []byte(codeHash)) != 1 {
				return ErrInvalidCode
			}

			if otp {
				stored.OTP = ""
				stored.ResetOTPExpiry = nil
			} else {
				stored.ResetToken = ""
				stored.ResetTokenExpiry = nil
			}
			stored.Version++
			stored.UpdatedAt = time.Now().UTC()
			encoded, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				return nil
			})
			if err != nil {
				return err
			}
			consumed = stored
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, ErrInvalidCode) {
				return nil, ErrInvalidCode
			}
			return nil, fmt.Errorf("%w: %v", errRedisUnavailable, err)
		}
		return consumed, nil
	}
	return nil, ErrConflict
}

func decodeRecord(data []byte) (*Account, error) {
	var a Account
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("account: decode record: %w", err)
	}
	return &a, nil
}
