package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"invenflow.org/internal/mailer"
)

func newRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func seedAccount(t *testing.T, s *RedisStore) *Account {
	t.Helper()
	acc := &Account{
		Name:         "Redis Admin",
		Email:        "redis@example.com",
		Role:         RoleAdmin,
		PasswordHash: "$2a$10$irrelevant",
	}
	if err := s.Create(context.Background(), acc); err != nil {
		t.Fatalf("create: %v", err)
	}
	return acc
}

func TestRedisCreateAndFind(t *testing.T) {
	s := newRedisStore(t)
	acc := seedAccount(t, s)

	byID, err := s.FindByID(context.Background(), acc.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != "redis@example.com" {
		t.Fatalf("unexpected email %q", byID.Email)
	}

	byEmail, err := s.FindByEmail(context.Background(), "REDIS@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byEmail.ID != acc.ID {
		t.Fatalf("email index points at %q, want %q", byEmail.ID, acc.ID)
	}
}

func TestRedisCreateDuplicateEmail(t *testing.T) {
	s := newRedisStore(t)
	seedAccount(t, s)

	err := s.Create(context.Background(), &Account{Email: "redis@example.com"})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestRedisUpdateVersionConflict(t *testing.T) {
	s := newRedisStore(t)
	acc := seedAccount(t, s)
	ctx := context.Background()

	first, _ := s.FindByID(ctx, acc.ID)
	second, _ := s.FindByID(ctx, acc.ID)

	first.LoginAttempts = 1
	if err := s.Update(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second.LoginAttempts = 9
	if err := s.Update(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict on stale version, got %v", err)
	}

	stored, _ := s.FindByID(ctx, acc.ID)
	if stored.LoginAttempts != 1 {
		t.Fatalf("lost update: attempts=%d", stored.LoginAttempts)
	}
}

func TestRedisConsumeResetTokenSingleUse(t *testing.T) {
	s := newRedisStore(t)
	acc := seedAccount(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	expiry := now.Add(time.Hour)
	acc, _ = s.FindByID(ctx, acc.ID)
	acc.ResetToken = hashCode("ABC123")
	acc.ResetTokenExpiry = &expiry
	if err := s.Update(ctx, acc); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	got, err := s.ConsumeResetToken(ctx, acc.Email, hashCode("ABC123"), now)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if got.ResetToken != "" || got.ResetTokenExpiry != nil {
		t.Fatalf("token not cleared: %+v", got)
	}

	if _, err := s.ConsumeResetToken(ctx, acc.Email, hashCode("ABC123"), now); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("want ErrInvalidCode on replay, got %v", err)
	}
}

func TestRedisConsumeRejectsWrongAndExpired(t *testing.T) {
	s := newRedisStore(t)
	acc := seedAccount(t, s)
	ctx := context.Background()
	now := time.Now().UTC()

	expiry := now.Add(time.Hour)
	acc, _ = s.FindByID(ctx, acc.ID)
	acc.OTP = hashCode("FACE42")
	acc.ResetOTPExpiry = &expiry
	if err := s.Update(ctx, acc); err != nil {
		t.Fatalf("seed otp: %v", err)
	}

	if _, err := s.ConsumeOTP(ctx, acc.Email, hashCode("WRONG1"), now); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("want ErrInvalidCode on mismatch, got %v", err)
	}
	if _, err := s.ConsumeOTP(ctx, acc.Email, hashCode("FACE42"), now.Add(2*time.Hour)); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("want ErrInvalidCode on expiry, got %v", err)
	}
	// Failed attempts must not burn the code.
	if _, err := s.ConsumeOTP(ctx, acc.Email, hashCode("FACE42"), now); err != nil {
		t.Fatalf("valid consume after failed attempts: %v", err)
	}
}

func TestRedisServiceEndToEnd(t *testing.T) {
	s := newRedisStore(t)
	svc := NewService(s, &mailer.Recorder{})

	ctx := context.Background()
	acc, err := svc.Register(ctx, "E2E Admin", "e2e@example.com", "a solid password", RoleStaff)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Login(ctx, acc.Email, "a solid password"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Login(ctx, acc.Email, "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}
