package account

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"invenflow.org/internal/ids"
)

// Memory implements Store with in-process concurrency safety. It backs tests
// and development runs without a Redis instance.
type Memory struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]string // lowercased email -> id
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
	}
}

func (m *Memory) Create(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(a.Email))
	if _, ok := m.byEmail[email]; ok {
		return ErrAlreadyExists
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := time.Now().UTC()
	a.Email = email
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	m.byID[a.ID] = &cp
	m.byEmail[email] = a.ID
	return nil
}

func (m *Memory) FindByID(ctx context.Context, id string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) FindByEmail(ctx context.Context, email string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByEmailLocked(email)
}

func (m *Memory) findByEmailLocked(email string) (*Account, error) {
	id, ok := m.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) Update(ctx context.Context, a *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[a.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != a.Version {
		return ErrConflict
	}
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *Memory) ConsumeResetToken(ctx context.Context, email, codeHash string, now time.Time) (*Account, error) {
	return m.consume(email, codeHash, now, false)
}

func (m *Memory) ConsumeOTP(ctx context.Context, email, codeHash string, now time.Time) (*Account, error) {
	return m.consume(email, codeHash, now, true)
}

func (m *Memory) consume(email, codeHash string, now time.Time, otp bool) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found, err := m.findByEmailLocked(email)
	if err != nil {
		return nil, ErrInvalidCode
	}
	stored := m.byID[found.ID]

	hash, expiry := stored.ResetToken, stored.ResetTokenExpiry
	if otp {
		hash, expiry = stored.OTP, stored.ResetOTPExpiry
	}
	if hash == "" || expiry == nil || !expiry.After(now) {
		return nil, ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(hash), []byte(codeHash)) != 1 {
		return nil, ErrInvalidCode
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
	cp := *stored
	return &cp, nil
}
