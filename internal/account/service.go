package account

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"invenflow.org/internal/mailer"
	"invenflow.org/internal/obs"
)

const (
	// casRetries bounds how often a read-modify-write cycle is replayed
	// after losing a version race before giving up with ErrConflict.
	casRetries = 4

	// enumerationDelay pads responses for unknown emails in the code-request
	// flows so their timing matches the known-email path.
	enumerationDelay = time.Second

	// minPasswordLength matches the registration validator.
	minPasswordLength = 8

	notifyTimeout = 10 * time.Second
)

// Service implements the account-security core: registration, the login
// throttling and lock state machine, and the reset/unlock flows.
type Service struct {
	store Store
	mail  mailer.Sender
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithSleeper overrides the artificial-delay primitive (useful for tests).
func WithSleeper(fn func(ctx context.Context, d time.Duration)) Option {
	return func(s *Service) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// NewService constructs the core service around a store and a mail sender.
func NewService(store Store, sender mailer.Sender, opts ...Option) *Service {
	s := &Service{
		store: store,
		mail:  sender,
		now:   time.Now,
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

// Register creates an account with zeroed security counters and returns it.
func (s *Service) Register(ctx context.Context, name, email, password string, role Role) (*Account, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || !validEmail(email) || len(password) < minPasswordLength {
		return nil, ErrInvalidInput
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	acc := &Account{
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.store.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

// Get returns the account behind an authenticated session.
func (s *Service) Get(ctx context.Context, id string) (*Account, error) {
	return s.store.FindByID(ctx, id)
}

// Login runs the throttling and lock state machine for one attempt.
//
// The returned errors map onto the HTTP surface: ErrInvalidCredentials for
// unknown emails and wrong passwords alike, *LockedError while a lock gates
// the account, ErrConflict only when the version race cannot be won within
// casRetries. Counter mutations persist through Update's compare-and-swap,
// so two racing wrong-password attempts both land: the loser re-reads and
// replays against the fresh counters.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	for i := 0; i < casRetries; i++ {
		acc, err := s.store.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Burn a comparison so unknown emails cost as much as
				// wrong passwords.
				_ = VerifyPassword(dummyHash, password)
				obs.ObserveLogin("invalid")
				return nil, ErrInvalidCredentials
			}
			return nil, err
		}
		now := s.now().UTC()

		if acc.LockedManually {
			obs.ObserveLogin("locked")
			return nil, &LockedError{Manual: true}
		}
		if acc.TimeLocked(now) {
			obs.ObserveLogin("locked")
			return nil, &LockedError{RetryAfter: acc.LockUntil.Sub(now)}
		}
		if acc.LockUntil != nil {
			// The lock has expired: clear it fully before checking
			// credentials. A fresh failure cycle starts at level zero.
			acc.LockUntil = nil
			acc.LockLevel = 0
			acc.LoginAttempts = 0
			if err := s.store.Update(ctx, acc); err != nil {
				if errors.Is(err, ErrConflict) {
					continue
				}
				return nil, err
			}
		}

		if err := VerifyPassword(acc.PasswordHash, password); err != nil {
			escalated := s.recordFailure(acc, now)
			if err := s.store.Update(ctx, acc); err != nil {
				if errors.Is(err, ErrConflict) {
					continue
				}
				return nil, err
			}
			if escalated {
				obs.ObserveLockEscalation()
				if acc.LockedManually {
					s.notifyLocked(acc.Email)
				}
			}
			obs.ObserveLogin("invalid")
			return nil, ErrInvalidCredentials
		}

		// Correct password: reset the counters before issuing a session.
		if acc.LoginAttempts > 0 || acc.LockLevel > 0 {
			acc.LoginAttempts = 0
			acc.LockLevel = 0
			acc.LockUntil = nil
			acc.LastLogin = &now
			if err := s.store.Update(ctx, acc); err != nil {
				if errors.Is(err, ErrConflict) {
					continue
				}
				return nil, err
			}
		}
		obs.ObserveLogin("success")
		return acc, nil
	}
	return nil, ErrConflict
}

// recordFailure advances the attempt counter and, at the threshold, the lock
// level. Reports whether the lock level escalated.
func (s *Service) recordFailure(acc *Account, now time.Time) bool {
	acc.LoginAttempts++
	if acc.LoginAttempts < MaxAttempts {
		return false
	}
	acc.LockLevel++
	acc.LoginAttempts = 0

	if acc.LockLevel >= manualLockLevel {
		acc.LockedManually = true
		acc.LockUntil = nil
	} else {
		until := now.Add(lockDuration(acc.LockLevel))
		acc.LockUntil = &until
	}
	return true
}

// notifyLocked emails the holder that the account is now manually locked.
// Fire-and-forget: delivery failure is logged and never fails the login
// request that triggered it.
func (s *Service) notifyLocked(email string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.mail.Send(ctx, mailer.LockNoticeMessage(email)); err != nil {
			obs.LogError("lock notice email failed", err, map[string]any{"email": email})
		}
	}()
}

// RequestReset issues a password-reset code and emails it to the holder.
//
// The empty-string return with a nil error means the email is unknown; the
// handler responds with the same generic success either way, after the
// built-in delay has equalized response timing.
func (s *Service) RequestReset(ctx context.Context, email string) (string, error) {
	return s.issueCode(ctx, email, "reset")
}

// RequestOTP issues an account-unlock one-time passcode.
func (s *Service) RequestOTP(ctx context.Context, email string) (string, error) {
	return s.issueCode(ctx, email, "otp")
}

func (s *Service) issueCode(ctx context.Context, email, kind string) (string, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return "", ErrInvalidInput
	}

	for i := 0; i < casRetries; i++ {
		acc, err := s.store.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				s.sleep(ctx, enumerationDelay)
				return "", nil
			}
			return "", err
		}

		plain, hash, err := generateCode()
		if err != nil {
			return "", err
		}
		expiry := s.now().UTC().Add(codeTTL)
		var msg mailer.Message
		if kind == "otp" {
			acc.OTP = hash
			acc.ResetOTPExpiry = &expiry
			msg = mailer.OTPMessage(acc.Email, plain)
		} else {
			acc.ResetToken = hash
			acc.ResetTokenExpiry = &expiry
			msg = mailer.ResetCodeMessage(acc.Email, plain)
		}
		if err := s.store.Update(ctx, acc); err != nil {
			if errors.Is(err, ErrConflict) {
				continue
			}
			return "", err
		}

		// The code is undeliverable any other way, so a failed send fails
		// the request; the client retries and a fresh code overwrites this
		// one.
		if err := s.mail.Send(ctx, msg); err != nil {
			return "", err
		}
		obs.ObserveCodeIssued(kind)
		return acc.Email, nil
	}
	return "", ErrConflict
}

// ResetPassword consumes a reset code and installs the new password.
// TokenVersion increments so outstanding sessions can be invalidated by
// verifiers that check it.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if email == "" || code == "" || newPassword == "" {
		return ErrInvalidInput
	}
	if len(newPassword) < minPasswordLength {
		return ErrInvalidInput
	}

	acc, err := s.store.ConsumeResetToken(ctx, email, hashCode(code), s.now().UTC())
	if err != nil {
		return err
	}
	obs.ObserveCodeConsumed("reset")

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	for i := 0; i < casRetries; i++ {
		acc.PasswordHash = hash
		acc.TokenVersion++
		err := s.store.Update(ctx, acc)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}
		acc, err = s.store.FindByID(ctx, acc.ID)
		if err != nil {
			return err
		}
	}
	return ErrConflict
}

// Unlock consumes an OTP and clears every lock the account carries. The
// shared-secret gate runs in the transport layer before this is reached.
// Reports whether the account was actually locked at the time.
func (s *Service) Unlock(ctx context.Context, email, otp string) (bool, *Account, error) {
	email = normalizeEmail(email)
	if email == "" || otp == "" {
		return false, nil, ErrInvalidInput
	}

	acc, err := s.store.ConsumeOTP(ctx, email, hashCode(otp), s.now().UTC())
	if err != nil {
		return false, nil, err
	}
	obs.ObserveCodeConsumed("otp")

	wasLocked := acc.Locked(s.now().UTC())
	for i := 0; i < casRetries; i++ {
		acc.LockedManually = false
		acc.LockLevel = 0
		acc.LockUntil = nil
		acc.LoginAttempts = 0
		err := s.store.Update(ctx, acc)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrConflict) {
			return false, nil, err
		}
		if i == casRetries-1 {
			return false, nil, ErrConflict
		}
		acc, err = s.store.FindByID(ctx, acc.ID)
		if err != nil {
			return false, nil, err
		}
	}

	// Confirmation is a courtesy; the unlock already happened.
	if err := s.mail.Send(ctx, mailer.UnlockNoticeMessage(acc.Email)); err != nil {
		obs.LogError("unlock notice email failed", err, map[string]any{"email": acc.Email})
	}
	return wasLocked, acc, nil
}
