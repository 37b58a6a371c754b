package account

import (
	"time"
)

// Role classifies what an administrator account can do. The set is closed:
// gate behavior on it with exhaustive switches, never string comparison.
type Role string

const (
	RoleStaff Role = "Staff"
	RoleAdmin Role = "Admin"
)

// ParseRole maps a request-supplied role onto the closed enum.
// An empty value defaults to Admin, matching account creation semantics.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleStaff:
		return RoleStaff, true
	case RoleAdmin:
		return RoleAdmin, true
	case "":
		return RoleAdmin, true
	default:
		return "", false
	}
}

const (
	// MaxAttempts is the number of consecutive wrong passwords tolerated
	// before the lock level escalates.
	MaxAttempts = 3

	// manualLockLevel is the escalation level at which the account stops
	// time-locking and becomes locked until an explicit unlock.
	manualLockLevel = 3

	// codeTTL bounds the life of reset codes and OTPs.
	codeTTL = time.Hour
)

// lockDuration returns how long a time lock lasts at the given level.
func lockDuration(level int) time.Duration {
	switch level {
	case 1:
		return 30 * time.Minute
	default:
		return 60 * time.Minute
	}
}

// Account is the persisted credential record with its security counters.
// PasswordHash and the verification hashes are storage-only: HTTP responses
// are built from explicit DTOs and never serialize an Account directly.
type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"password_hash"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	LoginAttempts  int        `json:"login_attempts"`
	LockLevel      int        `json:"lock_level"`
	LockUntil      *time.Time `json:"lock_until,omitempty"`
	LockedManually bool       `json:"locked_manually"`

	ResetToken       string     `json:"reset_token,omitempty"`
	ResetTokenExpiry *time.Time `json:"reset_token_expiry,omitempty"`
	OTP              string     `json:"otp,omitempty"`
	ResetOTPExpiry   *time.Time `json:"reset_otp_expiry,omitempty"`

	TokenVersion int `json:"token_version"`

	// Version guards read-modify-write cycles: Store.Update only succeeds
	// when the stored version still matches, so concurrent counter updates
	// are never lost.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TimeLocked reports whether a time lock is active at now.
func (a *Account) TimeLocked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// Locked reports whether any lock currently gates login.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedManually || a.TimeLocked(now)
}
