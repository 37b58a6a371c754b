package account

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound           = errors.New("account: not found")
	ErrAlreadyExists      = errors.New("account: already exists")
	ErrInvalidInput       = errors.New("account: invalid input")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
	// ErrInvalidCode covers both a wrong and an expired verification code;
	// the two are intentionally indistinguishable to callers.
	ErrInvalidCode = errors.New("account: invalid or expired code")
	ErrConflict    = errors.New("account: concurrent update conflict")
)

// LockedError rejects a login while a lock gates the account.
type LockedError struct {
	// Manual marks a lock that only an explicit unlock clears.
	Manual bool
	// RetryAfter is the remaining wait for a time lock, zero for manual locks.
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	if e.Manual {
		return "account locked"
	}
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.WaitMinutes())
}

// WaitMinutes rounds the remaining wait up to whole minutes.
func (e *LockedError) WaitMinutes() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	return int((e.RetryAfter + time.Minute - 1) / time.Minute)
}
