package account

import (
	"context"
	"time"
)

// Store describes persistence for account records. Implementations must make
// Update a compare-and-swap on Account.Version and make the Consume methods
// validate-and-clear in a single atomic step, so that failed-attempt counters
// are never undercounted and a verification code can only ever be consumed
// once, even under concurrent requests.
type Store interface {
	// Create persists a new account. ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, a *Account) error

	FindByID(ctx context.Context, id string) (*Account, error)

	// FindByEmail looks up by case-insensitive email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Update writes the record back only if the stored Version still equals
	// a.Version, then bumps it. ErrConflict signals a lost race; callers
	// re-read and retry.
	Update(ctx context.Context, a *Account) error

	// ConsumeResetToken atomically matches email + code hash + unexpired
	// reset expiry, clears the token fields, and returns the cleared record.
	// Any mismatch or expiry yields ErrInvalidCode.
	ConsumeResetToken(ctx context.Context, email, codeHash string, now time.Time) (*Account, error)

	// ConsumeOTP is ConsumeResetToken against the OTP fields.
	ConsumeOTP(ctx context.Context, email, codeHash string, now time.Time) (*Account, error)
}
