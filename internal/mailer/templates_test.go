package mailer

import (
	"strings"
	"testing"
)

func TestResetCodeMessageCarriesCode(t *testing.T) {
	msg := ResetCodeMessage("user@example.com", "A1B2C3")
	if msg.To != "user@example.com" {
		t.Fatalf("wrong recipient %q", msg.To)
	}
	if !strings.Contains(msg.Plain, "A1B2C3") || !strings.Contains(msg.HTML, "A1B2C3") {
		t.Fatal("code missing from message body")
	}
	if !strings.Contains(msg.Plain, "1 hour") {
		t.Fatal("expiry hint missing")
	}
}

func TestOTPMessageCarriesCode(t *testing.T) {
	msg := OTPMessage("user@example.com", "FACE42")
	if !strings.Contains(msg.Plain, "FACE42") || !strings.Contains(msg.HTML, "FACE42") {
		t.Fatal("otp missing from message body")
	}
	if msg.Subject != "One Time Passcode" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
}

func TestNoticeMessages(t *testing.T) {
	lock := LockNoticeMessage("user@example.com")
	if lock.Subject != "Account Locked" {
		t.Fatalf("unexpected subject %q", lock.Subject)
	}
	if !strings.Contains(lock.HTML, "unlock") {
		t.Fatal("lock notice should point at the unlock option")
	}

	unlock := UnlockNoticeMessage("user@example.com")
	if unlock.Subject != "Account Unlocked" {
		t.Fatalf("unexpected subject %q", unlock.Subject)
	}
}
