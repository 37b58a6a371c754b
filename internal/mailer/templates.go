package mailer

import (
	"fmt"
	"time"
)

const appName = "InvenFlow"

const codeEmailHTML = `
<div style="font-family: Arial, sans-serif; background-color: #f9fafc; padding: 20px; border-radius: 8px; max-width: 600px; margin: auto; border: 1px solid #e5e7eb;">
  <h2 style="color: #FF3B30; text-align: center; margin-bottom: 10px;">%s</h2>
  <p style="font-size: 16px; color: #333;">Hello,</p>
  <p style="font-size: 16px; color: #333;">
    We received a request to reset your password.
    Please use the %s below to proceed:
  </p>
  <div style="text-align: center; margin: 20px 0;">
    <h1 style="font-size: 28px; letter-spacing: 4px; color: #FF3B30; margin: 0;">%s</h1>
  </div>
  <p style="font-size: 14px; color: #555; text-align: center;">
    This code will expire in <strong>1 hour</strong>.
  </p>
  <p style="font-size: 14px; color: #555;">
    If you did not request a password reset, please ignore this email.
    Your account will remain secure.
  </p>
  <hr style="margin: 20px 0; border: none; border-top: 1px solid #e5e7eb;" />
  <p style="font-size: 12px; color: #999; text-align: center;">&copy; %d %s. All rights reserved.</p>
</div>`

const lockNoticeHTML = `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #d32f2f;">Account Locked</h2>
  <p>Hello,</p>
  <p>We noticed multiple unsuccessful login attempts on your account associated with this email address.</p>
  <p>As a result, your account has been locked for security reasons.</p>
  <p>If you believe this was a mistake or you require urgent access, please use the unlock option under the login form.</p>
  <div style="background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-left: 4px solid #d32f2f;">
    <strong>Status:</strong> Locked after too many failed attempts<br>
    <strong>Next step:</strong> Request an unlock code, or wait if this is your 1st or 2nd lock.
  </div>
  <p>If this activity was not initiated by you, we recommend resetting your password after regaining access.</p>
  <p>Thank you,<br>%s</p>
</div>`

const unlockNoticeHTML = `
<div style="font-family: Arial, sans-serif; background-color: #f9fafc; padding: 20px; border-radius: 8px; max-width: 600px; margin: auto; border: 1px solid #e5e7eb;">
  <h2 style="color: #007AFF; text-align: center; margin-bottom: 10px;">%s</h2>
  <p style="font-size: 16px; color: #333;">Hello,</p>
  <p style="font-size: 16px; color: #333;">
    Your account has been unlocked. You can now log in to your account.
  </p>
  <p style="font-size: 14px; color: #555;">
    If you have any questions or concerns, please contact our support team.
  </p>
  <hr style="margin: 20px 0; border: none; border-top: 1px solid #e5e7eb;" />
  <p style="font-size: 12px; color: #999; text-align: center;">&copy; %d %s. All rights reserved.</p>
</div>`

// ResetCodeMessage carries a password-reset verification code.
func ResetCodeMessage(to, code string) Message {
	return Message{
		To:      to,
		Subject: "Password Reset Verification Code",
		Plain:   fmt.Sprintf("Your %s password reset code is %s. It expires in 1 hour.", appName, code),
		HTML:    fmt.Sprintf(codeEmailHTML, appName, "verification code", code, time.Now().Year(), appName),
	}
}

// OTPMessage carries an account-unlock one-time passcode.
func OTPMessage(to, code string) Message {
	return Message{
		To:      to,
		Subject: "One Time Passcode",
		Plain:   fmt.Sprintf("Your %s one-time passcode is %s. It expires in 1 hour.", appName, code),
		HTML:    fmt.Sprintf(codeEmailHTML, appName, "OTP", code, time.Now().Year(), appName),
	}
}

// LockNoticeMessage warns the holder that the account was locked after
// repeated failed logins.
func LockNoticeMessage(to string) Message {
	return Message{
		To:      to,
		Subject: "Account Locked",
		Plain:   fmt.Sprintf("Your %s account was locked after too many failed login attempts.", appName),
		HTML:    fmt.Sprintf(lockNoticeHTML, appName),
	}
}

// UnlockNoticeMessage confirms a successful unlock.
func UnlockNoticeMessage(to string) Message {
	return Message{
		To:      to,
		Subject: "Account Unlocked",
		Plain:   fmt.Sprintf("Your %s account has been unlocked.", appName),
		HTML:    fmt.Sprintf(unlockNoticeHTML, appName, time.Now().Year(), appName),
	}
}
