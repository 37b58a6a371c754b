package httpapi

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"invenflow.org/internal/account"
	"invenflow.org/internal/auth"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type unlockRequest struct {
	Email     string `json:"email"`
	OTP       string `json:"OTP"`
	SecretKey string `json:"secretKey"`
}

type adminView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// sessionView is the login/register payload shape clients depend on.
type sessionView struct {
	AdminID string `json:"adminId"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

func viewOf(acc *account.Account) adminView {
	return adminView{
		ID:    acc.ID,
		Name:  acc.Name,
		Email: acc.Email,
		Role:  string(acc.Role),
	}
}

func sessionViewOf(acc *account.Account) sessionView {
	return sessionView{
		AdminID: acc.ID,
		Name:    acc.Name,
		Role:    string(acc.Role),
	}
}

// handleAuthRoot serves GET /api/auth: the admin behind the session cookie.
func (a *API) handleAuthRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authorization denied")
		return
	}
	acc, err := a.accounts.Get(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeData(w, http.StatusOK, viewOf(acc))
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, ok := account.ParseRole(req.Role)
	if !ok {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}

	acc, err := a.accounts.Register(r.Context(), req.Name, req.Email, req.Password, role)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "name, a valid email and a password of at least 8 characters are required")
		case errors.Is(err, account.ErrAlreadyExists):
			writeError(w, r, http.StatusConflict, "email already registered")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if err := a.setSession(w, acc); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	a.audit(r.Context(), "auth.register", map[string]any{"admin_id": acc.ID, "email": acc.Email})
	writeData(w, http.StatusOK, sessionViewOf(acc))
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	acc, err := a.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var locked *account.LockedError
		switch {
		case errors.As(err, &locked):
			if locked.Manual {
				writeError(w, r, http.StatusLocked,
					"Account locked due to too many failed attempts. Use the unlock option or contact support.")
			} else {
				writeError(w, r, http.StatusLocked,
					fmt.Sprintf("Account locked. Try again in %d minutes.", locked.WaitMinutes()))
			}
		case errors.Is(err, account.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "email and password are required")
		case errors.Is(err, account.ErrInvalidCredentials):
			writeError(w, r, http.StatusBadRequest, "invalid credentials")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	if err := a.setSession(w, acc); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	a.audit(r.Context(), "auth.login", map[string]any{"admin_id": acc.ID})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "logged in successfully",
		"data":    sessionViewOf(acc),
	})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	http.SetCookie(w, auth.ClearSessionCookie(a.secureCookies))
	writeMessage(w, http.StatusOK, "logged out")
}

func (a *API) forgotPassword(w http.ResponseWriter, r *http.Request) {
	a.issueCode(w, r, "reset")
}

func (a *API) requestOTP(w http.ResponseWriter, r *http.Request) {
	a.issueCode(w, r, "otp")
}

// issueCode backs both forgot-password and otp. The response is identical
// whether or not the email exists.
func (a *API) issueCode(w http.ResponseWriter, r *http.Request, kind string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var err error
	if kind == "otp" {
		_, err = a.accounts.RequestOTP(r.Context(), req.Email)
	} else {
		_, err = a.accounts.RequestReset(r.Context(), req.Email)
	}
	if err != nil {
		if errors.Is(err, account.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, "a valid email is required")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	// Echo the submitted address, known or not, so the two cases stay
	// indistinguishable.
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "if that email is registered, a verification code has been sent",
		"email":   strings.ToLower(strings.TrimSpace(req.Email)),
	})
}

func (a *API) resetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := a.accounts.ResetPassword(r.Context(), req.Email, req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "email, code and a new password of at least 8 characters are required")
		case errors.Is(err, account.ErrInvalidCode):
			writeError(w, r, http.StatusBadRequest, "invalid or expired verification code")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}
	a.audit(r.Context(), "auth.password_reset", map[string]any{"email": strings.ToLower(strings.TrimSpace(req.Email))})
	writeMessage(w, http.StatusOK, "password reset successfully")
}

func (a *API) unlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	secret := strings.TrimSpace(req.SecretKey)
	if secret == "" {
		secret = strings.TrimSpace(r.URL.Query().Get("secretKey"))
	}
	if a.unlockSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(a.unlockSecret)) != 1 {
		writeError(w, r, http.StatusUnauthorized, "invalid unlock secret")
		return
	}

	wasLocked, acc, err := a.accounts.Unlock(r.Context(), req.Email, req.OTP)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, "email and otp are required")
		case errors.Is(err, account.ErrInvalidCode):
			writeError(w, r, http.StatusBadRequest, "invalid or expired verification code")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal error")
		}
		return
	}

	a.audit(r.Context(), "auth.unlock", map[string]any{"admin_id": acc.ID, "was_locked": wasLocked})
	msg := "account was not locked"
	if wasLocked {
		msg = "account unlocked successfully"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   msg,
		"wasLocked": wasLocked,
	})
}

func (a *API) setSession(w http.ResponseWriter, acc *account.Account) error {
	token, err := a.sessions.Issue(auth.Principal{
		ID:   acc.ID,
		Role: string(acc.Role),
		Name: acc.Name,
	})
	if err != nil {
		return err
	}
	http.SetCookie(w, auth.SessionCookie(token, a.secureCookies))
	return nil
}
