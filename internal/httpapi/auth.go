package httpapi

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetintel/core/internal/apierr"
	"github.com/fleetintel/core/internal/authn"
)

// sessionCookieName must match the name internal/authn's Resolver
// reads the bearer token from (its own constant is unexported), so a
// cookie this package sets on signin is the same one resolved on
// every subsequent request.
const sessionCookieName = "majel_session"

// sessionTTL is how long an issued user session stays valid absent
// activity — the long-lived credential a browser or API client holds,
// distinct from the chat orchestrator's much shorter idle window
// (internal/session.DefaultTTL). No explicit value is named for this
// token, unlike the chat session's 30-minute window, so 30 days is
// chosen as a conventional bearer-token lifetime for a system with no
// refresh-token flow.
const sessionTTL = 30 * 24 * time.Hour

const verifyTokenTTL = 24 * time.Hour
const resetTokenTTL = time.Hour

// wrapToken prepends the base64url-encoded routing userID a one-shot
// token is delivered with (internal/authn's tokens.go: "delivered via
// a link carrying the routing userID, the same way session tokens
// do") — authn.TokensStore itself never does this wrapping, since
// Consume already requires the caller to know userID.
func wrapToken(userID, raw string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID)) + "." + raw
}

func unwrapToken(wrapped string) (userID, raw string, ok bool) {
	parts := strings.SplitN(wrapped, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	idBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", "", false
	}
	return string(idBytes), parts[1], true
}

func extractBearerOrCookie(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
		return "", false
	}
	if c, err := r.Cookie(sessionCookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

func (d *Dependencies) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "email and password are required", nil)
		return
	}

	hash, err := authn.HashPassword(req.Password)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}

	user := &authn.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(req.Email),
		DisplayName:  req.DisplayName,
		Role:         "ensign",
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.Users.Create(r.Context(), user); err != nil {
		apierr.WriteErrorCode(w, r, apierr.Conflict, "an account with this email already exists", nil)
		return
	}

	d.sendVerifyEmail(r, user)

	apierr.WriteCreated(w, r, map[string]any{
		"id":          user.ID,
		"email":       user.Email,
		"displayName": user.DisplayName,
	})
}

func (d *Dependencies) sendVerifyEmail(r *http.Request, user *authn.User) {
	raw, err := d.Tokens.Issue(r.Context(), user.ID, authn.TokenVerify, verifyTokenTTL)
	if err != nil {
		return
	}
	link := d.BaseURL + "/verify-email?token=" + wrapToken(user.ID, raw)
	_ = d.Mailer.Send(user.Email, "Verify your Fleet Intelligence account",
		"Confirm your email address: "+link)
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (d *Dependencies) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, raw, ok := unwrapToken(req.Token)
	if !ok {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "malformed verification token", nil)
		return
	}
	if _, err := d.Tokens.Consume(r.Context(), userID, raw, authn.TokenVerify); err != nil {
		writeErr(w, r, err)
		return
	}
	if err := d.Users.MarkEmailVerified(r.Context(), userID); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"verified": true})
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d *Dependencies) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "email and password are required", nil)
		return
	}

	user, err := d.Users.GetByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		apierr.WriteErrorCode(w, r, apierr.Unauthorized, "invalid email or password", nil)
		return
	}
	if user.LockedAt != nil {
		apierr.WriteErrorCode(w, r, apierr.AccountLocked, "account is locked", nil)
		return
	}
	if !authn.VerifyPassword(user.PasswordHash, req.Password) {
		apierr.WriteErrorCode(w, r, apierr.Unauthorized, "invalid email or password", nil)
		return
	}

	token, err := d.Sessions.Issue(r.Context(), user.ID, r.RemoteAddr, r.UserAgent(), sessionTTL)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionTTL.Seconds()),
	})

	apierr.WriteOK(w, r, map[string]any{
		"token":         token,
		"userId":        user.ID,
		"role":          user.Role,
		"emailVerified": user.EmailVerified,
	})
}

// handleMe reports the resolved caller's own identity, the way every
// resolution path (session cookie, bearer token, admin token) converges
// on a reqctx.Principal — this is the read-back a client uses right
// after signin to confirm which role it landed as.
func (d *Dependencies) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if p.ViaAdminToken {
		apierr.WriteOK(w, r, map[string]any{"user": map[string]any{
			"id": p.UserID, "role": p.Role.String(), "emailVerified": true,
		}})
		return
	}
	user, err := d.Users.GetByID(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	apierr.WriteOK(w, r, map[string]any{"user": map[string]any{
		"id":            user.ID,
		"email":         user.Email,
		"displayName":   user.DisplayName,
		"role":          user.Role,
		"emailVerified": user.EmailVerified,
	}})
}

func (d *Dependencies) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := extractBearerOrCookie(r); ok {
		_ = d.Sessions.Destroy(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	apierr.WriteOK(w, r, map[string]any{"loggedOut": true})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (d *Dependencies) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "currentPassword and newPassword are required", nil)
		return
	}

	user, err := d.Users.GetByID(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !authn.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		apierr.WriteErrorCode(w, r, apierr.Unauthorized, "current password is incorrect", nil)
		return
	}

	hash, err := authn.HashPassword(req.NewPassword)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	if err := d.Users.SetPasswordHash(r.Context(), p.UserID, hash); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	// Changing a password invalidates every other live session — the
	// credential that issued them is no longer trustworthy.
	_ = d.Sessions.DestroyAll(r.Context(), p.UserID)

	apierr.WriteOK(w, r, map[string]any{"changed": true})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (d *Dependencies) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	const generic = "if an account exists for this address, a reset link has been sent"

	user, err := d.Users.GetByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		// Never reveal whether the address is registered.
		apierr.WriteOK(w, r, map[string]any{"message": generic})
		return
	}

	raw, err := d.Tokens.Issue(r.Context(), user.ID, authn.TokenReset, resetTokenTTL)
	if err == nil {
		link := d.BaseURL + "/reset-password?token=" + wrapToken(user.ID, raw)
		_ = d.Mailer.Send(user.Email, "Reset your Fleet Intelligence password",
			"Reset your password: "+link)
	}

	apierr.WriteOK(w, r, map[string]any{"message": generic})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (d *Dependencies) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.NewPassword == "" {
		apierr.WriteErrorCode(w, r, apierr.MissingParam, "newPassword is required", nil)
		return
	}
	userID, raw, ok := unwrapToken(req.Token)
	if !ok {
		apierr.WriteErrorCode(w, r, apierr.InvalidParam, "malformed reset token", nil)
		return
	}
	if _, err := d.Tokens.Consume(r.Context(), userID, raw, authn.TokenReset); err != nil {
		writeErr(w, r, err)
		return
	}

	hash, err := authn.HashPassword(req.NewPassword)
	if err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	if err := d.Users.SetPasswordHash(r.Context(), userID, hash); err != nil {
		apierr.WriteInternal(w, r, err)
		return
	}
	_ = d.Sessions.DestroyAll(r.Context(), userID)

	apierr.WriteOK(w, r, map[string]any{"reset": true})
}
