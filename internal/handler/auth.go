package handler

import (
	"net/http"
	"time"

	"github.com/tisu1989/auth-project/internal/ctxkeys"
	"github.com/tisu1989/auth-project/internal/middleware"
	"github.com/tisu1989/auth-project/internal/service"
)

type AuthHandler struct {
	credentials   *service.CredentialService
	secureCookies bool
}

func NewAuthHandler(credentials *service.CredentialService, secureCookies bool) *AuthHandler {
	return &AuthHandler{credentials: credentials, secureCookies: secureCookies}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyCodeRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type resetPasswordRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verificationCode"`
	NewPassword      string `json:"newPassword"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	account, err := h.credentials.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "User created successfully", account)
}

func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.credentials.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.setSessionCookie(w, session.Token, session.ExpiresAt)

	writeJSON(w, http.StatusOK, envelope{
		Success: true,
		Message: "Login successful",
		Token:   session.Token,
	})
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	h.setSessionCookie(w, "", time.Unix(0, 0))
	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}

func (h *AuthHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.credentials.SendVerificationCode(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Verification code sent successfully", nil)
}

func (h *AuthHandler) VerifyVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.credentials.VerifyVerificationCode(r.Context(), req.Email, req.VerificationCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Verification code verified successfully", nil)
}

// ChangePassword requires a session; the verified flag is taken from its claims.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	claims := ctxkeys.Claims(r.Context())

	err := h.credentials.ChangePassword(r.Context(), claims, req.OldPassword, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

func (h *AuthHandler) SendForgotPasswordCode(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.credentials.SendForgotPasswordCode(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Forgot password code sent successfully", nil)
}

func (h *AuthHandler) VerifyForgotPasswordCode(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.credentials.VerifyForgotPasswordCode(r.Context(), req.Email, req.VerificationCode, req.NewPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password reset successfully", nil)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expiry time.Time) {
	value := ""
	if token != "" {
		value = "Bearer " + token
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
