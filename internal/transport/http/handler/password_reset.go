package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fyiona/accounts/internal/application/auth"
	"github.com/fyiona/accounts/internal/pkg/validate"
)

// PasswordResetHandler handles the three-step password reset flow:
// request link, preview token, set new password.
type PasswordResetHandler struct {
	svc auth.Service
}

func NewPasswordResetHandler(svc auth.Service) *PasswordResetHandler {
	return &PasswordResetHandler{svc: svc}
}

type resetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetCompleteRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

func (h *PasswordResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "The instructions to reset the password have been sent to Your email")
}

// Preview resolves the reset token without consuming it, so the reset form
// can show whose password is being changed.
func (h *PasswordResetHandler) Preview(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, `the "token" query parameter was not provided`)
		return
	}
	u, err := h.svc.PreviewPasswordReset(r.Context(), token)
	if err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, u)
}

// Complete consumes the reset token and sets the new password.
func (h *PasswordResetHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req resetCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.CompletePasswordReset(r.Context(), req.Token, req.Password); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "Password updated successfully")
}
