package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fyiona/accounts/internal/application/auth"
	"github.com/fyiona/accounts/internal/pkg/validate"
	"github.com/fyiona/accounts/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// EmailUpdateHandler handles the email-change flow: the authenticated request
// that mails a confirmation link to the pending address, and the confirmation
// that assigns it.
type EmailUpdateHandler struct {
	svc auth.Service
}

func NewEmailUpdateHandler(svc auth.Service) *EmailUpdateHandler {
	return &EmailUpdateHandler{svc: svc}
}

type emailChangeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *EmailUpdateHandler) Request(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req emailChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.RequestEmailChange(r.Context(), ident.User.UserID, req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "We sent a confirmation link to the new email address")
}

func (h *EmailUpdateHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.ConfirmEmailChange(r.Context(), chi.URLParam(r, "token")); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "Email has been changed successfully")
}
