package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fyiona/accounts/internal/application/auth"
	"github.com/fyiona/accounts/internal/application/user"
	"github.com/fyiona/accounts/internal/domain"
	"github.com/fyiona/accounts/internal/pkg/validate"
	"github.com/fyiona/accounts/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// AccountHandler handles registration, login, email confirmation and
// account deletion.
type AccountHandler struct {
	users user.Service
	auth  auth.Service
}

func NewAccountHandler(users user.Service, authSvc auth.Service) *AccountHandler {
	return &AccountHandler{users: users, auth: authSvc}
}

// Register creates an account and kicks off the confirmation flow. The caller
// cannot log in until the emailed token is consumed.
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if _, err := h.users.Register(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "Please confirm your email to Log In")
}

func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	bearer, u, err := h.auth.Login(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{Success: true, Token: bearer, User: u})
}

// ConfirmRegistration consumes the confirmation token embedded in the
// emailed link and activates the account.
func (h *AccountHandler) ConfirmRegistration(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.ConfirmEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "Your email is confirmed. Now you can log in.")
}

// RequestDeletion mails the authenticated user a single-use deletion link.
func (h *AccountHandler) RequestDeletion(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.auth.RequestAccountDeletion(r.Context(), ident.User.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK,
		fmt.Sprintf("We sent confirmation link to %s to remove this account", ident.User.Email))
}

// ConfirmDeletion consumes the deletion token from the link's query string
// and removes the account with its profile.
func (h *AccountHandler) ConfirmDeletion(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, `the "token" query parameter was not provided`)
		return
	}
	email, err := h.auth.ConfirmAccountDeletion(r.Context(), token)
	if err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, fmt.Sprintf("User %s has been deleted successfully", email))
}
