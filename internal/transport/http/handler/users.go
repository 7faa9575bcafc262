package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fyiona/accounts/internal/application/user"
	"github.com/fyiona/accounts/internal/domain"
	"github.com/fyiona/accounts/internal/pkg/validate"
	"github.com/fyiona/accounts/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles the authenticated user endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

// Me returns the current account with its profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, p, err := h.svc.Detail(r.Context(), ident.User.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, UserDetail{User: u, Profile: p})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	users, next, err := h.svc.List(r.Context(), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, map[string]interface{}{"users": users, "next_cursor": next})
}

// Update patches the account-editable fields. Requests naming any other
// field are rejected outright rather than silently ignored.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(fields) == 0 {
		writeError(w, http.StatusBadRequest, "please provide at least one field to update")
		return
	}
	for key := range fields {
		switch key {
		case "first_name", "last_name", "avatar", "biography":
		default:
			writeError(w, http.StatusBadRequest, "wrong field - "+key)
			return
		}
	}
	raw, _ := json.Marshal(fields)
	var req domain.UpdateUserRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.Update(r.Context(), ident.User.UserID, req); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "Data has been changed successfully")
}

func (h *UserHandler) SearchByEmail(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "email", h.svc.SearchByEmail)
}

func (h *UserHandler) SearchByPhone(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, "phone_number", h.svc.SearchByPhone)
}

func (h *UserHandler) search(w http.ResponseWriter, r *http.Request, param string, fn func(ctx context.Context, q string) ([]domain.User, error)) {
	query := r.URL.Query().Get(param)
	if query == "" {
		writeError(w, http.StatusBadRequest, `the "`+param+`" query parameter was not provided`)
		return
	}
	found, err := fn(r.Context(), query)
	if err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, found)
}

// Follow adds the current user to the target profile's follower list.
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Follow(r.Context(), chi.URLParam(r, "id"), ident.User.UserID); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "Success")
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.ChangePassword(r.Context(), ident.User.UserID, req.OldPassword, req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	writeResult(w, http.StatusOK, "Password has been updated successfully")
}
