package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fyiona/accounts/internal/domain"
)

// ResultEnvelope is the generic success wrapper: {"success": true, "result": ...}.
type ResultEnvelope struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result"`
}

// ErrorEnvelope is the generic failure wrapper.
type ErrorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// AuthEnvelope wraps login responses: the bearer credential plus the account.
type AuthEnvelope struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
}

// UserDetail pairs an account with its profile for detail responses.
type UserDetail struct {
	*domain.User
	Profile *domain.Profile `json:"user_profile,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, status int, result interface{}) {
	writeJSON(w, status, ResultEnvelope{Success: true, Result: result})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorEnvelope{Success: false, Error: msg})
}

// httpError maps domain sentinel errors to status codes. Anything unmapped is
// an internal error.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrTokenExpired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
