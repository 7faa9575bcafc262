package handler

import (
	"encoding/json"
	"net/http"

	"github.com/fyiona/accounts/internal/application/auth"
	"github.com/fyiona/accounts/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// PhoneConfirmHandler handles phone-number confirmation flow endpoints.
type PhoneConfirmHandler struct {
	svc auth.Service
}

func NewPhoneConfirmHandler(svc auth.Service) *PhoneConfirmHandler {
	return &PhoneConfirmHandler{svc: svc}
}

func (h *PhoneConfirmHandler) Action(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch chi.URLParam(r, "action") {
	case "request":
		if err := h.svc.RequestPhoneConfirmation(r.Context(), ident.User.UserID); err != nil {
			httpError(w, err)
			return
		}
		writeResult(w, http.StatusOK, "verification code sent")
	case "validate-code":
		var body struct {
			OTP string `json:"otp"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := h.svc.ConfirmPhoneOTP(r.Context(), ident.User.UserID, body.OTP); err != nil {
			httpError(w, err)
			return
		}
		writeResult(w, http.StatusOK, "phone number confirmed")
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
