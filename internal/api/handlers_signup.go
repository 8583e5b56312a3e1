package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/internal/signup"
)

// flowResponse is the wire shape of a signup flow. Passwords never leave the
// server.
type flowResponse struct {
	ID      string        `json:"id"`
	Step    signup.Step   `json:"step"`
	Steps   []signup.Step `json:"steps"`
	OTPSent bool          `json:"otpSent"`
	Token   string        `json:"token,omitempty"`
}

func toFlowResponse(f signup.Flow, token string) flowResponse {
	return flowResponse{
		ID:      f.ID,
		Step:    f.Step,
		Steps:   f.Steps(),
		OTPSent: f.OTPSent,
		Token:   token,
	}
}

// StartSignup handles POST /api/signup.
func (h *Handler) StartSignup(w http.ResponseWriter, r *http.Request) {
	f := h.signup.Start()
	httpd.JSON(w, http.StatusCreated, toFlowResponse(f, ""))
}

// GetSignup handles GET /api/signup/{flowID}.
func (h *Handler) GetSignup(w http.ResponseWriter, r *http.Request) {
	f, err := h.signup.Get(chi.URLParam(r, "flowID"))
	if err != nil {
		httpd.Error(w, http.StatusNotFound, "signup session not found")
		return
	}
	httpd.JSON(w, http.StatusOK, toFlowResponse(f, ""))
}

// AdvanceSignup handles POST /api/signup/{flowID}/next. The body carries the
// current step's input; a failed guard holds the flow in place and returns
// 422 with the guard's reason.
func (h *Handler) AdvanceSignup(w http.ResponseWriter, r *http.Request) {
	var patch signup.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	f, token, err := h.signup.Advance(r.Context(), chi.URLParam(r, "flowID"), patch)
	if err != nil {
		var guard *signup.GuardError
		switch {
		case errors.Is(err, signup.ErrNotFound):
			httpd.Error(w, http.StatusNotFound, "signup session not found")
		case errors.Is(err, signup.ErrInvalidOTP):
			httpd.Error(w, http.StatusUnprocessableEntity, "Invalid OTP")
		case errors.Is(err, signup.ErrComplete):
			httpd.Error(w, http.StatusConflict, "signup already complete")
		case errors.As(err, &guard):
			httpd.Error(w, http.StatusUnprocessableEntity, guard.Reason)
		default:
			h.logger.Error("signup advance failed", "flowId", f.ID, "err", err)
			httpd.Error(w, http.StatusBadGateway, "signup could not be completed, please retry")
		}
		return
	}
	httpd.JSON(w, http.StatusOK, toFlowResponse(f, token))
}

// BackSignup handles POST /api/signup/{flowID}/back.
func (h *Handler) BackSignup(w http.ResponseWriter, r *http.Request) {
	f, err := h.signup.Back(chi.URLParam(r, "flowID"))
	if err != nil {
		switch {
		case errors.Is(err, signup.ErrNotFound):
			httpd.Error(w, http.StatusNotFound, "signup session not found")
		case errors.Is(err, signup.ErrComplete):
			httpd.Error(w, http.StatusConflict, "signup already complete")
		default:
			httpd.Error(w, http.StatusInternalServerError, "failed to rewind signup")
		}
		return
	}
	httpd.JSON(w, http.StatusOK, toFlowResponse(f, ""))
}

// ResendSignupOTP handles POST /api/signup/{flowID}/resend-otp.
func (h *Handler) ResendSignupOTP(w http.ResponseWriter, r *http.Request) {
	f, err := h.signup.ResendOTP(r.Context(), chi.URLParam(r, "flowID"))
	if err != nil {
		var guard *signup.GuardError
		switch {
		case errors.Is(err, signup.ErrNotFound):
			httpd.Error(w, http.StatusNotFound, "signup session not found")
		case errors.As(err, &guard):
			httpd.Error(w, http.StatusUnprocessableEntity, guard.Reason)
		default:
			h.logger.Error("otp resend failed", "flowId", f.ID, "err", err)
			httpd.Error(w, http.StatusInternalServerError, "failed to resend OTP")
		}
		return
	}
	httpd.JSON(w, http.StatusOK, toFlowResponse(f, ""))
}
