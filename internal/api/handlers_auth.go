package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/internal/signup"
	"github.com/kirana-labs/kiranapos/internal/store"
)

// PasswordLogin handles POST /auth/login. The dashboard submits
// form-encoded username/password; the username is the phone number.
func (h *Handler) PasswordLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpd.Error(w, http.StatusBadRequest, "unable to parse form data")
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		httpd.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.auth.Login(r.Context(), username, password)
	if err != nil {
		httpd.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	httpd.JSON(w, http.StatusOK, map[string]string{"token": token})
}

// OTPLogin handles POST /auth/login/otp: a previously sent code plus the
// phone number buys a session.
func (h *Handler) OTPLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
		OTP         string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PhoneNumber == "" || req.OTP == "" {
		httpd.Error(w, http.StatusBadRequest, "phoneNumber and otp are required")
		return
	}

	token, err := h.auth.LoginWithOTP(r.Context(), req.PhoneNumber, req.OTP)
	if err != nil {
		httpd.Error(w, http.StatusUnauthorized, "invalid OTP")
		return
	}
	httpd.JSON(w, http.StatusOK, map[string]string{"token": token})
}

// Register handles POST /api/auth/register. The response keeps the
// dashboard's capitalized Success key.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var form signup.Form
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if form.UserType != store.RoleShopkeeper && form.UserType != store.RoleCustomer {
		httpd.Error(w, http.StatusBadRequest, "userType must be Shopkeeper or Customer")
		return
	}

	if err := h.auth.Register(r.Context(), form); err != nil {
		if errors.Is(err, ErrPhoneTaken) {
			httpd.Error(w, http.StatusConflict, "phone number already registered")
			return
		}
		h.logger.Error("registration failed", "err", err)
		httpd.Error(w, http.StatusInternalServerError, "registration failed")
		return
	}
	httpd.JSON(w, http.StatusCreated, map[string]bool{"Success": true})
}

// AuthStatus handles GET /api/auth/status for an authenticated session.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r)

	storeID := ""
	if acct.UserType == store.RoleShopkeeper {
		if shop, ok := h.store.ShopByOwner(acct.ID); ok {
			storeID = shop.ID
		}
	}

	httpd.JSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]string{
			"role":        acct.UserType,
			"username":    acct.PhoneNumber,
			"phoneNumber": acct.PhoneNumber,
		},
		"store": storeID,
	})
}

// SendOTP handles POST /api/otp/send, issuing a code for the phone number.
// The code travels via the SMS collaborator, never in the response.
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PhoneNumber == "" {
		httpd.Error(w, http.StatusBadRequest, "phoneNumber is required")
		return
	}

	if _, err := h.otp.Issue(r.Context(), req.PhoneNumber); err != nil {
		h.logger.Error("otp issue failed", "err", err)
		httpd.Error(w, http.StatusInternalServerError, "failed to send OTP")
		return
	}
	httpd.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "OTP sent successfully",
	})
}

// VerifyOTP handles POST /api/otp/verify. Every failure mode reads the same:
// verified=false with a generic message.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PhoneNumber string `json:"phoneNumber"`
		OTP         string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PhoneNumber == "" || req.OTP == "" {
		httpd.Error(w, http.StatusBadRequest, "phoneNumber and otp are required")
		return
	}

	verified := h.otp.Verify(req.PhoneNumber, req.OTP)
	msg := "OTP verified successfully"
	if !verified {
		msg = "Invalid OTP"
	}
	httpd.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"verified": verified,
		"message":  msg,
	})
}
