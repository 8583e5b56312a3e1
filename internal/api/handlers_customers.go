package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/internal/store"
)

// customerResponse keeps the dashboard's wire shape, with the phone number
// nested under user.
type customerResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	User      struct {
		PhoneNumber string `json:"phoneNumber"`
	} `json:"user"`
	RewardPoints int64 `json:"rewardPoints"`
}

func toCustomerResponse(c store.Customer) customerResponse {
	resp := customerResponse{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		RewardPoints: c.RewardPoints,
	}
	resp.User.PhoneNumber = c.PhoneNumber
	return resp
}

// ListCustomers handles GET /api/customers/details/{storeID}.
func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "storeID") == "" {
		httpd.Error(w, http.StatusBadRequest, "store ID is required")
		return
	}

	customers := h.store.Customers.List()
	resp := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, toCustomerResponse(c))
	}
	httpd.JSON(w, http.StatusOK, resp)
}

// CreateCustomer handles POST /api/customers. New customers always start
// with a zero reward balance; any submitted balance is ignored.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		PhoneNumber string `json:"phoneNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.FirstName == "" || req.PhoneNumber == "" {
		httpd.Error(w, http.StatusBadRequest, "firstName and phoneNumber are required")
		return
	}
	if _, exists := h.store.CustomerByPhone(req.PhoneNumber); exists {
		httpd.Error(w, http.StatusConflict, "customer with this phone number already exists")
		return
	}

	c := store.Customer{
		ID:          h.store.Customers.NextID(),
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		PhoneNumber: req.PhoneNumber,
		CreatedAt:   h.store.Clock.Now().UTC().Format(time.RFC3339),
	}
	h.store.Customers.Set(c.ID, c)

	httpd.JSON(w, http.StatusCreated, toCustomerResponse(c))
}
