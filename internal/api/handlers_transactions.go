package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/internal/pricing"
	"github.com/kirana-labs/kiranapos/internal/store"
)

// saleItemRequest is one cart line on the wire. Price is in rupees.
type saleItemRequest struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// saleRequest is the body of both the quote and submit endpoints.
type saleRequest struct {
	CustomerID     string            `json:"customerId"`
	StoreID        string            `json:"storeId"`
	Items          []saleItemRequest `json:"items"`
	PointsRedeemed int64             `json:"pointsRedeemed"`
	PaymentMethod  string            `json:"paymentMethod"`
}

// quoteResponse is the pricing breakdown returned by POST /api/sales/quote.
// Amounts are rupees, unrounded; the persisted transaction floors them.
type quoteResponse struct {
	Subtotal            float64 `json:"totalAmountBeforeDiscount"`
	MaxRedeemablePoints int64   `json:"maxRedeemablePoints"`
	PointsRedeemed      int64   `json:"pointsRedeemed"`
	DiscountFromPoints  float64 `json:"discountFromPoints"`
	DiscountPercent     int64   `json:"discountPercentage"`
	DiscountFromPercent float64 `json:"discountFromPercentage"`
	TotalDiscount       float64 `json:"totalDiscount"`
	TotalAmount         float64 `json:"totalAmount"`
	Rewards             float64 `json:"rewards"`
	PointsEarned        int64   `json:"pointsEarned"`
}

func toQuoteResponse(q pricing.Quote) quoteResponse {
	return quoteResponse{
		Subtotal:            q.Subtotal.Rupees(),
		MaxRedeemablePoints: q.MaxRedeemablePoints,
		PointsRedeemed:      q.PointsRedeemed,
		DiscountFromPoints:  q.DiscountFromPoints.Rupees(),
		DiscountPercent:     q.WelcomePercent,
		DiscountFromPercent: q.DiscountFromPercent.Rupees(),
		TotalDiscount:       q.TotalDiscount.Rupees(),
		TotalAmount:         q.Total.Rupees(),
		Rewards:             q.Rewards.Rupees(),
		PointsEarned:        q.Rewards.FloorRupees(),
	}
}

// ListTransactions handles GET /api/transactions/store/{storeID}.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")
	if storeID == "" {
		httpd.Error(w, http.StatusBadRequest, "store ID is required")
		return
	}
	httpd.JSON(w, http.StatusOK, h.store.TransactionsByStore(storeID))
}

// QuoteSale handles POST /api/sales/quote: a dry-run pricing computation with
// no side effects. The dashboard calls it as the cart changes.
func (h *Handler) QuoteSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	quote, err := h.computeQuote(req)
	if err != nil {
		httpd.Error(w, pricingStatus(err), err.Error())
		return
	}
	httpd.JSON(w, http.StatusOK, toQuoteResponse(quote))
}

// CreateTransaction handles POST /api/transactions. The server recomputes the
// full breakdown from the submitted cart rather than trusting client totals,
// persists the floored amounts, and settles the customer's point balance.
// Requests carrying an Idempotency-Key header replay on retry.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	idemKey := r.Header.Get("Idempotency-Key")
	if idemKey != "" {
		if prev, ok := h.idem.check(idemKey); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(prev.status)
			w.Write(prev.body)
			return
		}
	}

	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StoreID == "" {
		httpd.Error(w, http.StatusBadRequest, "storeId is required")
		return
	}
	if req.CustomerID != "" {
		if _, ok := h.store.Customers.Get(req.CustomerID); !ok {
			httpd.Error(w, http.StatusNotFound, "customer not found")
			return
		}
	}

	quote, err := h.computeQuote(req)
	if err != nil {
		httpd.Error(w, pricingStatus(err), err.Error())
		return
	}
	amounts := quote.Flatten()

	items := make([]store.SaleItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, store.SaleItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: int64(pricing.FromRupees(it.Price)),
		})
	}

	txn := store.Transaction{
		ID:                  h.store.Transactions.NextID(),
		CustomerID:          req.CustomerID,
		StoreID:             req.StoreID,
		Items:               items,
		TotalBeforeDiscount: amounts.TotalBeforeDiscount,
		DiscountFromPoints:  amounts.DiscountFromPoints,
		DiscountFromPercent: amounts.DiscountFromPercent,
		TotalDiscount:       amounts.TotalDiscount,
		TotalAmount:         amounts.Total,
		PointsRedeemed:      amounts.PointsRedeemed,
		PointsEarned:        amounts.PointsEarned,
		PaymentMethod:       req.PaymentMethod,
		Date:                h.store.Clock.Now().UTC().Format(time.RFC3339),
	}
	h.store.Transactions.Set(txn.ID, txn)

	if req.CustomerID != "" {
		h.store.Customers.Update(req.CustomerID, func(c store.Customer) store.Customer {
			c.RewardPoints += amounts.PointsEarned - amounts.PointsRedeemed
			return c
		})
	}

	h.logger.Info("transaction recorded",
		"transactionId", txn.ID,
		"storeId", txn.StoreID,
		"customerId", txn.CustomerID,
		"total", txn.TotalAmount,
		"pointsRedeemed", txn.PointsRedeemed,
		"pointsEarned", txn.PointsEarned,
	)

	if idemKey != "" {
		body, merr := json.Marshal(txn)
		if merr == nil {
			h.idem.put(idemKey, http.StatusCreated, body)
		}
	}
	httpd.JSON(w, http.StatusCreated, txn)
}

// computeQuote assembles the pricing input for a sale request and runs the
// engine. The store's reward rate and the customer's balance and history are
// looked up server-side.
func (h *Handler) computeQuote(req saleRequest) (pricing.Quote, error) {
	items := make([]pricing.Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, pricing.Item{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: pricing.FromRupees(it.Price),
		})
	}

	in := pricing.Input{
		Items:          items,
		PointsToRedeem: req.PointsRedeemed,
	}
	if shop, ok := h.store.Shops.Get(req.StoreID); ok {
		in.RewardPercent = shop.RewardPercent
	}
	if req.CustomerID != "" {
		if c, ok := h.store.Customers.Get(req.CustomerID); ok {
			in.Customer = &pricing.Customer{ID: c.ID, RewardPoints: c.RewardPoints}
			in.PriorTransactions = h.store.PriorTransactionCount(c.ID, req.StoreID)
		}
	}
	return pricing.Compute(in)
}

// pricingStatus maps engine errors to HTTP statuses. Validation failures are
// 422; anything unexpected is a 500.
func pricingStatus(err error) int {
	switch {
	case errors.Is(err, pricing.ErrEmptyCart),
		errors.Is(err, pricing.ErrInvalidQuantity),
		errors.Is(err, pricing.ErrNegativePrice),
		errors.Is(err, pricing.ErrPointsExceedLimit),
		errors.Is(err, pricing.ErrNegativeTotal):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
