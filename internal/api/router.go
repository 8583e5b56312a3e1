// Package api implements the REST surface of the POS backend: auth and
// signup flows, the customer/product/transaction directories, and the sale
// quote endpoint.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/internal/otp"
	"github.com/kirana-labs/kiranapos/internal/signup"
	"github.com/kirana-labs/kiranapos/internal/store"
)

// Handler holds all API handler state.
type Handler struct {
	store  *store.MemoryStore
	auth   *Auth
	signup *signup.Service
	otp    *otp.Engine
	logger *slog.Logger
	idem   *idempotencyTracker
}

// NewHandler creates the API handler.
func NewHandler(st *store.MemoryStore, auth *Auth, signupSvc *signup.Service, engine *otp.Engine, logger *slog.Logger) *Handler {
	return &Handler{
		store:  st,
		auth:   auth,
		signup: signupSvc,
		otp:    engine,
		logger: logger,
		idem:   newIdempotencyTracker(),
	}
}

// Routes mounts all API routes.
func (h *Handler) Routes(r chi.Router) {
	// Session issuance (form-encoded, dashboard login page).
	r.Post("/auth/login", h.PasswordLogin)
	r.Post("/auth/login/otp", h.OTPLogin)

	// Pre-auth signup surface.
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/otp/send", h.SendOTP)
	r.Post("/api/otp/verify", h.VerifyOTP)
	r.Route("/api/signup", func(r chi.Router) {
		r.Post("/", h.StartSignup)
		r.Get("/{flowID}", h.GetSignup)
		r.Post("/{flowID}/next", h.AdvanceSignup)
		r.Post("/{flowID}/back", h.BackSignup)
		r.Post("/{flowID}/resend-otp", h.ResendSignupOTP)
	})

	// Authenticated API.
	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/api/auth/status", h.AuthStatus)

		r.Get("/api/customers/details/{storeID}", h.ListCustomers)
		r.Post("/api/customers", h.CreateCustomer)

		r.Get("/api/products", h.ListProducts)
		r.Post("/api/products", h.CreateProduct)
		r.Put("/api/products/{productID}", h.UpdateProduct)
		r.Delete("/api/products/{productID}", h.DeleteProduct)

		r.Get("/api/transactions/store/{storeID}", h.ListTransactions)
		r.Post("/api/transactions", h.CreateTransaction)
		r.Post("/api/sales/quote", h.QuoteSale)
	})
}

type contextKey string

const accountKey contextKey = "account"

// requireAuth validates the bearer token and stashes the account on the
// request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			httpd.Error(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		acct, ok := h.auth.AccountForToken(token)
		if !ok {
			httpd.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := context.WithValue(r.Context(), accountKey, acct)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(r *http.Request) store.Account {
	acct, _ := r.Context().Value(accountKey).(store.Account)
	return acct
}

// idempotencyTracker caches responses for mutating calls carrying an
// Idempotency-Key header so a blind retry replays instead of re-executing.
type idempotencyTracker struct {
	mu      sync.Mutex
	entries map[string]idempotentResponse
}

type idempotentResponse struct {
	status int
	body   []byte
}

func newIdempotencyTracker() *idempotencyTracker {
	return &idempotencyTracker{entries: make(map[string]idempotentResponse)}
}

func (t *idempotencyTracker) check(key string) (idempotentResponse, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	resp, ok := t.entries[key]
	return resp, ok
}

func (t *idempotencyTracker) put(key string, status int, body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[key] = idempotentResponse{status: status, body: body}
}
