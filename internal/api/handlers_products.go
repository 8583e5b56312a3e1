package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/internal/pricing"
	"github.com/kirana-labs/kiranapos/internal/store"
)

// productResponse exposes prices in rupees; paise are internal only.
type productResponse struct {
	ID      string  `json:"id"`
	StoreID string  `json:"store"`
	Name    string  `json:"name"`
	SKU     string  `json:"sku"`
	Price   float64 `json:"price"`
}

func toProductResponse(p store.Product) productResponse {
	return productResponse{
		ID:      p.ID,
		StoreID: p.StoreID,
		Name:    p.Name,
		SKU:     p.SKU,
		Price:   pricing.Money(p.Price).Rupees(),
	}
}

type productRequest struct {
	StoreID string  `json:"store"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.store.Products.List()
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	httpd.JSON(w, http.StatusOK, resp)
}

// CreateProduct handles POST /api/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		httpd.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Price < 0 {
		httpd.Error(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	id := h.store.Products.NextID()
	p := store.Product{
		ID:        id,
		StoreID:   req.StoreID,
		Name:      req.Name,
		SKU:       makeSKU(req.Name, id),
		Price:     int64(pricing.FromRupees(req.Price)),
		CreatedAt: h.store.Clock.Now().UTC().Format(time.RFC3339),
	}
	h.store.Products.Set(p.ID, p)

	httpd.JSON(w, http.StatusCreated, toProductResponse(p))
}

// UpdateProduct handles PUT /api/products/{productID}.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")
	p, ok := h.store.Products.Get(id)
	if !ok {
		httpd.Error(w, http.StatusNotFound, "product not found")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Price < 0 {
		httpd.Error(w, http.StatusBadRequest, "price must not be negative")
		return
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	p.Price = int64(pricing.FromRupees(req.Price))
	h.store.Products.Set(p.ID, p)

	httpd.JSON(w, http.StatusOK, toProductResponse(p))
}

// DeleteProduct handles DELETE /api/products/{productID}. Sale items keep
// the unit price captured at selection time, so deleting a product does not
// disturb recorded or in-progress sales.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.store.Products.Delete(chi.URLParam(r, "productID")) {
		httpd.Error(w, http.StatusNotFound, "product not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// makeSKU derives a stable SKU from the product name and ID.
func makeSKU(name, id string) string {
	slug := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), " ", "-"))
	if len(slug) > 12 {
		slug = slug[:12]
	}
	return fmt.Sprintf("%s-%s", slug, strings.TrimPrefix(id, "prod_"))
}
