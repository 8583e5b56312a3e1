// Package debug provides the /debug/* control surface used in development
// and tests: state snapshot and load, full reset, and simulated time control.
// It is mounted only when the server runs with debug endpoints enabled; the
// surface must never be exposed in production.
package debug

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirana-labs/kiranapos/internal/httpd"
	"github.com/kirana-labs/kiranapos/pkg/kv"
)

// StateStore is the state management surface the store exposes.
type StateStore interface {
	Snapshot() any
	LoadState(data []byte) error
	Reset()
}

// Handler serves the debug endpoints.
type Handler struct {
	state StateStore
	clock *kv.Clock
}

// NewHandler creates a debug handler over the given store and clock.
func NewHandler(state StateStore, clock *kv.Clock) *Handler {
	return &Handler{state: state, clock: clock}
}

// Routes mounts the debug endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/debug", func(r chi.Router) {
		r.Post("/reset", h.handleReset)
		r.Get("/state", h.handleGetState)
		r.Post("/state", h.handleLoadState)
		r.Post("/time/advance", h.handleTimeAdvance)
		r.Get("/time", h.handleGetTime)
	})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset()
	httpd.JSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) handleGetState(w http.ResponseWriter, r *http.Request) {
	httpd.JSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handler) handleLoadState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpd.Error(w, http.StatusBadRequest, "failed to read body: "+err.Error())
		return
	}
	if err := h.state.LoadState(body); err != nil {
		httpd.Error(w, http.StatusBadRequest, "failed to load state: "+err.Error())
		return
	}
	httpd.JSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

func (h *Handler) handleTimeAdvance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration string `json:"duration"` // Go duration string, e.g. "24h", "30m"
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		httpd.Error(w, http.StatusBadRequest, "invalid duration: "+err.Error())
		return
	}

	h.clock.Advance(d)
	httpd.JSON(w, http.StatusOK, map[string]any{
		"status":    "advanced",
		"duration":  d.String(),
		"offset":    h.clock.Offset().String(),
		"simulated": h.clock.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handleGetTime(w http.ResponseWriter, r *http.Request) {
	httpd.JSON(w, http.StatusOK, map[string]any{
		"real":      time.Now().Format(time.RFC3339),
		"simulated": h.clock.Now().Format(time.RFC3339),
		"offset":    h.clock.Offset().String(),
	})
}
