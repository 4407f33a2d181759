package webapp

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/movexa/tracking/internal/quote"
)

func (h *Handler) trackForm(w http.ResponseWriter, r *http.Request) {
	trackingID := r.FormValue("tracking_id")
	if trackingID == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/results/"+trackingID, http.StatusSeeOther)
}

func (h *Handler) results(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	view, err := h.svc.GetTrackingView(r.Context(), trackingID)
	if err != nil {
		slog.Error("get tracking view", "trackingId", trackingID, "err", err)
		http.Error(w, "Service temporarily unavailable.", http.StatusServiceUnavailable)
		return
	}
	h.render(w, "results.html", view)
}

type quoteRequest struct {
	Origin      string      `json:"origin"`
	Destination string      `json:"destination"`
	Weight      json.Number `json:"weight"`
}

func (h *Handler) apiQuote(w http.ResponseWriter, r *http.Request) {
	if !h.allowQuote(r) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"success": false,
			"error":   "Too many quote requests, try again later.",
		})
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Invalid request body.",
		})
		return
	}

	weight, err := req.Weight.Float64()
	if err != nil {
		weight = 0
	}
	q, err := quote.Calculate(req.Origin, req.Destination, weight)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"quote":    q.Amount,
		"currency": q.Currency,
	})
}

func (h *Handler) apiTrack(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	view, err := h.svc.GetTrackingView(r.Context(), trackingID)
	if err != nil {
		slog.Error("get tracking view", "trackingId", trackingID, "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"error":   "Service temporarily unavailable.",
		})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// allowQuote is best-effort: a broken limiter lets requests through rather
// than taking the quote page down.
func (h *Handler) allowQuote(r *http.Request) bool {
	if h.opts.QuoteLimiter == nil || h.opts.QuoteRateLimitPerMinute <= 0 {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ok, _, err := h.opts.QuoteLimiter.Allow(r.Context(), "quote:"+host, h.opts.QuoteRateLimitPerMinute, time.Minute)
	if err != nil {
		slog.Warn("quote rate limiter", "err", err)
		return true
	}
	return ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
