// Package webapp is the HTTP face of the tracker: customer pages, the JSON
// quote/tracking API, and the basic-auth admin area.
package webapp

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/movexa/tracking/internal/services/shipments"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed swagger.json
var swaggerJSON []byte

//go:embed static
var staticFS embed.FS

// RateLimiter gates the public quote API. Nil disables limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Options struct {
	AdminUsername string
	AdminPassword string

	QuoteLimiter            RateLimiter
	QuoteRateLimitPerMinute int64
}

type Handler struct {
	svc  *shipments.Service
	opts Options
	tmpl *template.Template
}

func New(svc *shipments.Service, opts Options) (*Handler, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Handler{svc: svc, opts: opts, tmpl: tmpl}, nil
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	// Customer pages.
	r.Get("/", h.page("index.html"))
	r.Post("/track", h.trackForm)
	r.Get("/results/{trackingID}", h.results)
	r.Get("/quote", h.page("quote.html"))
	r.Get("/ship-now", h.page("ship_now.html"))
	r.Get("/about", h.page("about.html"))
	r.Get("/contact", h.page("contact.html"))
	r.Get("/business", h.page("business.html"))
	r.Get("/client-portal", h.page("client_portal.html"))

	r.Handle("/static/*", http.FileServer(http.FS(staticFS)))

	// JSON API.
	r.Post("/api/quote", h.apiQuote)
	r.Get("/api/track/{trackingID}", h.apiTrack)

	r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(swaggerJSON)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/swagger.json")))

	// Admin area behind the single shared credential.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.BasicAuth("Admin Login", map[string]string{
			h.opts.AdminUsername: h.opts.AdminPassword,
		}))
		r.Get("/", h.page("admin_home.html"))
		r.Get("/new", h.adminNewForm)
		r.Post("/new", h.adminNewSubmit)
		r.Get("/update/{trackingID}", h.adminUpdateForm)
		r.Post("/update/{trackingID}", h.adminUpdateSubmit)
	})

	return r
}

func (h *Handler) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.render(w, name, nil)
	}
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("render template", "template", name, "err", err)
	}
}
