package webapp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/movexa/tracking/internal/models"
	"github.com/movexa/tracking/internal/services/shipments"
	"github.com/movexa/tracking/internal/storage"
)

type adminNewPage struct {
	PlaceholderID string
	Error         string
}

type adminUpdatePage struct {
	Package *models.Package
	Error   string
}

func (h *Handler) adminNewForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "admin_new.html", adminNewPage{PlaceholderID: shipments.GenerateTrackingID()})
}

func (h *Handler) adminNewSubmit(w http.ResponseWriter, r *http.Request) {
	in := models.CreateShipmentInput{
		TrackingID: r.FormValue("tracking_id"),
		Recipient:  r.FormValue("recipient"),
		Location:   r.FormValue("location"),
	}
	// Malformed weight is treated as absent, matching the form's optional
	// parcel details.
	if v := strings.TrimSpace(r.FormValue("weight")); v != "" {
		if weight, err := strconv.ParseFloat(v, 64); err == nil {
			in.Weight = &weight
		}
	}
	if v := strings.TrimSpace(r.FormValue("dimensions")); v != "" {
		in.Dimensions = &v
	}
	if v := strings.TrimSpace(r.FormValue("shipment_type")); v != "" {
		in.ShipmentType = &v
	}

	pkg, err := h.svc.CreateShipment(r.Context(), in)
	if err != nil {
		h.render(w, "admin_new.html", adminNewPage{
			PlaceholderID: shipments.GenerateTrackingID(),
			Error:         createErrorMessage(err),
		})
		return
	}

	http.Redirect(w, r, "/admin/update/"+pkg.TrackingID, http.StatusSeeOther)
}

func (h *Handler) adminUpdateForm(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	view, err := h.svc.GetTrackingView(r.Context(), trackingID)
	if err != nil {
		slog.Error("get tracking view", "trackingId", trackingID, "err", err)
		http.Error(w, "Service temporarily unavailable.", http.StatusServiceUnavailable)
		return
	}
	if view.Package.Status == models.StatusNotFound {
		w.WriteHeader(http.StatusNotFound)
		h.render(w, "admin_update_status.html", adminUpdatePage{
			Error: "Package ID " + trackingID + " not found.",
		})
		return
	}
	h.render(w, "admin_update_status.html", adminUpdatePage{Package: view.Package})
}

func (h *Handler) adminUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingID")

	_, err := h.svc.RecordStatusUpdate(r.Context(), trackingID, r.FormValue("status"), r.FormValue("location"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		w.WriteHeader(http.StatusNotFound)
		h.render(w, "admin_update_status.html", adminUpdatePage{
			Error: "Package ID " + trackingID + " not found.",
		})
		return
	case errors.Is(err, shipments.ErrInvalidInput):
		view, verr := h.svc.GetTrackingView(r.Context(), trackingID)
		page := adminUpdatePage{Error: err.Error()}
		if verr == nil {
			page.Package = view.Package
		}
		w.WriteHeader(http.StatusBadRequest)
		h.render(w, "admin_update_status.html", page)
		return
	case err != nil:
		slog.Error("record status update", "trackingId", trackingID, "err", err)
		http.Error(w, "Service temporarily unavailable.", http.StatusServiceUnavailable)
		return
	}

	http.Redirect(w, r, "/results/"+strings.ToUpper(strings.TrimSpace(trackingID)), http.StatusSeeOther)
}

// createErrorMessage keeps engine internals out of the admin page while
// still distinguishing the expected failure modes.
func createErrorMessage(err error) string {
	switch {
	case errors.Is(err, shipments.ErrInvalidInput):
		return err.Error()
	case errors.Is(err, storage.ErrDuplicateTrackingID):
		return "A package with that tracking ID already exists."
	default:
		slog.Error("create shipment", "err", err)
		return "Error creating package, please try again."
	}
}
