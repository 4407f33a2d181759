package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/movexa/tracking/internal/models"
	"github.com/movexa/tracking/internal/services/shipments"
	"github.com/movexa/tracking/internal/storage"
)

type webServerOpts struct {
	httpAddr string
	handler  http.Handler

	onListen func(httpAddr string)
}

func runWebServer(ctx context.Context, opts webServerOpts) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: opts.handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	slog.Info("http server listening", "addr", lis.Addr().String())
	return srv.Serve(lis)
}

// seedDemoShipment inserts the demo shipment used by the public site's
// examples. Skipped when it already exists.
func seedDemoShipment(ctx context.Context, svc *shipments.Service) {
	const demoID = "MVX-DEMO2025"

	weight := 5.0
	dims := "20cm x 20cm x 10cm"
	shipType := "Small Parcel"

	_, err := svc.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID:   demoID,
		Recipient:    "Movexa Demo Customer",
		Weight:       &weight,
		Dimensions:   &dims,
		ShipmentType: &shipType,
		Location:     "Lagos, NG",
	})
	if errors.Is(err, storage.ErrDuplicateTrackingID) {
		return
	}
	if err != nil {
		slog.Warn("seed demo shipment", "err", err)
		return
	}

	for _, upd := range []struct{ status, location string }{
		{models.StatusInTransit, "Lagos Sorting Facility"},
		{models.StatusDelivered, "Ikeja Delivery Point"},
	} {
		if _, err := svc.RecordStatusUpdate(ctx, demoID, upd.status, upd.location); err != nil {
			slog.Warn("seed demo history", "err", err)
			return
		}
	}
	slog.Info("seeded demo shipment", "trackingId", demoID)
}
