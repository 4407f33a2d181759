package models

// Status labels offered by the admin UI. The status column itself is
// free-form text.
const (
	StatusShipmentCreated = "Shipment Created"
	StatusInTransit       = "In Transit"
	StatusDelivered       = "Delivered"

	// StatusNotFound marks the placeholder package returned for unknown
	// tracking ids so the results page always has something to render.
	StatusNotFound = "Not Found"
)

// Package is the current state of one shipment. Status and Location mirror
// the most recent history entry; the store keeps them in sync on every
// append.
type Package struct {
	TrackingID   string   `json:"tracking_id"`
	Recipient    string   `json:"recipient"`
	Status       string   `json:"status"`
	CreatedAt    string   `json:"created_at"`
	Weight       *float64 `json:"weight,omitempty"`
	Dimensions   *string  `json:"dimensions,omitempty"`
	ShipmentType *string  `json:"shipment_type,omitempty"`
	Location     string   `json:"location"`
}

// HistoryEntry is one append-only status record. Timestamps are carried in
// the canonical textual format (see timefmt).
type HistoryEntry struct {
	ID           uint64 `json:"id"`
	TrackingID   string `json:"tracking_id"`
	Timestamp    string `json:"timestamp"`
	Location     string `json:"location"`
	StatusUpdate string `json:"status_update"`
}

type CreateShipmentInput struct {
	TrackingID   string
	Recipient    string
	Weight       *float64
	Dimensions   *string
	ShipmentType *string
	Location     string
}

// TrackingView is what the results page renders: the package (possibly the
// Not Found placeholder) plus its history, most recent first.
type TrackingView struct {
	Package *Package        `json:"package"`
	History []*HistoryEntry `json:"history"`
}
