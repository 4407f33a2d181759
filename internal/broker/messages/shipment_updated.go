package messages

// ShipmentUpdated is published after every successful status append so
// downstream consumers (notification jobs, analytics) can react without
// polling the store.
type ShipmentUpdated struct {
	TrackingID   string `json:"tracking_id"`
	StatusUpdate string `json:"status_update"`
	Location     string `json:"location"`
	Timestamp    string `json:"timestamp"`
}
