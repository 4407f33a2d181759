package pgshipments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/movexa/tracking/internal/models"
	"github.com/movexa/tracking/internal/storage"
)

func (s *Storage) GetPackage(ctx context.Context, trackingID string) (*models.Package, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var p models.Package
	err := s.db.QueryRow(ctx, `
SELECT tracking_id, recipient, status, created_at, weight, dimensions, shipment_type, location
FROM packages
WHERE tracking_id = $1
`, trackingID).Scan(
		&p.TrackingID, &p.Recipient, &p.Status, &p.CreatedAt,
		&p.Weight, &p.Dimensions, &p.ShipmentType, &p.Location,
	)
	if err != nil {
		return nil, classify(err, "select package")
	}
	return &p, nil
}

// GetHistory returns the package's entries most recent first. Unknown
// tracking ids yield an empty slice, not an error.
func (s *Storage) GetHistory(ctx context.Context, trackingID string) ([]*models.HistoryEntry, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, `
SELECT id, tracking_id, timestamp, location, status_update
FROM history
WHERE tracking_id = $1
ORDER BY timestamp DESC, id DESC
`, trackingID)
	if err != nil {
		return nil, classify(err, "select history")
	}
	defer rows.Close()

	out := []*models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.TrackingID, &e.Timestamp, &e.Location, &e.StatusUpdate); err != nil {
			return nil, classify(err, "scan history entry")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, classify(rows.Err(), "rows")
	}
	return out, nil
}

// CreatePackage inserts the package row and its first history entry in one
// transaction; a package never exists without history.
func (s *Storage) CreatePackage(ctx context.Context, pkg *models.Package, first *models.HistoryEntry) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO packages (
  tracking_id, recipient, status, created_at, weight, dimensions, shipment_type, location
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, pkg.TrackingID, pkg.Recipient, pkg.Status, pkg.CreatedAt,
		pkg.Weight, pkg.Dimensions, pkg.ShipmentType, pkg.Location)
	if err != nil {
		return classify(err, "insert package")
	}

	err = tx.QueryRow(ctx, `
INSERT INTO history (tracking_id, timestamp, location, status_update)
VALUES ($1,$2,$3,$4)
RETURNING id
`, first.TrackingID, first.Timestamp, first.Location, first.StatusUpdate).Scan(&first.ID)
	if err != nil {
		return classify(err, "insert first history entry")
	}

	if err := tx.Commit(ctx); err != nil {
		return classify(err, "commit tx")
	}
	return nil
}

// AppendStatusUpdate inserts a history entry and refreshes the package's
// status/location projection atomically.
func (s *Storage) AppendStatusUpdate(ctx context.Context, trackingID, status, location, timestamp string) (*models.HistoryEntry, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, classify(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE packages SET status = $2, location = $3 WHERE tracking_id = $1
`, trackingID, status, location)
	if err != nil {
		return nil, classify(err, "update package projection")
	}
	if tag.RowsAffected() == 0 {
		return nil, errors.Wrap(storage.ErrNotFound, "update package projection")
	}

	entry := &models.HistoryEntry{
		TrackingID:   trackingID,
		Timestamp:    timestamp,
		Location:     location,
		StatusUpdate: status,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO history (tracking_id, timestamp, location, status_update)
VALUES ($1,$2,$3,$4)
RETURNING id
`, trackingID, timestamp, location, status).Scan(&entry.ID)
	if err != nil {
		return nil, classify(err, "insert history entry")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, classify(err, "commit tx")
	}
	return entry, nil
}
