package sqliteshipments

import (
	"context"

	"github.com/pkg/errors"

	"github.com/movexa/tracking/internal/models"
	"github.com/movexa/tracking/internal/storage"
)

func (s *Storage) GetPackage(ctx context.Context, trackingID string) (*models.Package, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var p models.Package
	err := s.db.QueryRowContext(ctx, `
SELECT tracking_id, recipient, status, created_at, weight, dimensions, shipment_type, location
FROM packages
WHERE tracking_id = ?
`, trackingID).Scan(
		&p.TrackingID, &p.Recipient, &p.Status, &p.CreatedAt,
		&p.Weight, &p.Dimensions, &p.ShipmentType, &p.Location,
	)
	if err != nil {
		return nil, classify(err, "select package")
	}
	return &p, nil
}

func (s *Storage) GetHistory(ctx context.Context, trackingID string) ([]*models.HistoryEntry, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
SELECT id, tracking_id, timestamp, location, status_update
FROM history
WHERE tracking_id = ?
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

func (s *Storage) CreatePackage(ctx context.Context, pkg *models.Package, first *models.HistoryEntry) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO packages (
  tracking_id, recipient, status, created_at, weight, dimensions, shipment_type, location
)
VALUES (?,?,?,?,?,?,?,?)
`, pkg.TrackingID, pkg.Recipient, pkg.Status, pkg.CreatedAt,
		pkg.Weight, pkg.Dimensions, pkg.ShipmentType, pkg.Location)
	if err != nil {
		return classify(err, "insert package")
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO history (tracking_id, timestamp, location, status_update)
VALUES (?,?,?,?)
`, first.TrackingID, first.Timestamp, first.Location, first.StatusUpdate)
	if err != nil {
		return classify(err, "insert first history entry")
	}
	if id, err := res.LastInsertId(); err == nil {
		first.ID = uint64(id)
	}

	if err := tx.Commit(); err != nil {
		return classify(err, "commit tx")
	}
	return nil
}

func (s *Storage) AppendStatusUpdate(ctx context.Context, trackingID, status, location, timestamp string) (*models.HistoryEntry, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
UPDATE packages SET status = ?, location = ? WHERE tracking_id = ?
`, status, location, trackingID)
	if err != nil {
		return nil, classify(err, "update package projection")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, errors.Wrap(storage.ErrNotFound, "update package projection")
	}

	entry := &models.HistoryEntry{
		TrackingID:   trackingID,
		Timestamp:    timestamp,
		Location:     location,
		StatusUpdate: status,
	}
	res, err = tx.ExecContext(ctx, `
INSERT INTO history (tracking_id, timestamp, location, status_update)
VALUES (?,?,?,?)
`, trackingID, timestamp, location, status)
	if err != nil {
		return nil, classify(err, "insert history entry")
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = uint64(id)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err, "commit tx")
	}
	return entry, nil
}
