package sqliteshipments

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS packages (
  tracking_id TEXT PRIMARY KEY,
  recipient TEXT NOT NULL,
  status TEXT NOT NULL,
  created_at TEXT NOT NULL,
  weight REAL NULL,
  dimensions TEXT NULL,
  shipment_type TEXT NULL,
  location TEXT NOT NULL DEFAULT ''
)`,
		`
CREATE TABLE IF NOT EXISTS history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  tracking_id TEXT NOT NULL REFERENCES packages(tracking_id),
  timestamp TEXT NOT NULL,
  location TEXT NOT NULL,
  status_update TEXT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_history_tracking_id_timestamp ON history(tracking_id, timestamp DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
