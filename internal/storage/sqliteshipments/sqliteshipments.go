// Package sqliteshipments is the embedded shipment store used for local
// development: same contract as pgshipments, backed by a SQLite file.
package sqliteshipments

import (
	"context"
	"database/sql"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/movexa/tracking/internal/storage"
)

const defaultOpTimeout = 5 * time.Second

type Storage struct {
	db        *sql.DB
	opTimeout time.Duration
}

func New(path string, opTimeout time.Duration) (*Storage, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// SQLite allows one writer at a time; a single connection avoids
	// SQLITE_BUSY churn under concurrent appends.
	db.SetMaxOpenConns(1)

	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	s := &Storage{db: db, opTimeout: opTimeout}
	if err := s.initSchema(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Storage) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return errors.Wrap(storage.ErrNotFound, op)
	case isUniqueViolation(err):
		return errors.Wrap(storage.ErrDuplicateTrackingID, op)
	default:
		return errors.Wrapf(storage.ErrUnavailable, "%s: %v", op, err)
	}
}

func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	return errors.As(err, &sqlErr) && sqlErr.Code == sqlite3.ErrConstraint
}
