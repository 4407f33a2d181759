package pgshipments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/movexa/tracking/internal/storage"
)

const defaultOpTimeout = 5 * time.Second

type Storage struct {
	db        *pgxpool.Pool
	opTimeout time.Duration
}

func New(connString string, opTimeout time.Duration) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, errors.Wrap(err, "parse pg config")
	}

	db, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "connect pg")
	}

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
		s.db.Close()
	}
}

// opCtx caps every store call so a stuck engine surfaces as ErrUnavailable
// instead of blocking the request forever.
func (s *Storage) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// classify maps driver errors onto the shared store taxonomy.
func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return errors.Wrap(storage.ErrNotFound, op)
	case isUniqueViolation(err):
		return errors.Wrap(storage.ErrDuplicateTrackingID, op)
	default:
		return errors.Wrapf(storage.ErrUnavailable, "%s: %v", op, err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
