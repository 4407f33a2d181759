package shipments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/movexa/tracking/internal/broker/messages"
	"github.com/movexa/tracking/internal/cache"
	"github.com/movexa/tracking/internal/models"
	"github.com/movexa/tracking/internal/storage"
	"github.com/movexa/tracking/internal/timefmt"
)

// ErrInvalidInput is the root of every validation failure; match with
// errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// createRetries bounds how often CreateShipment regenerates a colliding
// tracking id before giving up.
const createRetries = 3

type Repository interface {
	GetPackage(ctx context.Context, trackingID string) (*models.Package, error)
	GetHistory(ctx context.Context, trackingID string) ([]*models.HistoryEntry, error)
	CreatePackage(ctx context.Context, pkg *models.Package, first *models.HistoryEntry) error
	AppendStatusUpdate(ctx context.Context, trackingID, status, location, timestamp string) (*models.HistoryEntry, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Service struct {
	repo    Repository
	cache   cache.BytesCache
	viewTTL time.Duration

	publisher Publisher
	topic     string
}

// New wires the service. cache and publisher may be nil; both are
// best-effort and never fail a request.
func New(repo Repository, c cache.BytesCache, viewTTL time.Duration, publisher Publisher, topic string) *Service {
	return &Service{repo: repo, cache: c, viewTTL: viewTTL, publisher: publisher, topic: topic}
}

func (s *Service) CreateShipment(ctx context.Context, in models.CreateShipmentInput) (*models.Package, error) {
	if strings.TrimSpace(in.Recipient) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "recipient is required")
	}
	if strings.TrimSpace(in.Location) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "location is required")
	}
	if in.Weight != nil && *in.Weight <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "weight must be greater than zero")
	}

	supplied := strings.ToUpper(strings.TrimSpace(in.TrackingID))
	now := timefmt.Now()

	for attempt := 0; attempt < createRetries; attempt++ {
		id := supplied
		if id == "" {
			id = GenerateTrackingID()
		}

		pkg := &models.Package{
			TrackingID:   id,
			Recipient:    in.Recipient,
			Status:       models.StatusShipmentCreated,
			CreatedAt:    now,
			Weight:       in.Weight,
			Dimensions:   in.Dimensions,
			ShipmentType: in.ShipmentType,
			Location:     in.Location,
		}
		first := &models.HistoryEntry{
			TrackingID:   id,
			Timestamp:    now,
			Location:     in.Location,
			StatusUpdate: models.StatusShipmentCreated,
		}

		err := s.repo.CreatePackage(ctx, pkg, first)
		if err == nil {
			s.cacheView(ctx, &models.TrackingView{Package: pkg, History: []*models.HistoryEntry{first}})
			return pkg, nil
		}
		// A generated id may collide; a caller-supplied one is the
		// caller's problem.
		if errors.Is(err, storage.ErrDuplicateTrackingID) && supplied == "" {
			continue
		}
		return nil, err
	}
	return nil, errors.Wrapf(storage.ErrDuplicateTrackingID, "gave up after %d generated ids", createRetries)
}

func (s *Service) RecordStatusUpdate(ctx context.Context, trackingID, status, location string) (*models.HistoryEntry, error) {
	trackingID = strings.ToUpper(strings.TrimSpace(trackingID))
	if trackingID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "trackingId is required")
	}
	if strings.TrimSpace(status) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "status is required")
	}
	if strings.TrimSpace(location) == "" {
		return nil, errors.Wrap(ErrInvalidInput, "location is required")
	}

	entry, err := s.repo.AppendStatusUpdate(ctx, trackingID, status, location, timefmt.Now())
	if err != nil {
		return nil, err
	}

	s.publishUpdated(ctx, entry)
	s.refreshView(ctx, trackingID)

	return entry, nil
}

// GetTrackingView never reports "not found" as an error: unknown ids yield
// a placeholder package and empty history so the results page always has
// something to render. Store outages still surface as errors.
func (s *Service) GetTrackingView(ctx context.Context, trackingID string) (*models.TrackingView, error) {
	trackingID = strings.ToUpper(strings.TrimSpace(trackingID))

	if s.cache != nil && s.viewTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, viewKey(trackingID)); err == nil && ok {
			var v models.TrackingView
			if json.Unmarshal(b, &v) == nil {
				return &v, nil
			}
		}
	}

	v, err := s.loadView(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	if v.Package.Status != models.StatusNotFound {
		s.cacheView(ctx, v)
	}
	return v, nil
}

func (s *Service) loadView(ctx context.Context, trackingID string) (*models.TrackingView, error) {
	pkg, err := s.repo.GetPackage(ctx, trackingID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return &models.TrackingView{
			Package: NotFoundPackage(trackingID),
			History: []*models.HistoryEntry{},
		}, nil
	case err != nil:
		return nil, err
	}

	history, err := s.repo.GetHistory(ctx, trackingID)
	if err != nil {
		return nil, err
	}
	sortHistory(history)

	return &models.TrackingView{Package: pkg, History: history}, nil
}

// NotFoundPackage is the renderable stand-in for an unknown tracking id.
func NotFoundPackage(trackingID string) *models.Package {
	return &models.Package{
		TrackingID: trackingID,
		Recipient:  "N/A",
		Status:     models.StatusNotFound,
		CreatedAt:  "N/A",
	}
}

// sortHistory orders entries newest first by the canonical timestamp,
// breaking ties by insertion id. Entries that fail to parse fall back to
// raw string comparison, which agrees with the parsed order for well-formed
// values since the layout is lexicographically sortable.
func sortHistory(entries []*models.HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, erri := timefmt.Parse(entries[i].Timestamp)
		tj, errj := timefmt.Parse(entries[j].Timestamp)
		if erri != nil || errj != nil {
			if entries[i].Timestamp != entries[j].Timestamp {
				return entries[i].Timestamp > entries[j].Timestamp
			}
			return entries[i].ID > entries[j].ID
		}
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return entries[i].ID > entries[j].ID
	})
}

func (s *Service) publishUpdated(ctx context.Context, entry *models.HistoryEntry) {
	if s.publisher == nil || s.topic == "" {
		return
	}
	msg := messages.ShipmentUpdated{
		TrackingID:   entry.TrackingID,
		StatusUpdate: entry.StatusUpdate,
		Location:     entry.Location,
		Timestamp:    entry.Timestamp,
	}
	b, _ := json.Marshal(msg)
	if err := s.publisher.Publish(ctx, s.topic, []byte(entry.TrackingID), b); err != nil {
		slog.Warn("publish shipment update", "trackingId", entry.TrackingID, "err", err)
	}
}

// refreshView reloads the package from the store and rewrites the cached
// view so readers see the append immediately.
func (s *Service) refreshView(ctx context.Context, trackingID string) {
	if s.cache == nil || s.viewTTL <= 0 {
		return
	}
	v, err := s.loadView(ctx, trackingID)
	if err != nil {
		slog.Warn("refresh view cache", "trackingId", trackingID, "err", err)
		return
	}
	s.cacheView(ctx, v)
}

func (s *Service) cacheView(ctx context.Context, v *models.TrackingView) {
	if s.cache == nil || s.viewTTL <= 0 {
		return
	}
	b, _ := json.Marshal(v)
	_ = s.cache.Set(ctx, viewKey(v.Package.TrackingID), b, s.viewTTL)
}

func viewKey(trackingID string) string {
	return fmt.Sprintf("shipment:%s:view", trackingID)
}
