package shipments

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/movexa/tracking/internal/broker/messages"
	"github.com/movexa/tracking/internal/models"
	"github.com/movexa/tracking/internal/storage"
)

type fakeRepo struct {
	pkgs map[string]*models.Package
	hist map[string][]*models.HistoryEntry

	createErrs []error // popped per CreatePackage call
	createIDs  []string
	getCalls   int
	nextID     uint64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pkgs: map[string]*models.Package{},
		hist: map[string][]*models.HistoryEntry{},
	}
}

func (f *fakeRepo) GetPackage(ctx context.Context, trackingID string) (*models.Package, error) {
	f.getCalls++
	p, ok := f.pkgs[trackingID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetHistory(ctx context.Context, trackingID string) ([]*models.HistoryEntry, error) {
	return append([]*models.HistoryEntry{}, f.hist[trackingID]...), nil
}

func (f *fakeRepo) CreatePackage(ctx context.Context, pkg *models.Package, first *models.HistoryEntry) error {
	f.createIDs = append(f.createIDs, pkg.TrackingID)
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, ok := f.pkgs[pkg.TrackingID]; ok {
		return storage.ErrDuplicateTrackingID
	}
	f.nextID++
	first.ID = f.nextID
	f.pkgs[pkg.TrackingID] = pkg
	f.hist[pkg.TrackingID] = []*models.HistoryEntry{first}
	return nil
}

func (f *fakeRepo) AppendStatusUpdate(ctx context.Context, trackingID, status, location, timestamp string) (*models.HistoryEntry, error) {
	p, ok := f.pkgs[trackingID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	p.Status = status
	p.Location = location
	f.nextID++
	entry := &models.HistoryEntry{
		ID:           f.nextID,
		TrackingID:   trackingID,
		Timestamp:    timestamp,
		Location:     location,
		StatusUpdate: status,
	}
	f.hist[trackingID] = append(f.hist[trackingID], entry)
	return entry, nil
}

type fakeCache struct {
	m map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}

type fakePublisher struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic = topic
	p.key = key
	p.value = value
	return p.err
}

func TestCreateShipment_Validation(t *testing.T) {
	s := New(newFakeRepo(), nil, 0, nil, "")
	ctx := context.Background()

	_, err := s.CreateShipment(ctx, models.CreateShipmentInput{Location: "Lagos, NG"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.CreateShipment(ctx, models.CreateShipmentInput{Recipient: "Alice"})
	require.ErrorIs(t, err, ErrInvalidInput)

	bad := -1.0
	_, err = s.CreateShipment(ctx, models.CreateShipmentInput{Recipient: "Alice", Location: "Lagos, NG", Weight: &bad})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateShipment_GeneratesTrackingID(t *testing.T) {
	r := newFakeRepo()
	s := New(r, nil, 0, nil, "")

	pkg, err := s.CreateShipment(context.Background(), models.CreateShipmentInput{
		Recipient: "Alice",
		Location:  "Lagos, NG",
	})
	require.NoError(t, err)
	require.True(t, ValidTrackingID(pkg.TrackingID), "got %q", pkg.TrackingID)
	require.Equal(t, models.StatusShipmentCreated, pkg.Status)
	require.Equal(t, "Lagos, NG", pkg.Location)

	history := r.hist[pkg.TrackingID]
	require.Len(t, history, 1)
	require.Equal(t, models.StatusShipmentCreated, history[0].StatusUpdate)
	require.Equal(t, "Lagos, NG", history[0].Location)
	require.Equal(t, pkg.CreatedAt, history[0].Timestamp)
}

func TestCreateShipment_RetriesOnGeneratedCollision(t *testing.T) {
	r := newFakeRepo()
	r.createErrs = []error{storage.ErrDuplicateTrackingID}
	s := New(r, nil, 0, nil, "")

	pkg, err := s.CreateShipment(context.Background(), models.CreateShipmentInput{
		Recipient: "Alice",
		Location:  "Lagos, NG",
	})
	require.NoError(t, err)
	require.Len(t, r.createIDs, 2)
	require.NotEqual(t, r.createIDs[0], r.createIDs[1])
	require.Equal(t, r.createIDs[1], pkg.TrackingID)
}

func TestCreateShipment_SuppliedDuplicateDoesNotRetry(t *testing.T) {
	r := newFakeRepo()
	s := New(r, nil, 0, nil, "")
	ctx := context.Background()

	_, err := s.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Location: "Lagos, NG",
	})
	require.NoError(t, err)

	_, err = s.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID: "MVX-ABCDEF12", Recipient: "Bob", Location: "Abuja, NG",
	})
	require.ErrorIs(t, err, storage.ErrDuplicateTrackingID)
	require.Len(t, r.createIDs, 2)

	// The first shipment is untouched by the failed create.
	view, err := s.GetTrackingView(ctx, "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Equal(t, "Alice", view.Package.Recipient)
}

func TestCreateShipment_UppercasesSuppliedID(t *testing.T) {
	r := newFakeRepo()
	s := New(r, nil, 0, nil, "")

	pkg, err := s.CreateShipment(context.Background(), models.CreateShipmentInput{
		TrackingID: " mvx-abcdef12 ", Recipient: "Alice", Location: "Lagos, NG",
	})
	require.NoError(t, err)
	require.Equal(t, "MVX-ABCDEF12", pkg.TrackingID)
}

func TestRecordStatusUpdate(t *testing.T) {
	r := newFakeRepo()
	pub := &fakePublisher{}
	s := New(r, nil, 0, pub, "shipment.updated")
	ctx := context.Background()

	_, err := s.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Location: "Lagos, NG",
	})
	require.NoError(t, err)

	entry, err := s.RecordStatusUpdate(ctx, "MVX-ABCDEF12", models.StatusInTransit, "Lagos Hub")
	require.NoError(t, err)
	require.Equal(t, models.StatusInTransit, entry.StatusUpdate)
	require.Equal(t, "Lagos Hub", entry.Location)

	view, err := s.GetTrackingView(ctx, "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Equal(t, models.StatusInTransit, view.Package.Status)
	require.Equal(t, "Lagos Hub", view.Package.Location)
	require.Len(t, view.History, 2)
	require.Equal(t, models.StatusInTransit, view.History[0].StatusUpdate)

	require.Equal(t, 1, pub.calls)
	require.Equal(t, "shipment.updated", pub.topic)
	require.Equal(t, []byte("MVX-ABCDEF12"), pub.key)
	var msg messages.ShipmentUpdated
	require.NoError(t, json.Unmarshal(pub.value, &msg))
	require.Equal(t, models.StatusInTransit, msg.StatusUpdate)
}

func TestRecordStatusUpdate_Validation(t *testing.T) {
	s := New(newFakeRepo(), nil, 0, nil, "")
	ctx := context.Background()

	_, err := s.RecordStatusUpdate(ctx, "", "In Transit", "Hub")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.RecordStatusUpdate(ctx, "MVX-ABCDEF12", "", "Hub")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.RecordStatusUpdate(ctx, "MVX-ABCDEF12", "In Transit", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordStatusUpdate_NotFound(t *testing.T) {
	pub := &fakePublisher{}
	s := New(newFakeRepo(), nil, 0, pub, "shipment.updated")

	_, err := s.RecordStatusUpdate(context.Background(), "MVX-NOTREAL00", "In Transit", "Hub")
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.Zero(t, pub.calls)
}

func TestRecordStatusUpdate_PublishFailureDoesNotFail(t *testing.T) {
	r := newFakeRepo()
	pub := &fakePublisher{err: errors.New("broker down")}
	s := New(r, nil, 0, pub, "shipment.updated")
	ctx := context.Background()

	_, err := s.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Location: "Lagos, NG",
	})
	require.NoError(t, err)

	_, err = s.RecordStatusUpdate(ctx, "MVX-ABCDEF12", models.StatusInTransit, "Hub")
	require.NoError(t, err)
	require.Equal(t, 1, pub.calls)
}

func TestGetTrackingView_NotFoundPlaceholder(t *testing.T) {
	s := New(newFakeRepo(), nil, 0, nil, "")

	view, err := s.GetTrackingView(context.Background(), "MVX-NOTREAL00")
	require.NoError(t, err)
	require.Equal(t, models.StatusNotFound, view.Package.Status)
	require.Equal(t, "MVX-NOTREAL00", view.Package.TrackingID)
	require.Equal(t, "N/A", view.Package.Recipient)
	require.Nil(t, view.Package.Weight)
	require.Empty(t, view.History)
}

func TestGetTrackingView_IdempotentRead(t *testing.T) {
	r := newFakeRepo()
	s := New(r, nil, 0, nil, "")
	ctx := context.Background()

	_, err := s.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Location: "Lagos, NG",
	})
	require.NoError(t, err)

	first, err := s.GetTrackingView(ctx, "MVX-ABCDEF12")
	require.NoError(t, err)
	second, err := s.GetTrackingView(ctx, "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGetTrackingView_SortsHistory(t *testing.T) {
	r := newFakeRepo()
	r.pkgs["MVX-ABCDEF12"] = &models.Package{TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Status: models.StatusInTransit}
	r.hist["MVX-ABCDEF12"] = []*models.HistoryEntry{
		{Timestamp: "2025-01-01 08:00:00.000000", StatusUpdate: "Shipment Created"},
		{Timestamp: "2025-01-03 08:00:00.000000", StatusUpdate: "In Transit"},
		{Timestamp: "2025-01-02 08:00:00.000000", StatusUpdate: "At Depot"},
	}
	s := New(r, nil, 0, nil, "")

	view, err := s.GetTrackingView(context.Background(), "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Equal(t, "In Transit", view.History[0].StatusUpdate)
	require.Equal(t, "At Depot", view.History[1].StatusUpdate)
	require.Equal(t, "Shipment Created", view.History[2].StatusUpdate)
}

func TestGetTrackingView_MalformedTimestampsFallBackToStringOrder(t *testing.T) {
	r := newFakeRepo()
	r.pkgs["MVX-ABCDEF12"] = &models.Package{TrackingID: "MVX-ABCDEF12", Recipient: "Alice"}
	r.hist["MVX-ABCDEF12"] = []*models.HistoryEntry{
		{Timestamp: "bogus-a", StatusUpdate: "first"},
		{Timestamp: "bogus-c", StatusUpdate: "third"},
		{Timestamp: "bogus-b", StatusUpdate: "second"},
	}
	s := New(r, nil, 0, nil, "")

	view, err := s.GetTrackingView(context.Background(), "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Equal(t, "third", view.History[0].StatusUpdate)
	require.Equal(t, "second", view.History[1].StatusUpdate)
	require.Equal(t, "first", view.History[2].StatusUpdate)
}

func TestGetTrackingView_CacheHitSkipsRepo(t *testing.T) {
	r := newFakeRepo()
	c := &fakeCache{m: map[string][]byte{}}
	s := New(r, c, 10*time.Minute, nil, "")

	cached := &models.TrackingView{
		Package: &models.Package{TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Status: models.StatusInTransit},
		History: []*models.HistoryEntry{},
	}
	b, err := json.Marshal(cached)
	require.NoError(t, err)
	c.m["shipment:MVX-ABCDEF12:view"] = b

	view, err := s.GetTrackingView(context.Background(), "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Equal(t, "Alice", view.Package.Recipient)
	require.Zero(t, r.getCalls)
}

func TestGetTrackingView_DoesNotCachePlaceholder(t *testing.T) {
	r := newFakeRepo()
	c := &fakeCache{m: map[string][]byte{}}
	s := New(r, c, 10*time.Minute, nil, "")
	ctx := context.Background()

	_, err := s.GetTrackingView(ctx, "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Empty(t, c.m)

	// Create after a miss: the next read must see the real package.
	_, err = s.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Location: "Lagos, NG",
	})
	require.NoError(t, err)

	view, err := s.GetTrackingView(ctx, "MVX-ABCDEF12")
	require.NoError(t, err)
	require.Equal(t, models.StatusShipmentCreated, view.Package.Status)
}

func TestRecordStatusUpdate_RefreshesCache(t *testing.T) {
	r := newFakeRepo()
	c := &fakeCache{m: map[string][]byte{}}
	s := New(r, c, 10*time.Minute, nil, "")
	ctx := context.Background()

	_, err := s.CreateShipment(ctx, models.CreateShipmentInput{
		TrackingID: "MVX-ABCDEF12", Recipient: "Alice", Location: "Lagos, NG",
	})
	require.NoError(t, err)

	_, err = s.RecordStatusUpdate(ctx, "MVX-ABCDEF12", models.StatusInTransit, "Lagos Hub")
	require.NoError(t, err)

	var v models.TrackingView
	require.NoError(t, json.Unmarshal(c.m["shipment:MVX-ABCDEF12:view"], &v))
	require.Equal(t, models.StatusInTransit, v.Package.Status)
	require.Len(t, v.History, 2)
}
