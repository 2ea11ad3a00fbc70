package relay_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/couchcryptid/cyclone-relay/internal/observability"
	"github.com/couchcryptid/cyclone-relay/internal/relay"
	"github.com/couchcryptid/cyclone-relay/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const (
	broadcastChannel = "broadcast-chan"
	dmChannel        = "dm-chan"
	operatorID       = "op-1"
)

// runAt is the scenario clock: 2023-09-10T09:15:00Z.
var runAt = time.Date(2023, 9, 10, 9, 15, 0, 0, time.UTC)

// --- fakes ---

type fakeFeed struct {
	records []domain.CycloneRecord
	err     error
	calls   atomic.Int64
}

func (f *fakeFeed) Cyclones(_ context.Context) ([]domain.CycloneRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeImages struct {
	err error
}

func (f *fakeImages) ConeImage(_ context.Context, rec domain.CycloneRecord) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + rec.ATCFID), nil
}

func (f *fakeImages) ConeImageURL(rec domain.CycloneRecord) string {
	return "https://img.test/" + rec.SeasonalID + "/" + rec.ATCFID + ".png"
}

// fakeMessenger records every call as "<op> <channel> <target>" and hands out
// sequential message ids new-1, new-2, ...
type fakeMessenger struct {
	mu    sync.Mutex
	calls []string
	next  int

	contents map[string]string // message id -> content
	images   map[string][]byte // message id -> attachment

	history []domain.ChatMessage

	failUnpin  map[string]bool
	failPin    bool
	failDelete bool
	failEdit   bool
	failCreate bool
	failImage  bool
	failDM     bool
	failRead   bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		contents:  map[string]string{},
		images:    map[string][]byte{},
		failUnpin: map[string]bool{},
	}
}

func (m *fakeMessenger) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *fakeMessenger) newID() string {
	m.next++
	return fmt.Sprintf("new-%d", m.next)
}

func (m *fakeMessenger) CreateMessage(_ context.Context, channelID, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("create %s", channelID)
	if m.failCreate {
		return "", fmt.Errorf("create: 500")
	}
	id := m.newID()
	m.contents[id] = content
	return id, nil
}

func (m *fakeMessenger) EditMessage(_ context.Context, channelID, messageID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("edit %s %s", channelID, messageID)
	if m.failEdit {
		return fmt.Errorf("edit: 404")
	}
	m.contents[messageID] = content
	return nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("delete %s %s", channelID, messageID)
	if m.failDelete {
		return fmt.Errorf("delete: 404")
	}
	return nil
}

func (m *fakeMessenger) CreateImageMessage(_ context.Context, channelID, content, filename string, image []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("image %s %s", channelID, filename)
	if m.failImage {
		return "", fmt.Errorf("upload: 413")
	}
	id := m.newID()
	m.contents[id] = content
	m.images[id] = image
	return id, nil
}

func (m *fakeMessenger) PinMessage(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("pin %s %s", channelID, messageID)
	if m.failPin {
		return fmt.Errorf("pin: 403")
	}
	return nil
}

func (m *fakeMessenger) UnpinMessage(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("unpin %s %s", channelID, messageID)
	if m.failUnpin[messageID] {
		return fmt.Errorf("unpin: 404")
	}
	return nil
}

func (m *fakeMessenger) DirectMessageChannel(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDM {
		return "", fmt.Errorf("dm: 401")
	}
	if userID != operatorID {
		return "", fmt.Errorf("unexpected user %s", userID)
	}
	return dmChannel, nil
}

func (m *fakeMessenger) RecentMessages(_ context.Context, channelID string, _ int) ([]domain.ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return nil, fmt.Errorf("read: 403")
	}
	if channelID != dmChannel {
		return nil, fmt.Errorf("unexpected channel %s", channelID)
	}
	return m.history, nil
}

func (m *fakeMessenger) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

type fakePublisher struct {
	events []domain.CycloneEvent
	err    error
}

func (f *fakePublisher) PublishCycloneEvents(_ context.Context, events []domain.CycloneEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, events...)
	return nil
}

type fakeRecorder struct {
	reports []domain.RunReport
}

func (f *fakeRecorder) RecordRun(_ context.Context, report domain.RunReport) error {
	f.reports = append(f.reports, report)
	return nil
}

type fakeGeocoder struct {
	place string
	err   error
}

func (f *fakeGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	if f.err != nil {
		return domain.GeocodingResult{}, f.err
	}
	return domain.GeocodingResult{FormattedAddress: f.place}, nil
}

// --- fixtures ---

func lee(token string) domain.CycloneRecord {
	return domain.CycloneRecord{
		ATCFID:         "AL132023",
		SeasonalID:     "AT13",
		UpdateToken:    token,
		Classification: "hurricane",
		Name:           "lee",
		Wind:           "120 mph",
		Category:       3,
		Basin:          "at",
		Center:         domain.Geo{Lat: 21.7, Lon: -61.9},
	}
}

func margot(token string) domain.CycloneRecord {
	return domain.CycloneRecord{
		ATCFID:         "AL142023",
		SeasonalID:     "AT14",
		UpdateToken:    token,
		Classification: "tropical storm",
		Name:           "margot",
		Wind:           "50 mph",
		Basin:          "at",
	}
}

func trackCommand(content string) domain.ChatMessage {
	return domain.ChatMessage{ID: "c1", AuthorID: operatorID, Content: content}
}

// --- harness ---

type harness struct {
	relay     *relay.Relay
	feed      *fakeFeed
	images    *fakeImages
	messenger *fakeMessenger
	store     *store.Store
	publisher *fakePublisher
	recorder  *fakeRecorder
	clock     *clockwork.FakeClock
	metrics   *observability.Metrics
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, records ...domain.CycloneRecord) *harness {
	t.Helper()
	logger := discardLogger()
	h := &harness{
		feed:      &fakeFeed{records: records},
		images:    &fakeImages{},
		messenger: newFakeMessenger(),
		store:     store.New(store.NewMemory(), logger),
		publisher: &fakePublisher{},
		recorder:  &fakeRecorder{},
		clock:     clockwork.NewFakeClockAt(runAt),
		metrics:   observability.NewMetricsForTesting(),
	}
	h.relay = relay.New(relay.Deps{
		Feed:      h.feed,
		Images:    h.images,
		Messenger: h.messenger,
		State:     h.store,
		Publisher: h.publisher,
		Recorder:  h.recorder,
	}, relay.Options{
		BroadcastChannelID: broadcastChannel,
		OperatorID:         operatorID,
		DigestHour:         domain.DefaultDigestHour,
	}, h.clock, logger, h.metrics)
	return h
}

// seed persists a previous state. A zero DigestNextDueAt is replaced with a
// future time so the digest does not fire unless a test asks for it.
func (h *harness) seed(t *testing.T, state domain.RunState) {
	t.Helper()
	if state.DigestNextDueAt.IsZero() {
		state.DigestNextDueAt = runAt.Add(time.Hour)
	}
	require.NoError(t, h.store.Save(context.Background(), state.Normalize()))
}

func (h *harness) state(t *testing.T) domain.RunState {
	t.Helper()
	st, err := h.store.Load(context.Background())
	require.NoError(t, err)
	return st
}
