// Package relay runs one poll-diff-notify cycle: it loads the previous run
// state, polls the NHC feed, applies operator track commands, posts the
// broadcast and digest reports, and saves the new state.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/cyclone-relay/internal/domain"
	"github.com/couchcryptid/cyclone-relay/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// FeedSource polls the current cyclone snapshot.
type FeedSource interface {
	Cyclones(ctx context.Context) ([]domain.CycloneRecord, error)
}

// ImageSource provides forecast cone graphics for a storm.
type ImageSource interface {
	ConeImage(ctx context.Context, rec domain.CycloneRecord) ([]byte, error)
	ConeImageURL(rec domain.CycloneRecord) string
}

// Messenger is the chat platform the reports are posted to.
type Messenger interface {
	CreateMessage(ctx context.Context, channelID, content string) (string, error)
	EditMessage(ctx context.Context, channelID, messageID, content string) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	CreateImageMessage(ctx context.Context, channelID, content, filename string, image []byte) (string, error)
	PinMessage(ctx context.Context, channelID, messageID string) error
	UnpinMessage(ctx context.Context, channelID, messageID string) error
	DirectMessageChannel(ctx context.Context, userID string) (string, error)
	RecentMessages(ctx context.Context, channelID string, limit int) ([]domain.ChatMessage, error)
}

// StateStore persists RunState between runs.
type StateStore interface {
	Load(ctx context.Context) (domain.RunState, error)
	Save(ctx context.Context, state domain.RunState) error
}

// EventPublisher receives cyclone update and dissipation events.
type EventPublisher interface {
	PublishCycloneEvents(ctx context.Context, events []domain.CycloneEvent) error
}

// RunRecorder stores finished run reports.
type RunRecorder interface {
	RecordRun(ctx context.Context, report domain.RunReport) error
}

// Deps are the collaborators of a Relay. Publisher, Recorder and Geocoder
// are optional.
type Deps struct {
	Feed      FeedSource
	Images    ImageSource
	Messenger Messenger
	State     StateStore
	Publisher EventPublisher
	Recorder  RunRecorder
	Geocoder  domain.Geocoder
}

// Options configure where reports go and when the digest falls due.
type Options struct {
	BroadcastChannelID  string
	OperatorID          string
	DigestHour          int
	CommandHistoryLimit int
}

// Relay executes runs. A Relay is safe for use by one run at a time; the
// readiness and status accessors may be called concurrently.
type Relay struct {
	deps    Deps
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	ready atomic.Bool

	mu   sync.Mutex
	last *domain.RunReport
}

// New creates a Relay.
func New(deps Deps, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Relay {
	if opts.CommandHistoryLimit <= 0 {
		opts.CommandHistoryLimit = 50
	}
	return &Relay{
		deps:    deps,
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (r *Relay) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("relay has not completed a successful run yet")
	}
	return nil
}

// LastReport returns the report of the most recent run, if any.
func (r *Relay) LastReport() (domain.RunReport, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return domain.RunReport{}, false
	}
	return *r.last, true
}

// Run performs one complete cycle. Best-effort failures are collected in the
// returned report; a non-nil error means the run aborted and no state was
// saved.
func (r *Relay) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: r.clock.Now().UTC(),
		Updated:   []string{},
		Tracked:   []string{},
	}
	logger := r.logger.With("run_id", report.RunID)
	logger.Info("run started")

	err := r.run(ctx, logger, &report)

	report.FinishedAt = r.clock.Now().UTC()
	if err != nil {
		report.Error = err.Error()
		logger.Error("run failed", "error", err, "failed_actions", len(report.Failures()))
	} else {
		r.ready.Store(true)
		logger.Info("run completed",
			"cyclones", report.Cyclones,
			"updated", report.Updated,
			"tracked", report.Tracked,
			"digest_posted", report.DigestPosted,
			"failed_actions", len(report.Failures()),
			"duration", report.FinishedAt.Sub(report.StartedAt),
		)
	}

	r.observe(report, err)
	r.recordRun(ctx, logger, report)

	r.mu.Lock()
	r.last = &report
	r.mu.Unlock()

	return report, err
}

func (r *Relay) run(ctx context.Context, logger *slog.Logger, report *domain.RunReport) error {
	state, err := r.deps.State.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	current, err := r.deps.Feed.Cyclones(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	current = r.enrich(ctx, logger, report, current)
	report.Cyclones = len(current)

	dmChannel, err := r.deps.Messenger.DirectMessageChannel(ctx, r.opts.OperatorID)
	if err != nil {
		return fmt.Errorf("open operator channel: %w", err)
	}
	commanded := r.readCommands(ctx, logger, report, dmChannel)

	diff := domain.Diff(domain.TrackingCandidates(state.TrackedIdentifiers, commanded), state.Cyclones, current)
	report.Updated = domain.IDs(diff.Updated)
	report.Tracked = diff.StillTrackable

	next := state
	next.TrackedIdentifiers = diff.StillTrackable

	if len(next.TrackedIdentifiers) > 0 && len(diff.Updated) > 0 {
		ids, err := r.broadcast(ctx, logger, report, state.BroadcastMessageIDs, diff.Updated)
		if err != nil {
			return err
		}
		next.BroadcastMessageIDs = ids
		report.BroadcastMessageIDs = ids
	}

	now := r.clock.Now().UTC()
	if domain.DigestDue(now, state.DigestNextDueAt) {
		id, err := r.digest(ctx, logger, report, dmChannel, state.DigestMessageID, current, now)
		if err != nil {
			return err
		}
		next.DigestMessageID = id
		next.DigestNextDueAt = domain.NextDigestDue(now, r.opts.DigestHour)
		report.DigestMessageID = id
		report.DigestPosted = true
		logger.Info("digest posted", "message_id", id, "next_due_at", next.DigestNextDueAt)
	}

	next.Cyclones = current
	if err := r.deps.State.Save(ctx, next.Normalize()); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	r.publish(ctx, logger, report, state.Cyclones, current, now)
	return nil
}

// enrich reverse-geocodes storm centres when a geocoder is configured.
func (r *Relay) enrich(ctx context.Context, logger *slog.Logger, report *domain.RunReport, records []domain.CycloneRecord) []domain.CycloneRecord {
	if r.deps.Geocoder == nil {
		return records
	}
	out := make([]domain.CycloneRecord, len(records))
	for i, rec := range records {
		enriched, err := domain.EnrichWithPlace(ctx, rec, r.deps.Geocoder)
		if err != nil {
			r.recordAction(logger, report, domain.Failed(domain.ActionGeocode, rec.ATCFID, err))
		}
		out[i] = enriched
	}
	return out
}

// readCommands returns the ids the operator asked to track. Failure to read
// the channel only means no new ids this run.
func (r *Relay) readCommands(ctx context.Context, logger *slog.Logger, report *domain.RunReport, channelID string) []string {
	messages, err := r.deps.Messenger.RecentMessages(ctx, channelID, r.opts.CommandHistoryLimit)
	if err != nil {
		r.recordAction(logger, report, domain.Failed(domain.ActionReadCommands, channelID, err))
		return nil
	}
	ids := domain.ParseTrackCommands(messages, r.opts.OperatorID)
	if len(ids) > 0 {
		logger.Debug("track commands read", "ids", ids)
	}
	return ids
}

// publish emits update and dissipation events for every storm in the feed,
// tracked or not.
func (r *Relay) publish(ctx context.Context, logger *slog.Logger, report *domain.RunReport, previous, current []domain.CycloneRecord, now time.Time) {
	if r.deps.Publisher == nil {
		return
	}
	events := CycloneEvents(previous, current, now)
	if len(events) == 0 {
		return
	}
	err := r.deps.Publisher.PublishCycloneEvents(ctx, events)
	r.recordAction(logger, report, domain.Result(domain.ActionPublish, fmt.Sprintf("%d events", len(events)), err))
	if err == nil {
		r.metrics.EventsPublished.Add(float64(len(events)))
	}
}

// CycloneEvents lists an updated event for every new or changed storm in
// current, then a dissipated event for every storm that left the feed.
func CycloneEvents(previous, current []domain.CycloneRecord, now time.Time) []domain.CycloneEvent {
	var events []domain.CycloneEvent
	for _, rec := range domain.Diff(domain.IDs(current), previous, current).Updated {
		events = append(events, domain.CycloneEvent{
			Type:       domain.EventUpdated,
			ATCFID:     rec.ATCFID,
			Cyclone:    &rec,
			ObservedAt: now,
		})
	}
	for _, id := range domain.Dissipated(previous, current) {
		events = append(events, domain.CycloneEvent{
			Type:       domain.EventDissipated,
			ATCFID:     id,
			ObservedAt: now,
		})
	}
	return events
}

func (r *Relay) recordAction(logger *slog.Logger, report *domain.RunReport, a domain.ActionResult) {
	report.Record(a)
	r.metrics.Actions.WithLabelValues(a.Action, string(a.Status)).Inc()
	if a.Status == domain.ActionFailed {
		logger.Warn("best-effort step failed", "action", a.Action, "target", a.Target, "error", a.Reason)
	}
}

func (r *Relay) recordRun(ctx context.Context, logger *slog.Logger, report domain.RunReport) {
	if r.deps.Recorder == nil {
		return
	}
	if err := r.deps.Recorder.RecordRun(ctx, report); err != nil {
		logger.Warn("record run history failed", "error", err)
	}
}

func (r *Relay) observe(report domain.RunReport, err error) {
	r.metrics.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	if err != nil {
		r.metrics.Runs.WithLabelValues("failure").Inc()
		return
	}
	r.metrics.Runs.WithLabelValues("success").Inc()
	r.metrics.LastSuccess.Set(float64(report.FinishedAt.Unix()))
	r.metrics.ActiveCyclones.Set(float64(report.Cyclones))
	r.metrics.TrackedCyclones.Set(float64(len(report.Tracked)))
	r.metrics.UpdatedCyclones.Add(float64(len(report.Updated)))
	r.metrics.BroadcastsPosted.Add(float64(len(report.BroadcastMessageIDs)))
	if report.DigestPosted {
		r.metrics.DigestsPosted.Inc()
	}
}
