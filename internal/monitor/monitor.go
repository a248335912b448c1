// Package monitor runs the quote pipeline: fetch, compare against the last
// snapshot, record significant changes, persist, notify. It also drives the
// market session messages and the daily summary.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dolarwatch/internal/change"
	"dolarwatch/internal/history"
	"dolarwatch/internal/logger"
	"dolarwatch/internal/markethours"
	"dolarwatch/internal/metrics"
	"dolarwatch/internal/model"
	"dolarwatch/internal/notification"
)

// Deps are the collaborators of a Monitor. Metrics, Health, the hooks and
// Now are optional.
type Deps struct {
	Source    model.QuoteSource
	Snapshots model.SnapshotStore
	Opens     model.DailyOpenStore
	Detector  *change.Detector
	Recorder  *history.Recorder
	Notifier  notification.Notifier
	Gate      *markethours.Gate

	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus
	Logger  *slog.Logger
	Now     func() time.Time

	// OnChange is called for every recorded change, after the sinks.
	OnChange func(rec model.ChangeRecord)
	// OnSession is called for every open/close event.
	OnSession func(ev markethours.Event, at time.Time)
}

// Options tune scheduling and message delivery.
type Options struct {
	Interval time.Duration // tick period, default 5m

	ChatID string
	Format notification.Format

	// Daily triggers in market time. SummaryHour < 0 means close hour,
	// minute 1. Reset defaults to 00:01.
	SummaryHour   int
	SummaryMinute int
	ResetHour     int
	ResetMinute   int
}

// DefaultOptions returns a 5 minute interval, HTML messages, the summary
// one minute after close and the reset at 00:01.
func DefaultOptions() Options {
	return Options{
		Interval:      5 * time.Minute,
		Format:        notification.FormatHTML,
		SummaryHour:   -1,
		SummaryMinute: 1,
		ResetHour:     0,
		ResetMinute:   1,
	}
}

// State is owned by the monitor and only touched under its lock.
type State struct {
	Last          model.Snapshot // detection baseline
	LastTickAt    time.Time
	LastFetchAt   time.Time
	LastUpdatedAt time.Time // provider timestamp of the last fetch
}

// TickReport describes what one tick did.
type TickReport struct {
	TickID   string
	At       time.Time
	Events   []markethours.Event
	InWindow bool
	Fetched  bool
	FetchErr error
	Changes  []model.ChangeRecord
	Deltas   []model.InstrumentDelta
	SaveErr  error
	Notified bool
}

// Outcome is the metrics label of the tick.
func (r TickReport) Outcome() string {
	switch {
	case !r.InWindow:
		return metrics.OutcomeOutsideWindow
	case r.FetchErr != nil:
		return metrics.OutcomeFetchError
	case len(r.Changes) > 0:
		return metrics.OutcomeChanged
	default:
		return metrics.OutcomeNoChange
	}
}

// Monitor runs ticks one at a time.
type Monitor struct {
	d    Deps
	opts Options
	log  *slog.Logger
	now  func() time.Time

	mu    sync.Mutex // serializes Tick, DailySummary and ResetDay
	state State
}

// New validates deps and loads the baseline from the snapshot store once.
func New(d Deps, opts Options) (*Monitor, error) {
	switch {
	case d.Source == nil:
		return nil, errors.New("monitor: quote source is required")
	case d.Snapshots == nil:
		return nil, errors.New("monitor: snapshot store is required")
	case d.Opens == nil:
		return nil, errors.New("monitor: daily open store is required")
	case d.Detector == nil:
		return nil, errors.New("monitor: detector is required")
	case d.Recorder == nil:
		return nil, errors.New("monitor: history recorder is required")
	case d.Gate == nil:
		return nil, errors.New("monitor: market gate is required")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = notification.NewLogNotifier(d.Logger)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.SummaryHour < 0 {
		opts.SummaryHour = d.Gate.Window().CloseHour
	}

	m := &Monitor{
		d:    d,
		opts: opts,
		log:  d.Logger.With(slog.String("component", "monitor")),
		now:  d.Now,
	}
	m.state.Last = d.Snapshots.Load()
	m.log.Info("baseline loaded", "instruments", len(m.state.Last))
	return m, nil
}

// State returns a copy of the owned state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.Last = s.Last.Clone()
	return s
}

// Tick runs one pass of the pipeline. It never fails: every error is
// logged and reported, and the next tick starts from whatever state was
// reached.
func (m *Monitor) Tick(ctx context.Context) TickReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	window := m.d.Gate.Window()
	rep := TickReport{TickID: logger.GenerateTickID("tick", now), At: window.Local(now)}
	ctx = logger.WithTickID(ctx, rep.TickID)
	log := m.log.With(logger.LogWithTick(ctx)...)

	defer func() {
		m.state.LastTickAt = now
		if m.d.Metrics != nil {
			m.d.Metrics.TicksTotal.WithLabelValues(rep.Outcome()).Inc()
		}
		if m.d.Health != nil {
			m.d.Health.SetLastTick(now, rep.Fetched || rep.FetchErr != nil, rep.FetchErr)
		}
	}()

	rep.Events = m.d.Gate.Observe(now)
	for _, ev := range rep.Events {
		m.announce(ctx, log, ev, rep.At)
	}
	m.observePhase(now)

	rep.InWindow = window.InWindow(now)
	if !rep.InWindow {
		log.Debug("outside market window, skipping fetch", "status", window.StatusString(now))
		return rep
	}

	qs, err := m.fetch(ctx)
	if err != nil {
		rep.FetchErr = err
		log.Warn("fetch failed, skipping tick", "error", err)
		return rep
	}
	rep.Fetched = true
	m.state.LastFetchAt = now
	m.state.LastUpdatedAt = qs.UpdatedAt
	current := qs.Snapshot()

	if _, err := m.d.Opens.GetOrInitToday(now, current); err != nil {
		m.storeError("daily_open", err)
		log.Error("daily open not persisted", "error", err)
	}

	changes, deltas := m.d.Detector.Detect(qs, m.state.Last, rep.At)
	rep.Changes, rep.Deltas = changes, deltas

	for _, rec := range changes {
		m.d.Recorder.Record(ctx, rec)
		if m.d.Metrics != nil {
			m.d.Metrics.ChangesTotal.WithLabelValues(string(rec.Instrument)).Inc()
		}
		if m.d.OnChange != nil {
			m.d.OnChange(rec)
		}
	}

	m.state.Last = m.state.Last.Merge(current)
	if err := m.d.Snapshots.Save(m.state.Last); err != nil {
		rep.SaveErr = err
		m.storeError("snapshot", err)
		log.Error("snapshot not persisted, keeping in-memory baseline", "error", err)
	}
	m.observeRates(current)

	if len(changes) > 0 {
		significant := make([]model.InstrumentDelta, 0, len(changes))
		for _, d := range deltas {
			if d.Significant {
				significant = append(significant, d)
			}
		}
		rep.Notified = m.send(ctx, log, "changes", notification.FormatChanges(significant, m.opts.Format)) == nil
	}

	log.Info("tick done", "instruments", len(current), "changes", len(changes))
	return rep
}

// DailySummary fetches the current quotes and sends the table against
// today's opening snapshot. It never captures the open itself: on a day
// without one the table is sent flat with NoOpenNote appended.
func (m *Monitor) DailySummary(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	ctx = logger.WithTickID(ctx, logger.GenerateTickID("summary", now))
	log := m.log.With(logger.LogWithTick(ctx)...)

	qs, err := m.fetch(ctx)
	if err != nil {
		log.Warn("summary fetch failed", "error", err)
		return fmt.Errorf("daily summary: %w", err)
	}
	current := qs.Snapshot()
	open, ok := m.d.Opens.Get(now)
	if !ok {
		log.Warn("no daily open recorded, summary sent without comparison")
	}

	deltas := change.CompareSnapshot(current, open)
	text := notification.FormatSummary(deltas, qs.UpdatedAt, m.d.Gate.Window().Location, m.opts.Format)
	if !ok {
		text += "\n\n" + notification.NoOpenNote
	}
	if err := m.send(ctx, log, "summary", text); err != nil {
		return fmt.Errorf("daily summary: %w", err)
	}
	return nil
}

// ResetDay clears the open/close flags for the current market day.
func (m *Monitor) ResetDay() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.d.Gate.Reset(now)
	if m.d.Metrics != nil {
		m.d.Metrics.SessionTransitions.WithLabelValues("reset").Inc()
	}
	m.observePhase(now)
	m.log.Info("session flags reset", "date", m.d.Gate.Window().DateKey(now))
}

func (m *Monitor) fetch(ctx context.Context) (model.QuoteSet, error) {
	start := time.Now()
	qs, err := m.d.Source.Fetch(ctx)
	if m.d.Metrics != nil {
		m.d.Metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	return qs, err
}

func (m *Monitor) announce(ctx context.Context, log *slog.Logger, ev markethours.Event, at time.Time) {
	text := notification.OpenMessage
	if ev == markethours.EventClose {
		text = notification.CloseMessage
	}
	log.Info("market session event", "event", ev.String())
	if m.d.Metrics != nil {
		m.d.Metrics.SessionTransitions.WithLabelValues(ev.String()).Inc()
	}
	if m.d.OnSession != nil {
		m.d.OnSession(ev, at)
	}
	_ = m.send(ctx, log, ev.String(), text)
}

// send delivers text; failures are logged and counted, never retried.
func (m *Monitor) send(ctx context.Context, log *slog.Logger, kind, text string) error {
	err := m.d.Notifier.Send(ctx, notification.Message{
		ChatID: m.opts.ChatID,
		Text:   text,
		Format: m.opts.Format,
	})
	if m.d.Metrics != nil {
		m.d.Metrics.NotificationsTotal.WithLabelValues(kind, metrics.Result(err)).Inc()
	}
	if err != nil {
		log.Error("notification failed", "kind", kind, "error", err)
	}
	return err
}

func (m *Monitor) observePhase(now time.Time) {
	phase := m.d.Gate.Phase(now)
	if m.d.Metrics != nil {
		m.d.Metrics.MarketPhase.Set(float64(phase))
	}
	if m.d.Health != nil {
		m.d.Health.SetMarketPhase(phase.String())
	}
}

func (m *Monitor) observeRates(s model.Snapshot) {
	if m.d.Metrics == nil {
		return
	}
	for i, r := range s {
		m.d.Metrics.LastRate.WithLabelValues(string(i), "compra").Set(r.Buy.InexactFloat64())
		m.d.Metrics.LastRate.WithLabelValues(string(i), "venta").Set(r.Sell.InexactFloat64())
	}
}

func (m *Monitor) storeError(store string, err error) {
	if m.d.Metrics == nil || err == nil {
		return
	}
	m.d.Metrics.StoreErrorsTotal.WithLabelValues(store, "write").Inc()
}
