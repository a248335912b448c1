package monitor

import (
	"context"
	"time"
)

// Run ticks immediately, then every Interval, and fires the daily summary
// and flag reset at their market-time triggers. It blocks until ctx is
// cancelled. Ticks never overlap.
func (m *Monitor) Run(ctx context.Context) {
	window := m.d.Gate.Window()
	m.log.Info("scheduler started",
		"interval", m.opts.Interval,
		"window_open", window.OpenHour,
		"window_close", window.CloseHour,
		"timezone", window.Location.String())

	m.Tick(ctx)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	summary := time.NewTimer(m.untilNext(m.opts.SummaryHour, m.opts.SummaryMinute))
	defer summary.Stop()
	reset := time.NewTimer(m.untilNext(m.opts.ResetHour, m.opts.ResetMinute))
	defer reset.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("scheduler stopped")
			return

		case <-ticker.C:
			m.Tick(ctx)

		case <-summary.C:
			if window.IsTradingDay(m.now()) {
				if err := m.DailySummary(ctx); err != nil {
					m.log.Warn("daily summary failed", "error", err)
				}
			}
			summary.Reset(m.untilNext(m.opts.SummaryHour, m.opts.SummaryMinute))

		case <-reset.C:
			m.ResetDay()
			reset.Reset(m.untilNext(m.opts.ResetHour, m.opts.ResetMinute))
		}
	}
}

func (m *Monitor) untilNext(hour, minute int) time.Duration {
	now := m.now()
	d := m.d.Gate.Window().NextDaily(now, hour, minute).Sub(now)
	if d <= 0 {
		d = time.Minute
	}
	return d
}
