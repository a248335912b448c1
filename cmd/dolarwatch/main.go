// cmd/dolarwatch: long-running dollar quote monitor.
//
// Ticks every MONITOR_INTERVAL_MINUTES inside the market window, records
// significant changes to every configured sink, notifies Telegram/webhook,
// and serves /metrics, /healthz and the /ws live feed on METRICS_ADDR.
//
// Config: optional YAML file (-config or DOLARWATCH_CONFIG) plus env vars,
// see config.Load.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"dolarwatch/config"
	"dolarwatch/internal/breaker"
	"dolarwatch/internal/change"
	"dolarwatch/internal/feed"
	"dolarwatch/internal/history"
	"dolarwatch/internal/logger"
	"dolarwatch/internal/markethours"
	"dolarwatch/internal/metrics"
	"dolarwatch/internal/model"
	"dolarwatch/internal/monitor"
	"dolarwatch/internal/notification"
	"dolarwatch/internal/quotesource"
	"dolarwatch/internal/store/jsonfile"
	pgstore "dolarwatch/internal/store/postgres"
	redisstore "dolarwatch/internal/store/redis"
	sqlitestore "dolarwatch/internal/store/sqlite"
	"dolarwatch/internal/store/supabase"
)

func main() {
	configPath := flag.String("config", os.Getenv("DOLARWATCH_CONFIG"), "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dolarwatch: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init("dolarwatch", logger.Options{
		Level:        logger.ParseLevel(cfg.Log.Level),
		ErrorLogPath: cfg.Log.ErrorFile,
	})
	log.Info("starting",
		"interval", cfg.Monitor.Interval(),
		"threshold", cfg.Monitor.Threshold.String(),
		"timezone", cfg.Market.Timezone)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- Metrics & health ----
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()

	// ---- Market window ----
	window, err := markethours.NewWindow(cfg.Market.OpenHour, cfg.Market.CloseHour, cfg.Market.Location)
	if err != nil {
		fatal(log, "market window", err)
	}
	window.WeekdaysOnly = cfg.Market.WeekdaysOnly
	if window.Holidays, err = markethours.ParseHolidays(cfg.Market.Holidays); err != nil {
		fatal(log, "market holidays", err)
	}
	log.Info("market status", "status", window.StatusString(time.Now()))

	// ---- Local stores ----
	for _, p := range []string{cfg.Storage.SnapshotFile, cfg.Storage.DailyOpenFile, cfg.Storage.HistoryJSONFile, cfg.Storage.HistoryCSVFile} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			fatal(log, "create data dir", err)
		}
	}
	snapshots := jsonfile.NewSnapshotStore(cfg.Storage.SnapshotFile, log)
	opens := jsonfile.NewDailyOpenStore(cfg.Storage.DailyOpenFile, window.Location, log)

	// ---- History sinks ----
	sinks := []model.HistorySink{
		history.NewJSONLogSink(cfg.Storage.HistoryJSONFile, log),
		history.NewCSVLogSink(cfg.Storage.HistoryCSVFile),
	}
	probes := metrics.Probes{Others: map[string]metrics.Pinger{}}

	if cfg.Supabase.Enabled() {
		sb, err := supabase.New(supabase.Config{
			URL:     cfg.Supabase.URL,
			APIKey:  cfg.Supabase.APIKey,
			Table:   cfg.Supabase.Table,
			Timeout: cfg.Monitor.SinkTimeout(),
		})
		if err != nil {
			fatal(log, "supabase sink", err)
		}
		sinks = append(sinks, guarded(sb, cfg.Monitor.BufferSize, prom, health, log))
	}

	if cfg.Database.URL != "" {
		pg, err := pgstore.Connect(ctx, cfg.Database.URL)
		if err != nil {
			log.Warn("postgres sink disabled", "error", err)
		} else {
			defer pg.Close()
			sinks = append(sinks, guarded(pg, cfg.Monitor.BufferSize, prom, health, log))
			probes.Others["postgres"] = pg
		}
	}

	if cfg.SQLite.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
			fatal(log, "create sqlite dir", err)
		}
		sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLite.Path}, log)
		if err != nil {
			log.Warn("sqlite ledger disabled", "error", err)
		} else {
			defer sqlWriter.Close()
			sinks = append(sinks, sqlWriter)
			probes.SQLite = sqlWriter.DB()
		}
	}

	if cfg.Redis.Addr != "" {
		rw, err := redisstore.New(redisstore.WriterConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, log)
		if err != nil {
			log.Warn("redis mirror disabled", "error", err)
		} else {
			defer rw.Close()
			sinks = append(sinks, guarded(rw, cfg.Monitor.BufferSize, prom, health, log))
			probes.Redis = rw.Client()
		}
	}

	recorder := history.NewRecorder(log, cfg.Monitor.SinkTimeout(), sinks...)
	recorder.OnResult = func(sink string, err error, elapsed time.Duration) {
		prom.SinkWritesTotal.WithLabelValues(sink, metrics.Result(err)).Inc()
		prom.SinkWriteDuration.WithLabelValues(sink).Observe(elapsed.Seconds())
	}
	log.Info("history sinks ready", "sinks", recorder.Sinks())

	health.StartLivenessChecker(ctx, probes, 30*time.Second)

	// ---- Notifiers ----
	var notifiers notification.Multi
	if cfg.Telegram.Enabled() {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID, log))
	}
	if cfg.Webhook.URL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.Webhook.URL, log))
	}
	if len(notifiers) == 0 {
		notifiers = append(notifiers, notification.NewLogNotifier(log))
	}

	// ---- Live feed ----
	hub := feed.NewHub(log)
	hub.OnClients = func(n int) {
		prom.FeedClients.Set(float64(n))
		health.SetFeedClients(n)
	}

	metricsSrv := metrics.NewServer(cfg.Metrics.Addr, health, reg, metrics.Route{Pattern: "/ws", Handler: hub})
	metricsSrv.Start()

	// ---- Monitor ----
	opts := monitor.DefaultOptions()
	opts.Interval = cfg.Monitor.Interval()
	opts.ChatID = cfg.Telegram.ChatID

	mon, err := monitor.New(monitor.Deps{
		Source:    quotesource.New(cfg.Source.URL, cfg.Source.Timeout(), log),
		Snapshots: snapshots,
		Opens:     opens,
		Detector:  change.New(cfg.Monitor.Threshold),
		Recorder:  recorder,
		Notifier:  notifiers,
		Gate:      markethours.NewGate(window),
		Metrics:   prom,
		Health:    health,
		Logger:    log,
		OnChange:  hub.Publish,
		OnSession: func(ev markethours.Event, at time.Time) { hub.PublishSession(ev.String(), at) },
	}, opts)
	if err != nil {
		fatal(log, "monitor", err)
	}

	done := make(chan struct{})
	go func() {
		mon.Run(ctx)
		close(done)
	}()

	// ---- Wait for shutdown signal ----
	sig := <-sigCh
	log.Info("shutdown signal received, cleaning up", "signal", sig.String())
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Stop(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown", "error", err)
	}
	log.Info("stopped")
}

// guarded wraps a remote sink with a circuit breaker and a bounded replay
// queue, and reports both to metrics.
func guarded(sink model.HistorySink, bufferSize int, prom *metrics.Metrics, health *metrics.HealthStatus, log *slog.Logger) *history.BufferedSink {
	name := sink.Name()
	cb := breaker.NewCircuitBreaker(3, time.Minute)
	cb.OnStateChange = func(from, to breaker.State) {
		prom.BreakerState.WithLabelValues(name).Set(float64(to))
		log.Warn("circuit breaker transition", "sink", name, "from", from.String(), "to", to.String())
	}

	bs := history.NewBufferedSink(sink, cb, bufferSize, log)
	pending := func(n int) {
		prom.BufferedRecords.WithLabelValues(name).Set(float64(n))
		health.SetPendingWrites(name, n)
	}
	bs.OnBuffer = pending
	bs.OnDrop = func(n int) {
		prom.DroppedRecords.WithLabelValues(name).Inc()
		pending(n)
	}
	bs.OnFlush = func(_, n int) { pending(n) }
	return bs
}

func fatal(log *slog.Logger, what string, err error) {
	log.Error("startup failed", "step", what, "error", err)
	os.Exit(1)
}
