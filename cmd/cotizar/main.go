// cmd/cotizar: one-shot quote lookup.
//
// Fetches the provider once and prints every instrument (or only -tipo)
// compared against today's opening snapshot.
//
//	-recientes N  last N recorded changes (SQLite, Redis or Postgres)
//	-hoy          today's changes from the SQLite ledger
//	-seguir       stream live changes from the Redis mirror until interrupted
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"dolarwatch/config"
	"dolarwatch/internal/change"
	"dolarwatch/internal/logger"
	"dolarwatch/internal/markethours"
	"dolarwatch/internal/model"
	"dolarwatch/internal/notification"
	"dolarwatch/internal/quotesource"
	"dolarwatch/internal/store/jsonfile"
	pgstore "dolarwatch/internal/store/postgres"
	redisstore "dolarwatch/internal/store/redis"
	sqlitestore "dolarwatch/internal/store/sqlite"
)

func main() {
	var (
		configPath string
		tipo       string
		recent     int
		today      bool
		follow     bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("DOLARWATCH_CONFIG"), "path to YAML config (optional)")
	flag.StringVar(&tipo, "tipo", "", "single instrument, e.g. blue, oficial, ccl")
	flag.IntVar(&recent, "recientes", 0, "also list the last N recorded changes")
	flag.BoolVar(&today, "hoy", false, "also list today's changes from the SQLite ledger")
	flag.BoolVar(&follow, "seguir", false, "stream live changes from the Redis mirror")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Init("cotizar", logger.Options{Level: slog.LevelWarn, Stdout: os.Stderr})

	var only model.Instrument
	if tipo != "" {
		i, ok := model.ParseInstrument(tipo)
		if !ok {
			fmt.Fprintf(os.Stderr, "tipo desconocido: %q\n", tipo)
			os.Exit(2)
		}
		only = i
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Source.Timeout()+5*time.Second)
	defer cancel()

	qs, err := quotesource.New(cfg.Source.URL, cfg.Source.Timeout(), log).Fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error obteniendo cotizaciones: %v\n", err)
		os.Exit(1)
	}

	current := qs.Snapshot()
	opens := jsonfile.NewDailyOpenStore(cfg.Storage.DailyOpenFile, cfg.Market.Location, log)
	baseline, _ := opens.Get(time.Now())
	deltas := change.CompareSnapshot(current, baseline)

	if only != "" {
		var found []model.InstrumentDelta
		for _, d := range deltas {
			if d.Instrument == only {
				found = append(found, d)
			}
		}
		if len(found) == 0 {
			fmt.Fprintf(os.Stderr, "sin cotización para %s\n", only.DisplayName())
			os.Exit(1)
		}
		deltas = found
	}
	fmt.Println(notification.FormatTable(deltas, qs.UpdatedAt, cfg.Market.Location, notification.FormatPlain))

	if recent > 0 {
		if err := printRecent(ctx, cfg, only, recent); err != nil {
			fmt.Fprintf(os.Stderr, "historial: %v\n", err)
			os.Exit(1)
		}
	}
	if today {
		if err := printToday(ctx, cfg, only); err != nil {
			fmt.Fprintf(os.Stderr, "historial: %v\n", err)
			os.Exit(1)
		}
	}
	if follow {
		if err := followChanges(cfg, only); err != nil {
			fmt.Fprintf(os.Stderr, "seguir: %v\n", err)
			os.Exit(1)
		}
	}
}

func printRecent(ctx context.Context, cfg config.Config, only model.Instrument, n int) error {
	var (
		recs []model.ChangeRecord
		err  error
	)
	switch {
	case cfg.SQLite.Path != "":
		r, rerr := sqlitestore.NewReader(cfg.SQLite.Path)
		if rerr != nil {
			return rerr
		}
		defer r.Close()
		recs, err = r.Recent(ctx, only, n)
	case cfg.Redis.Addr != "":
		r := redisstore.NewReader(redisstore.WriterConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer r.Close()
		recs, err = r.Recent(ctx, int64(n))
	case cfg.Database.URL != "":
		pg, perr := pgstore.Connect(ctx, cfg.Database.URL)
		if perr != nil {
			return perr
		}
		defer pg.Close()
		recs, err = pg.Recent(ctx, n)
	default:
		return fmt.Errorf("no SQLITE_PATH, REDIS_ADDR or DATABASE_URL configured")
	}
	if err != nil {
		return err
	}
	fmt.Println()
	printRecords(recs, only, cfg.Market.Location)
	return nil
}

func printToday(ctx context.Context, cfg config.Config, only model.Instrument) error {
	if cfg.SQLite.Path == "" {
		return fmt.Errorf("no SQLITE_PATH configured")
	}
	r, err := sqlitestore.NewReader(cfg.SQLite.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	now := time.Now().In(cfg.Market.Location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, cfg.Market.Location)
	recs, err := r.Since(ctx, midnight)
	if err != nil {
		return err
	}
	fmt.Println()
	if len(recs) == 0 {
		fmt.Println("sin cambios registrados hoy")
		return nil
	}
	printRecords(recs, only, cfg.Market.Location)
	return nil
}

// followChanges prints the last mirrored change per instrument, then every
// published change until SIGINT/SIGTERM.
func followChanges(cfg config.Config, only model.Instrument) error {
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("no REDIS_ADDR configured")
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := redisstore.NewReader(redisstore.WriterConfig{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer r.Close()

	var latest []model.ChangeRecord
	for _, i := range model.Instruments {
		rec, ok, err := r.Latest(ctx, i)
		if err != nil {
			return err
		}
		if ok {
			latest = append(latest, rec)
		}
	}
	fmt.Println()
	printRecords(latest, only, cfg.Market.Location)

	ps, err := r.Subscribe(ctx)
	if err != nil {
		return err
	}
	defer ps.Close()

	w, _ := markethours.NewWindow(cfg.Market.OpenHour, cfg.Market.CloseHour, cfg.Market.Location)
	fmt.Fprintln(os.Stderr, w.StatusString(time.Now()))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var rec model.ChangeRecord
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				fmt.Fprintf(os.Stderr, "mensaje inválido: %v\n", err)
				continue
			}
			printRecords([]model.ChangeRecord{rec}, only, cfg.Market.Location)
		}
	}
}

func printRecords(recs []model.ChangeRecord, only model.Instrument, loc *time.Location) {
	for _, rec := range recs {
		if only != "" && rec.Instrument != only {
			continue
		}
		fmt.Printf("%s  %-20s compra %s (%s%%)  venta %s (%s%%)\n",
			rec.Timestamp.In(loc).Format("02/01 15:04"),
			rec.Instrument.DisplayName(),
			rec.Buy.StringFixed(2), notification.Signed(rec.PctBuy),
			rec.Sell.StringFixed(2), notification.Signed(rec.PctSell))
	}
}
