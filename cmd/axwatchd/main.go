// Command axwatchd replays captured host traces through the overlay
// visibility coordinator and serves its state over HTTP.
//
// Usage:
//
//	axwatchd -trace session.jsonl                  # replay a trace to stdout
//	axwatchd -trace session.jsonl -speed 10        # replay 10x faster
//	axwatchd -trace session.jsonl -engine http://localhost:8091/analyze
//	axwatchd -trace session.jsonl -status-addr :8080 -journal axwatch.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/axwatch"
	"github.com/hazyhaar/axwatch/dbopen"
	"github.com/hazyhaar/axwatch/engine"
	"github.com/hazyhaar/axwatch/hostio"
	"github.com/hazyhaar/axwatch/internal/replay"
	"github.com/hazyhaar/axwatch/journal"
	"github.com/hazyhaar/axwatch/present"
	"github.com/hazyhaar/axwatch/profile"
)

func main() {
	tracePath := flag.String("trace", "", "path to a captured host trace (JSON lines)")
	configPath := flag.String("config", "", "path to axwatch.yaml")
	profilesPath := flag.String("profiles", "", "path to an app-profiles YAML file")
	profilesDB := flag.String("profiles-db", "", "path to a profiles SQLite database (hot reloaded)")
	journalPath := flag.String("journal", "", "path to the decision journal SQLite database")
	engineURL := flag.String("engine", "", "analysis engine endpoint; empty means no findings")
	statusAddr := flag.String("status-addr", "", "listen address for the status HTTP server")
	bundleID := flag.String("bundle", "com.example.host", "bundle identifier of the replayed host")
	speed := flag.Float64("speed", 1, "replay speed multiplier")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *tracePath == "" {
		fmt.Fprintln(os.Stderr, "usage: axwatchd -trace <file> [-config <file>] [-engine <url>] [-status-addr <addr>]")
		os.Exit(1)
	}

	if err := run(ctx, logger, options{
		trace:      *tracePath,
		config:     *configPath,
		profiles:   *profilesPath,
		profilesDB: *profilesDB,
		journal:    *journalPath,
		engine:     *engineURL,
		statusAddr: *statusAddr,
		bundle:     *bundleID,
		speed:      *speed,
	}); err != nil {
		logger.Error("axwatchd: fatal", "error", err)
		os.Exit(1)
	}
}

type options struct {
	trace      string
	config     string
	profiles   string
	profilesDB string
	journal    string
	engine     string
	statusAddr string
	bundle     string
	speed      float64
}

func run(ctx context.Context, logger *slog.Logger, opts options) error {
	cfg := axwatch.Config{}
	if opts.config != "" {
		loaded, err := axwatch.LoadConfig(opts.config)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	registry, err := buildRegistry(ctx, logger, opts)
	if err != nil {
		return err
	}

	var analyzer hostio.Analyzer
	if opts.engine != "" {
		analyzer = engine.NewRemote(opts.engine, engine.WithLogger(logger))
	} else {
		analyzer = engine.Func(func(context.Context, string) ([]hostio.Finding, error) {
			return nil, nil
		})
	}

	monitorOpts := []axwatch.Option{
		axwatch.WithConfig(cfg),
		axwatch.WithLogger(logger),
	}
	if opts.journal != "" {
		db, err := dbopen.Open(opts.journal, dbopen.WithSchema(journal.Schema), dbopen.WithMkdirAll())
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer db.Close()
		monitorOpts = append(monitorOpts, axwatch.WithJournal(journal.New(db, journal.WithLogger(logger))))
	}

	host := replay.NewHost()
	mon := axwatch.New(host, registry, analyzer, present.NewStdout(os.Stdout), monitorOpts...)

	if opts.statusAddr != "" {
		srv := &http.Server{Addr: opts.statusAddr, Handler: statusRouter(mon, registry)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("axwatchd: status server", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		logger.Info("axwatchd: status server listening", "addr", opts.statusAddr)
	}

	return runTrace(ctx, logger, mon, host, opts)
}

func buildRegistry(ctx context.Context, logger *slog.Logger, opts options) (profile.Registry, error) {
	switch {
	case opts.profilesDB != "":
		db, err := dbopen.Open(opts.profilesDB, dbopen.WithSchema(profile.Schema))
		if err != nil {
			return nil, fmt.Errorf("open profiles db: %w", err)
		}
		store, err := profile.NewStore(ctx, db, profile.StoreOptions{Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		go store.Watch(ctx)
		return store, nil
	case opts.profiles != "":
		reg, err := profile.LoadFile(opts.profiles)
		if err != nil {
			return nil, fmt.Errorf("load profiles: %w", err)
		}
		return reg, nil
	default:
		return profile.NewStaticRegistry(), nil
	}
}

func runTrace(ctx context.Context, logger *slog.Logger, mon *axwatch.Monitor, host *replay.Host, opts options) error {
	f, err := os.Open(opts.trace)
	if err != nil {
		return fmt.Errorf("open trace: %w", err)
	}
	recs, err := replay.Read(f)
	f.Close()
	if err != nil {
		return err
	}
	logger.Info("axwatchd: trace loaded", "records", len(recs), "bundle", opts.bundle)

	if err := mon.StartMonitoring(ctx, axwatch.Target{
		PID:      1,
		BundleID: opts.bundle,
		Element:  host,
	}); err != nil {
		return err
	}
	defer mon.StopMonitoring()

	speed := opts.speed
	if speed <= 0 {
		speed = 1
	}
	start := time.Now()
	for _, rec := range recs {
		at, _ := rec.At()
		due := start.Add(time.Duration(float64(at) / speed))
		if wait := time.Until(due); wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		host.Apply(rec, mon)
	}

	// Let trailing debounces and settle episodes drain before teardown.
	select {
	case <-time.After(time.Duration(float64(2*time.Second) / speed)):
	case <-ctx.Done():
	}
	return nil
}

func statusRouter(mon *axwatch.Monitor, registry profile.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mon.Snapshot())
	})
	r.Get("/profiles/{bundle}", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(registry.Lookup(chi.URLParam(req, "bundle")))
	})
	return r
}
