// Package app wires the store, cache, geofence monitor, notification
// scheduler and bridge into one explicitly constructed unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jonboulle/clockwork"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rcliao/daypulse/internal/bridge"
	"github.com/rcliao/daypulse/internal/clock"
	"github.com/rcliao/daypulse/internal/config"
	"github.com/rcliao/daypulse/internal/daycache"
	"github.com/rcliao/daypulse/internal/geo"
	"github.com/rcliao/daypulse/internal/metrics"
	"github.com/rcliao/daypulse/internal/notify"
	"github.com/rcliao/daypulse/internal/present"
	"github.com/rcliao/daypulse/internal/store"
)

// Options override collaborators that default from Config.
type Options struct {
	Clock     clockwork.Clock
	Store     store.Store
	Source    geo.Source
	Presenter notify.Presenter
}

type App struct {
	cfg config.Config
	log *zap.Logger

	Calendar  *clock.Calendar
	Store     store.Store
	NS        *store.Namespace
	Cache     *daycache.Manager
	Monitor   *geo.Monitor
	Scheduler *notify.Scheduler
	Bridge    *bridge.Bridge
	Registry  *prom.Registry
	Presenter notify.Presenter

	degraded bool
	telegram *tgbotapi.BotAPI
	closers  []io.Closer
}

// New builds the application and rehydrates persisted notification state.
// A store that fails its startup probe is replaced by store.Unavailable and
// the app keeps running with every read empty.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	loc, err := clock.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	a := &App{cfg: cfg, log: log}
	a.Calendar = clock.New(opts.Clock, loc)
	a.Store = a.openStore(ctx, opts.Store)
	a.NS = store.NewNamespace(a.Store, cfg.Namespace, log)

	a.Registry = prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(a.Registry)

	a.Presenter = opts.Presenter
	if a.Presenter == nil {
		if a.Presenter, err = a.buildPresenter(); err != nil {
			a.Close()
			return nil, err
		}
	}

	src := opts.Source
	if src == nil {
		// No platform position provider: one-shot reads report unavailable
		// until a track is replayed.
		src = geo.NewReplaySource(a.Calendar.Clock(), nil, 0)
	}

	a.Cache = daycache.New(a.NS, a.Calendar, log, rec)
	a.Monitor = geo.NewMonitor(src, a.Calendar, log, rec, geo.Options{
		HighAccuracy: cfg.HighAccuracy,
		Timeout:      cfg.LocationTimeout,
		MaximumAge:   cfg.LocationMaxAge,
	})
	a.Scheduler = notify.New(a.NS, a.Calendar, a.Presenter, log, rec)
	a.Bridge = bridge.New(a.Scheduler, log)
	a.Bridge.Attach(a.Monitor)

	a.Scheduler.Rehydrate(ctx)
	return a, nil
}

func (a *App) openStore(ctx context.Context, s store.Store) store.Store {
	if s == nil {
		sq, err := store.NewSQLiteStore(a.cfg.DBPath)
		if err != nil {
			a.log.Warn("storage unavailable, running without persistence", zap.Error(err))
			a.degraded = true
			return store.Unavailable{}
		}
		s = sq
	}
	if err := store.Probe(ctx, s); err != nil {
		a.log.Warn("storage probe failed, running without persistence", zap.Error(err))
		_ = s.Close()
		a.degraded = true
		return store.Unavailable{}
	}
	return s
}

func (a *App) buildPresenter() (notify.Presenter, error) {
	switch a.cfg.Presenter {
	case config.PresenterNATS:
		p, err := present.DialNATS(a.cfg.NATSURL, a.cfg.NATSSubject, a.log)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p)
		return p, nil
	case config.PresenterTelegram:
		bot, err := present.NewTelegramBot(a.cfg.TelegramToken)
		if err != nil {
			return nil, fmt.Errorf("telegram login: %w", err)
		}
		a.telegram = bot
		return present.NewTelegramPresenter(bot, a.cfg.TelegramChatID, a.log), nil
	default:
		return present.NewLogPresenter(a.log), nil
	}
}

// Degraded reports whether the store failed its startup probe.
func (a *App) Degraded() bool { return a.degraded }

func (a *App) Logger() *zap.Logger { return a.log }

// AdWatchThreshold is the configured unlock threshold.
func (a *App) AdWatchThreshold() int { return a.cfg.AdWatchThreshold }

// Clear removes every key under the reserved namespace and cancels all
// scheduled notifications. The scheduler is held for the whole operation so
// no partial state is observable.
func (a *App) Clear(ctx context.Context) (int, error) {
	var n int
	err := a.Scheduler.Reset(ctx, func(ctx context.Context) error {
		var err error
		n, err = a.NS.Clear(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("clear: %w", err)
	}
	a.log.Info("app data cleared", zap.Int("keys", n))
	return n, nil
}

// WatchStore merges notification state written by other processes on the
// same database, such as CLI invocations, every SyncInterval until ctx is
// done. The ticker is armed before WatchStore returns.
func (a *App) WatchStore(ctx context.Context) {
	if a.cfg.SyncInterval <= 0 || a.degraded {
		return
	}
	ticker := a.Calendar.Clock().NewTicker(a.cfg.SyncInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				a.Scheduler.Sync(ctx)
			}
		}
	}()
}

// Handler serves /healthz and /metrics. Health reports 503 while storage
// is degraded.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if a.degraded {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("storage unavailable\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", metrics.Handler(a.Registry))
	return mux
}

// Run serves /healthz and /metrics until ctx is done, merging schedules
// written by other processes as it goes. Telegram taps are consumed when
// the telegram presenter is active.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      a.Handler(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	a.log.Info("starting daypulse",
		zap.String("http", a.cfg.HTTPAddr),
		zap.String("presenter", a.cfg.Presenter),
		zap.Bool("degraded", a.degraded))

	a.WatchStore(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if a.telegram != nil {
		if tp, ok := a.Presenter.(*present.TelegramPresenter); ok {
			u := tgbotapi.NewUpdate(0)
			u.Timeout = 30
			go tp.Run(ctx, a.telegram.GetUpdatesChan(u))
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-errCh:
		a.log.Error("http server error", zap.Error(runErr))
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := srv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}
	if a.telegram != nil {
		a.telegram.StopReceivingUpdates()
	}
	return runErr
}

// Close stops timers and the location subscription and releases the store
// and presenter. Persisted schedules survive for the next start.
func (a *App) Close() error {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
