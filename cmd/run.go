package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tomatoclock/internal/api"
	"tomatoclock/internal/config"
	"tomatoclock/internal/core/model"
	"tomatoclock/internal/core/pomodoro"
	"tomatoclock/internal/events"
	"tomatoclock/internal/host"
	"tomatoclock/internal/platform"
	"tomatoclock/internal/storage"
	"tomatoclock/internal/tracing"
	"tomatoclock/internal/ui/alert"
	"tomatoclock/internal/webcache"
	"tomatoclock/resources"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type runOptions struct {
	headless bool
	httpAddr string
}

func (opts *runOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&opts.headless, "headless", false, "Run without the tray and timer window")
	cmd.Flags().StringVar(&opts.httpAddr, "http", "", "Serve the HTTP API and web client on this address")
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the timer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimer(cmd, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

// services is the running timer backend shared by the desktop and headless modes.
type services struct {
	logger  *slog.Logger
	engine  *pomodoro.Engine
	bus     *events.Bus
	host    *host.Host
	tracer  *tracing.Tracer
	history *storage.HistoryRepository
}

func runTimer(cmd *cobra.Command, opts *runOptions) error {
	env, err := environmentFrom(cmd)
	if err != nil {
		return err
	}
	settings := env.settings
	if opts.httpAddr != "" {
		settings.HTTPAddr = opts.httpAddr
	}
	logger := env.logger

	guard, err := platform.AcquireSingleInstance(config.AppName)
	if err != nil {
		return err
	}
	defer func() {
		_ = guard.Release()
	}()

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	if opts.headless {
		return runHeadless(ctx, env, settings, svc)
	}
	return runDesktop(ctx, env, settings, svc)
}

func newServices(ctx context.Context, settings config.Settings, logger *slog.Logger) (*services, error) {
	tracer, err := tracing.New(ctx, tracing.Config{
		Exporter:     tracing.ExporterType(settings.TracingExporter),
		OTLPEndpoint: settings.TracingEndpoint,
		Version:      version,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	history, err := storage.OpenHistory(ctx, settings.StorageDir)
	if err != nil {
		logger.Warn("history unavailable", "err", err)
		history = nil
	}

	engine := pomodoro.New(settings.Engine, pomodoro.SystemClock{})
	return &services{
		logger:  logger,
		engine:  engine,
		bus:     events.NewBus(),
		tracer:  tracer,
		history: history,
	}, nil
}

// start creates the host with alerter, restores the saved state and launches
// the background workers. The returned wait blocks until they have stopped.
func (svc *services) start(ctx context.Context, env *environment, settings config.Settings, alerter host.Alerter, onPreferences func(applied bool)) (wait func()) {
	opts := host.Options{
		Store: storage.NewRedundant(
			storage.NewYAMLStore(settings.StorageDir),
			storage.NewSessionStore(settings.SessionDir),
		),
		Alerter:      alerter,
		Bus:          svc.bus,
		Tracer:       svc.tracer,
		Logger:       svc.logger,
		PersistEvery: settings.PersistEvery,
	}
	if svc.history != nil {
		opts.History = svc.history
	}
	svc.host = host.New(svc.engine, opts)
	outcome := svc.host.Restore(ctx)
	svc.logger.Info("timer restored", "outcome", outcome, "mode", svc.engine.State().Mode)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = svc.host.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		platform.NewSuspendWatcher(platform.SuspendOptions{
			Logger: svc.logger,
			OnSuspend: func() {
				_ = svc.host.Suspend(ctx)
			},
			OnResume: func(elapsed time.Duration) {
				svc.engine.OnResume(int(elapsed / time.Second))
			},
		}).Run(ctx)
	}()

	if err := env.config.Watch(ctx, svc.logger, func(preferences model.Preferences) {
		applied := svc.host.ApplyPreferences(preferences)
		if onPreferences != nil {
			onPreferences(applied)
		}
	}); err != nil {
		svc.logger.Info("config reload disabled", "err", err)
	}

	if settings.HTTPAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.serveHTTP(ctx, settings); err != nil {
				svc.logger.Error("http server failed", "addr", settings.HTTPAddr, "err", err)
			}
		}()
	}

	return wg.Wait
}

func (svc *services) serveHTTP(ctx context.Context, settings config.Settings) error {
	assets := webcache.New(webcache.NewStorage(), version, resources.WebHandler(), svc.logger)
	if err := assets.Install(ctx); err != nil {
		svc.logger.Warn("web client cache install failed", "err", err)
	}
	assets.Activate()

	var history api.HistoryReader
	if svc.history != nil {
		history = svc.history
	}
	router := api.NewRouter(svc.engine, svc.bus, history, api.Options{
		RateLimit: settings.HTTPRateLimit,
		Assets:    assets,
		Logging:   settings.LogLevel == "debug",
	})

	server := &http.Server{
		Addr:              settings.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	svc.logger.Info("http api listening", "addr", settings.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (svc *services) close() {
	svc.engine.Close()
	svc.bus.Close()
	if svc.history != nil {
		_ = svc.history.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := svc.tracer.Shutdown(shutdownCtx); err != nil {
		svc.logger.Warn("tracer shutdown failed", "err", err)
	}
}

func runHeadless(ctx context.Context, env *environment, settings config.Settings, svc *services) error {
	var alerter host.Alerter
	if settings.Sound {
		alerter = alert.NewSound(alert.NewSpeakerPlayer(), svc.logger)
	}
	wait := svc.start(ctx, env, settings, alerter, nil)
	svc.logger.Info("running headless", "http", settings.HTTPAddr)
	<-ctx.Done()
	wait()
	return nil
}
