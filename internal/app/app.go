// Package app wires all liveasr subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems (provider registry, session registry, transport handler,
// health checks, metrics), Run starts the HTTP server and blocks until the
// context is cancelled, and Shutdown tears everything down in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/xenolive/liveasr/internal/config"
	"github.com/xenolive/liveasr/internal/decode"
	"github.com/xenolive/liveasr/internal/fanout"
	"github.com/xenolive/liveasr/internal/health"
	"github.com/xenolive/liveasr/internal/observe"
	"github.com/xenolive/liveasr/internal/session"
	"github.com/xenolive/liveasr/internal/transcribe"
	"github.com/xenolive/liveasr/internal/transport"
	"github.com/xenolive/liveasr/internal/workerpool"
	"github.com/xenolive/liveasr/pkg/provider/asr"
	"github.com/xenolive/liveasr/pkg/provider/translate"
	"github.com/xenolive/liveasr/pkg/provider/vad"
)

// shutdownCloseTimeout bounds how long a single HTTP server Shutdown call is
// given before App gives up waiting for it.
const shutdownCloseTimeout = 10 * time.Second

// Providers holds the concrete provider values selected via the config
// registry. VAD and ASR are required; Translators may be empty if no
// translation engine has usable credentials, in which case the service
// still transcribes but produces no translation_result messages.
type Providers struct {
	ASR         asr.Provider
	VAD         vad.Engine
	Translators map[string]translate.Provider
}

// App owns all subsystem lifetimes for one running liveasr service instance.
type App struct {
	cfg *config.Config

	registry *session.Registry
	handler  *transport.Handler
	health   *health.Handler
	metrics  *observe.Metrics
	server   *http.Server

	closers []func() error

	stopOnce sync.Once
}

// New wires together the provider registry results, the session registry,
// the HTTP transport handler, and health/metrics endpoints into a runnable
// App. It does not start listening; call Run for that.
func New(cfg *config.Config, providers *Providers, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if providers.ASR == nil {
		return nil, errors.New("app: an ASR provider is required")
	}
	if providers.VAD == nil {
		return nil, errors.New("app: a VAD engine is required")
	}

	metrics := observe.DefaultMetrics()

	transcriber := transcribe.New(providers.ASR, transcribe.WithBandPassFilter(cfg.Transcribe.BandPassFilter))
	pool := workerpool.New(cfg.Transcribe.MaxConcurrent)

	dispatchers := make(map[string]*fanout.Dispatcher, len(providers.Translators))
	for name, p := range providers.Translators {
		dispatchers[name] = fanout.New(p)
	}
	defaultEngine := ""
	for name := range dispatchers {
		defaultEngine = name
		break
	}

	decoderFactory, err := buildDecoderFactory(cfg.Decoder, logger)
	if err != nil {
		return nil, fmt.Errorf("app: build decoder factory: %w", err)
	}

	registry := session.NewRegistry(session.Deps{
		ASRTranscriber:    transcriber,
		TranscribePool:    pool,
		VADEngine:         providers.VAD,
		DecoderFactory:    decoderFactory,
		Translators:       dispatchers,
		DefaultEngine:     defaultEngine,
		BroadcastCapacity: cfg.Broadcast.CacheCapacity,
		UploadsDir:        cfg.Storage.UploadsDir,
		Aggressiveness:    cfg.Segmenter.Aggressiveness,
		Logger:            logger,
	})

	handler := transport.New(registry, transport.StaticPages{}, logger)

	healthHandler := health.New(health.Checker{
		Name: "app_ready",
		Check: func(context.Context) error {
			if !handler.Ready() {
				return errors.New("startup not complete")
			}
			return nil
		},
	})

	mux := http.NewServeMux()
	handler.Register(mux)
	healthHandler.Register(mux)

	a := &App{
		cfg:      cfg,
		registry: registry,
		handler:  handler,
		health:   healthHandler,
		metrics:  metrics,
		server: &http.Server{
			Addr:    cfg.Server.ListenAddr,
			Handler: observe.Middleware(metrics)(mux),
		},
	}
	return a, nil
}

// buildDecoderFactory returns a decode.Factory matching cfg.Mode, defaulting
// to the subprocess ffmpeg decoder when Mode is empty.
func buildDecoderFactory(cfg config.DecoderConfig, logger *slog.Logger) (decode.Factory, error) {
	switch cfg.Mode {
	case "", "subprocess":
		command := cfg.Command
		return func(ctx context.Context, streamID string) (decode.Decoder, error) {
			return decode.NewSubprocess(ctx, streamID, command, logger)
		}, nil
	case "opus":
		return func(_ context.Context, streamID string) (decode.Decoder, error) {
			return decode.NewOpus(streamID, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unknown decoder.mode %q", cfg.Mode)
	}
}

// Ready reports whether the app_ready gate is open, i.e. whether the
// service is currently accepting controller/viewer connections.
func (a *App) Ready() bool {
	return a.handler.Ready()
}

// SetReady opens or closes the app_ready gate. main.go calls SetReady(true)
// once the configured ASR provider's warm-up (if any) has completed.
func (a *App) SetReady(ready bool) {
	a.handler.SetReady(ready)
}

// Registry exposes the session registry, mostly useful for tests.
func (a *App) Registry() *session.Registry {
	return a.registry
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails to serve.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", a.cfg.Server.ListenAddr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Shutdown stops accepting new connections and waits up to
// shutdownCloseTimeout for in-flight requests to finish, then runs every
// registered closer in order.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		closeCtx, cancel := context.WithTimeout(ctx, shutdownCloseTimeout)
		defer cancel()
		if err := a.server.Shutdown(closeCtx); err != nil {
			slog.Warn("http server shutdown error", "error", err)
			shutdownErr = err
		}

		for i, closer := range a.closers {
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "error", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
