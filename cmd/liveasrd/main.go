// Command liveasrd is the main entry point for the live ASR and
// translation broadcasting server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xenolive/liveasr/internal/app"
	"github.com/xenolive/liveasr/internal/config"
	"github.com/xenolive/liveasr/pkg/provider/asr"
	"github.com/xenolive/liveasr/pkg/provider/asr/whispercpp"
	"github.com/xenolive/liveasr/pkg/provider/translate"
	"github.com/xenolive/liveasr/pkg/provider/translate/deepl"
	"github.com/xenolive/liveasr/pkg/provider/translate/google"
	"github.com/xenolive/liveasr/pkg/provider/translate/openai"
	"github.com/xenolive/liveasr/pkg/provider/translate/papago"
	"github.com/xenolive/liveasr/pkg/provider/vad"
	"github.com/xenolive/liveasr/pkg/provider/vad/energy"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "liveasrd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "liveasrd: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("liveasrd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(cfg, providers)

	application, err := app.New(cfg, providers, logger)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// Neither whispercpp model load nor the energy VAD engine need a
	// separate warm-up step, so the app_ready gate opens as soon as wiring
	// finishes, matching original_source/main.py's startup_complete flag.
	application.SetReady(true)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders registers every factory this binary ships with.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterASR("whispercpp", func(e config.ProviderEntry) (asr.Provider, error) {
		return whispercpp.New(e.Model)
	})

	reg.RegisterVAD("energy", func(config.ProviderEntry) (vad.Engine, error) {
		return energy.New(), nil
	})

	reg.RegisterTranslator("deepl", func(e config.ProviderEntry) (translate.Provider, error) {
		return deepl.New(e.APIKey)
	})
	reg.RegisterTranslator("google", func(e config.ProviderEntry) (translate.Provider, error) {
		return google.New(e.APIKey)
	})
	reg.RegisterTranslator("papago", func(e config.ProviderEntry) (translate.Provider, error) {
		return papago.New(e.APIKey, e.APISecret)
	})
	reg.RegisterTranslator("openai", func(e config.ProviderEntry) (translate.Provider, error) {
		return openai.New(e.APIKey, e.Model)
	})
}

// buildProviders instantiates the ASR provider, VAD engine, and every
// translator named in cfg.Translators with a non-empty credential, via the
// registry. A translator entry whose Name is empty (or whose API key is
// empty for providers that require one) is skipped rather than failing
// startup outright: spec.md's translation fanout degrades gracefully when
// an engine is unavailable, and the same tolerance applies to a missing
// credential at startup.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{
		Translators: make(map[string]translate.Provider),
	}

	if cfg.ASR.Name == "" {
		return nil, errors.New("asr.name is required")
	}
	asrProvider, err := reg.CreateASR(cfg.ASR)
	if err != nil {
		return nil, fmt.Errorf("create asr provider %q: %w", cfg.ASR.Name, err)
	}
	ps.ASR = asrProvider

	vadName := cfg.VAD.Name
	if vadName == "" {
		vadName = "energy"
	}
	vadEngine, err := reg.CreateVAD(config.ProviderEntry{Name: vadName, Options: cfg.VAD.Options})
	if err != nil {
		return nil, fmt.Errorf("create vad engine %q: %w", vadName, err)
	}
	ps.VAD = vadEngine

	for name, entry := range cfg.Translators {
		if entry.Name == "" {
			continue
		}
		p, err := reg.CreateTranslator(entry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("translator not registered — skipping", "engine", name, "provider", entry.Name)
			continue
		}
		if err != nil {
			slog.Warn("failed to create translator, skipping", "engine", name, "provider", entry.Name, "error", err)
			continue
		}
		ps.Translators[name] = p
		slog.Info("translator configured", "engine", name, "provider", entry.Name)
	}

	return ps, nil
}

// printStartupSummary prints an ASCII box summarising the resolved wiring.
func printStartupSummary(cfg *config.Config, providers *app.Providers) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       liveasrd — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("ASR", cfg.ASR.Name)
	printField("VAD", orDefault(cfg.VAD.Name, "energy"))
	printField("Decoder", orDefault(cfg.Decoder.Mode, "subprocess"))
	fmt.Printf("║  Translators     : %-19d ║\n", len(providers.Translators))
	fmt.Printf("║  Max concurrent  : %-19d ║\n", cfg.Transcribe.MaxConcurrent)
	if cfg.Server.ListenAddr != "" {
		printField("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printField(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// newLogger builds a slog.Logger at the configured verbosity.
func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
