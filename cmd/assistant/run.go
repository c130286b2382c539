package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ryanboscobanze/speech-companion/internal/audio"
	"github.com/ryanboscobanze/speech-companion/internal/config"
	"github.com/ryanboscobanze/speech-companion/internal/convo"
	"github.com/ryanboscobanze/speech-companion/internal/dictionary"
	"github.com/ryanboscobanze/speech-companion/internal/enrich"
	"github.com/ryanboscobanze/speech-companion/internal/level"
	"github.com/ryanboscobanze/speech-companion/internal/llm"
	"github.com/ryanboscobanze/speech-companion/internal/metrics"
	"github.com/ryanboscobanze/speech-companion/internal/sequencer"
	"github.com/ryanboscobanze/speech-companion/internal/server"
	"github.com/ryanboscobanze/speech-companion/internal/session"
	"github.com/ryanboscobanze/speech-companion/internal/store"
	"github.com/ryanboscobanze/speech-companion/internal/transcription"
	"github.com/ryanboscobanze/speech-companion/internal/ui"
)

// voiceThreshold is the meter level treated as speech in the level statistics
const voiceThreshold = 0.02

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the live assistant (default)",
	Args:  cobra.NoArgs,
	RunE:  runAssistant,
}

func runAssistant(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closeLog := initLogger(cfg.Logging)
	defer closeLog()

	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", configPath),
	)

	creds, err := config.LoadCredentials(envFile)
	if err != nil {
		return err
	}
	missing := creds.Missing()
	if len(missing) > 0 {
		logger.Warn("Credentials not set, the affected providers will be skipped",
			slog.String("missing", strings.Join(missing, ",")))
	}

	logger.Info("Configuration loaded",
		slog.String("engine", cfg.Transcription.Engine),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Duration("chunk_duration", cfg.Audio.GetChunkDuration()),
		slog.Int("max_concurrent_chunks", cfg.Transcription.MaxConcurrentChunks),
		slog.Int("llm_providers", len(cfg.LLM.Providers)),
		slog.Bool("storage", cfg.Storage.Enabled),
		slog.Bool("http", cfg.HTTP.Enabled),
	)

	signalCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Chunk workers run on this context; it ends only when the app exits
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.NewMetrics(reg)

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	devices, err := audio.ListDevices()
	if err != nil {
		logger.Warn("Failed to list input devices", slog.String("error", err.Error()))
	}

	// Transcription backends
	assembly, err := transcription.NewAssemblyAI(transcription.AssemblyAIConfig{
		BaseURL:        cfg.Transcription.AssemblyAI.BaseURL,
		APIKey:         creds.AssemblyAIKey,
		LanguageCode:   cfg.Transcription.AssemblyAI.LanguageCode,
		RequestTimeout: cfg.Transcription.AssemblyAI.GetRequestTimeout(),
		PollInterval:   cfg.Transcription.AssemblyAI.GetPollInterval(),
		PollTimeout:    cfg.Transcription.AssemblyAI.GetPollTimeout(),
		MaxRetries:     cfg.Transcription.AssemblyAI.MaxRetries,
	}, appMetrics, logger)
	if err != nil {
		return err
	}

	whisper := transcription.NewWhisper(transcription.WhisperConfig{
		ModelPath: cfg.Transcription.Whisper.ModelPath,
		Language:  cfg.Transcription.Whisper.Language,
		Threads:   cfg.Transcription.Whisper.Threads,
	}, logger)
	defer whisper.Close()

	engines := map[string]transcription.Transcriber{
		transcription.EngineAssemblyAI: assembly,
		transcription.EngineWhisper:    whisper,
	}

	// Enrichment
	chain := llm.NewChain(buildProviders(ctx, cfg.LLM, creds), cfg.LLM.GetTimeoutDuration(), appMetrics, logger)

	dict, err := dictionary.NewClient(dictionary.Config{
		BaseURL:   cfg.Dictionary.BaseURL,
		Timeout:   cfg.Dictionary.GetTimeoutDuration(),
		CacheSize: int64(cfg.Dictionary.CacheSize),
		CacheTTL:  cfg.Dictionary.GetCacheTTL(),
	}, appMetrics, logger)
	if err != nil {
		return err
	}
	defer dict.Close()

	table := enrich.DefaultFrequencyTable()
	if path := cfg.Enrichment.FrequencyListPath; path != "" {
		if table, err = enrich.LoadFrequencyTable(path); err != nil {
			return err
		}
	}

	window, err := convo.NewWindow(cfg.Context.InitialCapacity, cfg.Context.MaxCapacity)
	if err != nil {
		return err
	}

	pipeline := enrich.NewPipeline(enrich.PipelineConfig{RarityThreshold: cfg.Enrichment.RarityThreshold},
		enrich.NewProseAnalyzer(cfg.Enrichment.ConceptSimilarity), window, chain, dict, table, appMetrics, logger)

	// Results
	var history *store.Store
	var persister sequencer.Persister
	if cfg.Storage.Enabled {
		if history, err = store.Open(cfg.Storage.Path); err != nil {
			return err
		}
		defer history.Close()
		persister = history
	}

	surface := ui.NewSurface()
	seq := sequencer.New(surface, persister, logger)

	dispatcher := transcription.NewDispatcher(transcription.DispatcherConfig{
		MaxConcurrent: cfg.Transcription.MaxConcurrentChunks,
		TempDir:       cfg.Transcription.TempDir,
	}, engines, func(workerCtx context.Context, u transcription.Utterance) {
		seq.Submit(pipeline.Process(workerCtx, u))
	}, appMetrics, logger)

	// Recording
	meter, err := level.NewMeter(voiceThreshold)
	if err != nil {
		return err
	}

	capture := audio.NewCapture(audio.CaptureConfig{
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
	}, logger)

	controller := session.NewController(ctx, session.Config{
		SampleRate:   cfg.Audio.SampleRate,
		ChunkSamples: cfg.Audio.ChunkSamples,
		PollInterval: cfg.Audio.GetPollInterval(),
	}, capture, dispatcher, surface, meter, appMetrics, logger)

	engine, ok := transcription.CanonicalEngine(cfg.Transcription.Engine)
	if !ok {
		engine = transcription.EngineAssemblyAI
	}

	model := ui.New(ui.Options{
		Recorder: controller,
		Level:    meter,
		Engines:  transcription.Engines,
		Engine:   engine,
		Devices:  devices,
		DeviceID: cfg.Audio.DeviceID,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	surface.Attach(program)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return seq.Run(gctx)
	})

	if cfg.HTTP.Enabled {
		httpServer := server.NewHTTPServer(cfg.HTTP, logger, cfg, missing, server.Sources{
			Session: controller,
			Rows:    seq,
			History: historySource(history),
			Stats: map[string]func() any{
				"controller":  func() any { return controller.GetStats() },
				"dispatcher":  func() any { return dispatcher.GetStats() },
				"assemblyai":  func() any { return assembly.GetStats() },
				"pipeline":    func() any { return pipeline.GetStats() },
				"llm":         func() any { return chain.GetStats() },
				"dictionary":  func() any { return dict.GetStats() },
				"context":     func() any { return window.GetStats() },
				"sequencer":   func() any { return seq.GetStats() },
				"input_level": func() any { return meter.GetStats() },
			},
		}, reg, appMetrics)

		g.Go(func() error {
			return httpServer.Run(gctx)
		})
	}

	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("terminal UI: %w", err)
		}
		return nil
	})

	logger.Info("Service started")

	err = g.Wait()

	if controller.Recording() {
		if stopErr := controller.Stop(); stopErr != nil {
			logger.Warn("Error stopping recording", slog.String("error", stopErr.Error()))
		}
	}
	dispatcher.Wait()

	stats := dispatcher.GetStats()
	logger.Info("Service stopped",
		slog.Uint64("chunks_dispatched", stats.Dispatched),
		slog.Uint64("utterances_delivered", stats.Delivered),
		slog.Int("rows", len(seq.Rows())),
	)

	return err
}

// buildProviders creates the fallback chain in configured order. Providers
// without a key are still added; they fail fast with ErrMissingCredential.
func buildProviders(ctx context.Context, cfg config.LLMConfig, creds *config.Credentials) []llm.Provider {
	base := llm.Options{
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.GetTimeoutDuration(),
	}

	providers := make([]llm.Provider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		opts := base
		opts.Model = p.Model
		key := creds.ForProvider(p.Name)

		switch p.Kind {
		case "gemini":
			providers = append(providers, llm.NewGemini(ctx, p.Name, p.BaseURL, key, opts))
		default:
			providers = append(providers, llm.NewOpenAICompatible(p.Name, p.BaseURL, key, opts))
		}
	}
	return providers
}

// historySource avoids handing the server a typed nil when storage is off
func historySource(st *store.Store) server.HistorySource {
	if st == nil {
		return nil
	}
	return st
}
