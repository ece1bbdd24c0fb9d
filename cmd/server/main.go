package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/KyleGal/live-translation-api/internal/align"
	"github.com/KyleGal/live-translation-api/internal/config"
	"github.com/KyleGal/live-translation-api/internal/diarization"
	"github.com/KyleGal/live-translation-api/internal/metrics"
	"github.com/KyleGal/live-translation-api/internal/server"
	"github.com/KyleGal/live-translation-api/internal/session"
	"github.com/KyleGal/live-translation-api/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "live-translation-api"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load environment overrides (HF_TOKEN and friends) if a .env exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Failed to load .env file: %v\n", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.Int("http_port", cfg.HTTP.Port),
		slog.String("bind_address", cfg.HTTP.Address),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("phrase_timeout", cfg.Audio.PhraseTimeout),
		slog.Bool("vad_enabled", cfg.VAD.Enabled),
		slog.Int("vad_aggressiveness", cfg.VAD.Aggressiveness),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.String("diarization_endpoint", cfg.Diarization.Endpoint),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Create transcription client
	transcriptionClient, err := transcription.NewClient(transcription.Config{
		Endpoint:      cfg.Transcription.Endpoint,
		Timeout:       cfg.Transcription.GetTimeoutDuration(),
		MaxRetries:    cfg.Transcription.MaxRetries,
		MaxConcurrent: cfg.Transcription.MaxConcurrent,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create diarization client
	diarizationClient, err := diarization.NewClient(diarization.Config{
		Endpoint: cfg.Diarization.Endpoint,
		Timeout:  cfg.Diarization.GetTimeoutDuration(),
	})
	if err != nil {
		logger.Error("Failed to create diarization client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Create session manager with per-session defaults
	sessionMgr := session.NewManager(logger, session.ManagerConfig{
		Defaults: session.Config{
			Language:             cfg.Transcription.Language,
			SampleRate:           cfg.Audio.SampleRate,
			PhraseTimeout:        cfg.Audio.GetPhraseTimeout(),
			MinDuration:          cfg.Audio.GetMinDuration(),
			LiveUpdateInterval:   cfg.Dispatch.GetLiveUpdateInterval(),
			PollInterval:         cfg.Dispatch.GetPollInterval(),
			QueueSize:            cfg.Dispatch.QueueSize,
			TranscriptionTimeout: cfg.Transcription.GetTimeoutDuration(),
			VADEnabled:           cfg.VAD.Enabled,
			VADAggressiveness:    cfg.VAD.Aggressiveness,
			VADFrameDuration:     cfg.VAD.GetFrameDuration(),
			VADSilenceDuration:   cfg.VAD.GetSilenceDuration(),
		},
		IdleTimeout: cfg.Session.GetIdleTimeout(),
	}, transcriptionClient, appMetrics)
	logger.Info("Session manager initialized",
		slog.Duration("idle_timeout", cfg.Session.GetIdleTimeout()),
		slog.Duration("phrase_timeout", cfg.Audio.GetPhraseTimeout()),
	)

	// Create batch alignment pipeline
	pipeline := align.NewPipeline(transcriptionClient, diarizationClient, appMetrics, logger)

	// Initialize HTTP API server
	httpServer := server.NewHTTPServer(logger, cfg, sessionMgr, pipeline, appMetrics)
	logger.Info("HTTP API server initialized",
		slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	if err := httpServer.Start(); err != nil {
		logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...",
		slog.String("http_address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
	)

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
	}

	// Stop session manager (flush sessions and stop background routines)
	sessionMgr.Stop()

	// Close transcription client
	if err := transcriptionClient.Close(); err != nil {
		logger.Warn("Error closing transcription client", slog.String("error", err.Error()))
	}

	// Get final statistics
	transcriptionStats := transcriptionClient.GetStats()
	diarizationStats := diarizationClient.GetStats()
	logger.Info("Final service statistics",
		slog.Uint64("transcription_requests", transcriptionStats.TotalRequests),
		slog.Uint64("transcription_successes", transcriptionStats.SuccessRequests),
		slog.Float64("transcription_success_rate", transcriptionStats.SuccessRate),
		slog.Uint64("diarization_requests", diarizationStats.TotalRequests),
		slog.Uint64("diarization_successes", diarizationStats.SuccessRequests),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
