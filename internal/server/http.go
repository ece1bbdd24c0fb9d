package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KyleGal/live-translation-api/internal/align"
	"github.com/KyleGal/live-translation-api/internal/audio"
	"github.com/KyleGal/live-translation-api/internal/config"
	"github.com/KyleGal/live-translation-api/internal/metrics"
	"github.com/KyleGal/live-translation-api/internal/session"
	"github.com/KyleGal/live-translation-api/internal/source"
)

// HTTPServer provides the translation API and monitoring endpoints
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	sessionMgr *session.Manager
	pipeline   *align.Pipeline
	metrics    *metrics.Metrics
	upgrader   wsUpgrader

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(logger *slog.Logger, appConfig *config.Config,
	sessionMgr *session.Manager, pipeline *align.Pipeline, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		sessionMgr: sessionMgr,
		pipeline:   pipeline,
		metrics:    m,
		upgrader:   newWSUpgrader(),
		startTime:  time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", appConfig.HTTP.Address, appConfig.HTTP.Port),
		Handler:     mux,
		ReadTimeout: 0, // streaming ingest bodies stay open for the session
		IdleTimeout: 60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Translation endpoints
	mux.HandleFunc("/api/translate/verbatim", h.withMetrics("/api/translate/verbatim", h.handleVerbatim))
	mux.HandleFunc("/api/translate/diarization", h.withMetrics("/api/translate/diarization", h.handleDiarization))

	// WebSocket ingest
	mux.HandleFunc("/ws/translate", h.handleWebSocket)

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Session monitoring endpoints
	mux.HandleFunc("/sessions", h.withMetrics("/sessions", h.handleSessions))
	mux.HandleFunc("/sessions/", h.withMetrics("/sessions/{id}", h.handleSessionDetail))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush forwards flushes to the wrapped writer so SSE streaming works
// through the metrics wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleVerbatim implements the live streaming endpoint. The request body is
// an open-ended stream of raw PCM-16 bytes; the response is an SSE stream of
// session events. The body reader is the ingest path; the SSE writer is the
// event consumer.
func (h *HTTPServer) handleVerbatim(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	overrides := session.Config{
		Language: r.Header.Get("X-Source-Language"),
	}
	if sr := r.Header.Get("X-Sample-Rate"); sr != "" {
		rate, err := strconv.Atoi(sr)
		if err != nil || rate <= 0 {
			http.Error(w, "Invalid X-Sample-Rate header", http.StatusBadRequest)
			return
		}
		overrides.SampleRate = rate
	}

	sess, err := h.sessionMgr.CreateSession(r.Context(), overrides)
	if err != nil {
		h.logger.Error("Failed to create session", slog.String("error", err.Error()))
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Session-ID", sess.ID)
	flusher.Flush()

	// Ingest path: stream the request body into the session. Stopping the
	// session afterwards flushes the pending phrase and closes the event
	// stream, which ends the SSE loop below.
	go func() {
		src := source.NewReaderSource(r.Body, 4096)
		for {
			chunk, err := src.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				h.logger.Warn("Ingest read failed",
					slog.String("session_id", sess.ID),
					slog.String("error", err.Error()))
				break
			}
			if err := sess.Write(chunk); err != nil {
				h.logger.Warn("Chunk rejected",
					slog.String("session_id", sess.ID),
					slog.String("error", err.Error()))
			}
		}
		h.sessionMgr.RemoveSession(sess.ID)
		h.saveRecording(sess)
	}()

	// Event consumer: forward ordered session events as SSE data lines.
	for ev := range sess.Events() {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
	}
}

// saveRecording writes the session's recorded audio as a WAV artifact when a
// recording directory is configured.
func (h *HTTPServer) saveRecording(sess *session.Session) {
	dir := h.config.Session.RecordingDir
	if dir == "" {
		return
	}

	path, err := sess.Recorder().SaveWAV(dir)
	if err != nil {
		h.logger.Warn("Failed to save session recording",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()))
		return
	}

	h.logger.Info("Session recording saved",
		slog.String("session_id", sess.ID),
		slog.String("path", path))
}

// handleDiarization implements the batch diarization and alignment endpoint.
// The body carries the finished audio (WAV, or raw PCM described by
// X-Sample-Rate); the response is the ordered speaker turns.
func (h *HTTPServer) handleDiarization(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	minSpeakers := h.config.Diarization.MinSpeakers
	maxSpeakers := h.config.Diarization.MaxSpeakers

	if v := r.Header.Get("X-Min-Speakers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_parameter", "X-Min-Speakers must be a positive integer")
			return
		}
		minSpeakers = n
	}
	if v := r.Header.Get("X-Max-Speakers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "invalid_parameter", "X-Max-Speakers must be a positive integer")
			return
		}
		maxSpeakers = n
	}
	if maxSpeakers < minSpeakers {
		h.writeError(w, http.StatusBadRequest, "invalid_parameter", "X-Max-Speakers must be >= X-Min-Speakers")
		return
	}

	language := r.Header.Get("X-Source-Language")
	if language == "" {
		language = h.config.Transcription.Language
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "read_failed", "failed to read request body")
		return
	}
	if len(body) == 0 {
		h.writeError(w, http.StatusBadRequest, "empty_body", "no audio data provided")
		return
	}

	wav := body
	if _, _, err := audio.DecodeWAV(body); err != nil {
		// Not a WAV container. Treat the body as raw PCM at the declared
		// sample rate.
		sampleRate := h.config.Audio.SampleRate
		if v := r.Header.Get("X-Sample-Rate"); v != "" {
			n, convErr := strconv.Atoi(v)
			if convErr != nil || n <= 0 {
				h.writeError(w, http.StatusBadRequest, "invalid_parameter", "X-Sample-Rate must be a positive integer")
				return
			}
			sampleRate = n
		}
		wav, err = audio.EncodeWAV(body, sampleRate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_audio", err.Error())
			return
		}
	}

	// The transcription service resolves paths, so the artifact goes to disk
	// for the duration of the run.
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("diarize_%s.wav", uuid.NewString()))
	if err := os.WriteFile(tmpPath, wav, 0o644); err != nil {
		h.writeError(w, http.StatusInternalServerError, "io_error", "failed to stage audio file")
		return
	}
	defer os.Remove(tmpPath)

	result, err := h.pipeline.Process(r.Context(), tmpPath, language, minSpeakers, maxSpeakers)
	if err != nil {
		h.logger.Error("Batch alignment failed", slog.String("error", err.Error()))
		h.writeError(w, http.StatusBadGateway, "processing_failed", err.Error())
		return
	}

	response := map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"turns":          result.Turns,
			"transcription":  result.Transcription,
			"numSpeakers":    result.NumSpeakers,
			"sourceLanguage": language,
			"timestamp":      time.Now().UTC(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// writeError writes the JSON error envelope shared by the API endpoints.
func (h *HTTPServer) writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   code,
		"message": message,
	})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "live-translation-api",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"session_manager": map[string]interface{}{
				"status":          "running",
				"active_sessions": h.sessionMgr.GetActiveSessionCount(),
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleSessions implements the /sessions endpoint
func (h *HTTPServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := h.sessionMgr.GetAllSessionInfo()

	response := map[string]interface{}{
		"total_sessions": len(infos),
		"timestamp":      time.Now().UTC(),
		"sessions":       infos,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleSessionDetail implements the /sessions/{id} endpoint
func (h *HTTPServer) handleSessionDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Path[len("/sessions/"):]
	if id == "" {
		http.Error(w, "Session ID required", http.StatusBadRequest)
		return
	}

	sess, exists := h.sessionMgr.GetSession(id)
	if !exists {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sess.GetInfo())
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"http": map[string]interface{}{
			"port":    h.config.HTTP.Port,
			"address": h.config.HTTP.Address,
		},
		"audio": map[string]interface{}{
			"sample_rate":    h.config.Audio.SampleRate,
			"channels":       h.config.Audio.Channels,
			"bit_depth":      h.config.Audio.BitDepth,
			"phrase_timeout": h.config.Audio.PhraseTimeout,
			"min_duration":   h.config.Audio.MinDuration,
		},
		"vad": map[string]interface{}{
			"enabled":          h.config.VAD.Enabled,
			"aggressiveness":   h.config.VAD.Aggressiveness,
			"frame_duration":   h.config.VAD.FrameDuration,
			"silence_duration": h.config.VAD.SilenceDuration,
		},
		"dispatch": map[string]interface{}{
			"live_update_interval": h.config.Dispatch.LiveUpdateInterval,
			"poll_interval":        h.config.Dispatch.PollInterval,
			"queue_size":           h.config.Dispatch.QueueSize,
		},
		"transcription": map[string]interface{}{
			"endpoint":       h.config.Transcription.Endpoint,
			"language":       h.config.Transcription.Language,
			"timeout":        h.config.Transcription.Timeout,
			"max_retries":    h.config.Transcription.MaxRetries,
			"max_concurrent": h.config.Transcription.MaxConcurrent,
		},
		"diarization": map[string]interface{}{
			"endpoint":     h.config.Diarization.Endpoint,
			"timeout":      h.config.Diarization.Timeout,
			"min_speakers": h.config.Diarization.MinSpeakers,
			"max_speakers": h.config.Diarization.MaxSpeakers,
			// Note: the auth token is intentionally omitted
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"sessions": map[string]interface{}{
			"active_count": h.sessionMgr.GetActiveSessionCount(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Live Translation API",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"POST /api/translate/verbatim":    "Stream PCM audio, receive SSE transcription events",
			"POST /api/translate/diarization": "Submit finished audio, receive speaker turns",
			"GET /ws/translate":               "WebSocket audio ingest with JSON events",
			"GET /health":                     "Service health check",
			"GET /sessions":                   "List all active sessions",
			"GET /sessions/{id}":              "Get detailed session information",
			"GET /config":                     "Get service configuration",
			"GET /stats":                      "Get service statistics",
			"GET /metrics":                    "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
