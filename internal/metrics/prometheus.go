package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the live translation service
type Metrics struct {
	// Ingest metrics
	ChunksIngested prometheus.Counter
	ChunksDropped  prometheus.Counter
	IngestErrors   prometheus.Counter
	QueueSize      prometheus.Gauge

	// Session metrics
	ActiveSessions    prometheus.Gauge
	SessionsCreated   prometheus.Counter
	SessionsDestroyed prometheus.Counter
	SessionDuration   prometheus.Histogram

	// VAD metrics
	VADFramesProcessed prometheus.Counter
	VADSpeechDetected  prometheus.Counter
	VADBoundaries      prometheus.Counter

	// Phrase metrics
	PhrasesCompleted *prometheus.CounterVec
	PhraseDuration   prometheus.Histogram
	PhraseSize       prometheus.Histogram
	LiveUpdates      prometheus.Counter

	// Transcription metrics
	TranscriptionRequests  prometheus.Counter
	TranscriptionSuccesses prometheus.Counter
	TranscriptionFailures  prometheus.Counter
	TranscriptionDuration  prometheus.Histogram

	// Diarization metrics
	DiarizationRequests  prometheus.Counter
	DiarizationSuccesses prometheus.Counter
	DiarizationFailures  prometheus.Counter
	DiarizationDuration  prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Ingest metrics
		ChunksIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_chunks_ingested_total",
			Help: "Total number of audio chunks ingested",
		}),
		ChunksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_chunks_dropped_total",
			Help: "Total number of audio chunks dropped from full queues",
		}),
		IngestErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_ingest_errors_total",
			Help: "Total number of rejected malformed chunks",
		}),
		QueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "verbatim_chunk_queue_size",
			Help: "Current number of chunks in processing queues",
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "verbatim_active_sessions",
			Help: "Current number of active translation sessions",
		}),
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_sessions_created_total",
			Help: "Total number of sessions created",
		}),
		SessionsDestroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_sessions_destroyed_total",
			Help: "Total number of sessions destroyed",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verbatim_session_duration_seconds",
			Help:    "Duration of translation sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// VAD metrics
		VADFramesProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_vad_frames_processed_total",
			Help: "Total number of VAD frames classified",
		}),
		VADSpeechDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_vad_speech_detected_total",
			Help: "Total number of VAD frames classified as speech",
		}),
		VADBoundaries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_vad_boundaries_total",
			Help: "Total number of silence-driven phrase boundaries",
		}),

		// Phrase metrics
		PhrasesCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verbatim_phrases_completed_total",
			Help: "Total number of completed phrases by completion reason",
		}, []string{"reason"}),
		PhraseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verbatim_phrase_duration_seconds",
			Help:    "Audio duration of completed phrases",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		PhraseSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verbatim_phrase_size_bytes",
			Help:    "Size of completed phrases in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		LiveUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_live_updates_total",
			Help: "Total number of interim transcription updates emitted",
		}),

		// Transcription metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_transcription_successes_total",
			Help: "Total number of successful transcription requests",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verbatim_transcription_duration_seconds",
			Help:    "Duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// Diarization metrics
		DiarizationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_diarization_requests_total",
			Help: "Total number of diarization requests sent",
		}),
		DiarizationSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_diarization_successes_total",
			Help: "Total number of successful diarization requests",
		}),
		DiarizationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verbatim_diarization_failures_total",
			Help: "Total number of failed diarization requests",
		}),
		DiarizationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verbatim_diarization_duration_seconds",
			Help:    "Duration of diarization requests",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verbatim_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verbatim_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verbatim_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordChunkIngested increments the chunks ingested counter
func (m *Metrics) RecordChunkIngested() {
	m.ChunksIngested.Inc()
}

// RecordChunkDropped increments the dropped chunks counter
func (m *Metrics) RecordChunkDropped() {
	m.ChunksDropped.Inc()
}

// RecordIngestError increments the ingest errors counter
func (m *Metrics) RecordIngestError() {
	m.IngestErrors.Inc()
}

// SetQueueSize sets the current queue size
func (m *Metrics) SetQueueSize(size int) {
	m.QueueSize.Set(float64(size))
}

// SetActiveSessions sets the current number of active sessions
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionCreated increments the sessions created counter
func (m *Metrics) RecordSessionCreated() {
	m.SessionsCreated.Inc()
}

// RecordSessionDestroyed increments the sessions destroyed counter and records duration
func (m *Metrics) RecordSessionDestroyed(durationSeconds float64) {
	m.SessionsDestroyed.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordVADFrames adds a batch of classified frames to the VAD counters
func (m *Metrics) RecordVADFrames(total, speech uint64) {
	m.VADFramesProcessed.Add(float64(total))
	m.VADSpeechDetected.Add(float64(speech))
}

// RecordVADBoundary increments the silence boundary counter
func (m *Metrics) RecordVADBoundary() {
	m.VADBoundaries.Inc()
}

// RecordPhraseCompleted records a completed phrase with its completion reason
func (m *Metrics) RecordPhraseCompleted(reason string, durationSeconds float64, sizeBytes int) {
	m.PhrasesCompleted.WithLabelValues(reason).Inc()
	m.PhraseDuration.Observe(durationSeconds)
	m.PhraseSize.Observe(float64(sizeBytes))
}

// RecordLiveUpdate increments the interim update counter
func (m *Metrics) RecordLiveUpdate() {
	m.LiveUpdates.Inc()
}

// RecordTranscriptionRequest increments transcription requests counter
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records a successful transcription
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionSuccesses.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed transcription
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordDiarizationRequest increments diarization requests counter
func (m *Metrics) RecordDiarizationRequest() {
	m.DiarizationRequests.Inc()
}

// RecordDiarizationSuccess records a successful diarization
func (m *Metrics) RecordDiarizationSuccess(durationSeconds float64) {
	m.DiarizationSuccesses.Inc()
	m.DiarizationDuration.Observe(durationSeconds)
}

// RecordDiarizationFailure records a failed diarization
func (m *Metrics) RecordDiarizationFailure(durationSeconds float64) {
	m.DiarizationFailures.Inc()
	m.DiarizationDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
