package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KyleGal/live-translation-api/internal/audio"
	"github.com/KyleGal/live-translation-api/internal/events"
	"github.com/KyleGal/live-translation-api/internal/metrics"
	"github.com/KyleGal/live-translation-api/internal/phrase"
	"github.com/KyleGal/live-translation-api/internal/transcription"
	"github.com/KyleGal/live-translation-api/internal/vad"
)

// IngestionError reports a rejected input chunk. The phrase buffer is never
// touched by a rejected chunk.
type IngestionError struct {
	Message string
	Cause   error
}

func (e *IngestionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ingestion: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("ingestion: %s", e.Message)
}

func (e *IngestionError) Unwrap() error {
	return e.Cause
}

// queueItem carries either a payload chunk or an end-of-phrase boundary
// signal from the ingest path to the processing loop.
type queueItem struct {
	payload  []byte
	arrival  time.Time
	boundary bool
}

// Config contains per-session configuration
type Config struct {
	Language           string
	SampleRate         int
	PhraseTimeout      time.Duration
	MinDuration        time.Duration
	LiveUpdateInterval time.Duration
	PollInterval       time.Duration
	QueueSize          int

	TranscriptionTimeout time.Duration

	VADEnabled         bool
	VADAggressiveness  int
	VADFrameDuration   time.Duration
	VADSilenceDuration time.Duration
}

// Session is one live translation session. The ingest path (Write) only
// validates, records, and enqueues; the processing loop owns every
// transcription call and every event emission. Because a single goroutine
// runs the loop, at most one transcription call is in flight per session.
type Session struct {
	ID        string
	Language  string
	StartTime time.Time

	config      Config
	queue       chan queueItem
	accumulator *phrase.Accumulator
	gate        *vad.Gate
	recorder    *audio.Recorder
	stream      *events.Stream
	transcriber transcription.Transcriber
	metrics     *metrics.Metrics
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastLiveDispatch time.Time
	lastFinalText    string

	// VAD counters already reported to metrics; only deltas get recorded.
	vadFramesSeen uint64
	vadSpeechSeen uint64

	// Statistics
	chunksReceived   uint64
	chunksDropped    uint64
	phrasesCompleted uint64
	liveUpdates      uint64
	failures         uint64
	lastActivity     time.Time

	stopped bool
	mu      sync.RWMutex
}

// SessionInfo represents session information for monitoring APIs
type SessionInfo struct {
	ID               string        `json:"id"`
	Language         string        `json:"language"`
	StartTime        time.Time     `json:"start_time"`
	LastActivity     time.Time     `json:"last_activity"`
	Duration         time.Duration `json:"duration"`
	ChunksReceived   uint64        `json:"chunks_received"`
	ChunksDropped    uint64        `json:"chunks_dropped"`
	PhrasesCompleted uint64        `json:"phrases_completed"`
	LiveUpdates      uint64        `json:"live_updates"`
	Failures         uint64        `json:"failures"`
	RecordedDuration float64       `json:"recorded_duration_seconds"`
	QueueDepth       int           `json:"queue_depth"`
}

// New creates a live session and starts its processing loop. consumerCtx is
// the event consumer's context; when it is cancelled the session stops doing
// dispatch work.
func New(consumerCtx context.Context, id string, config Config, transcriber transcription.Transcriber, m *metrics.Metrics, logger *slog.Logger) (*Session, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.PhraseTimeout <= 0 {
		config.PhraseTimeout = 3 * time.Second
	}
	if config.MinDuration <= 0 {
		config.MinDuration = 500 * time.Millisecond
	}
	if config.LiveUpdateInterval <= 0 {
		config.LiveUpdateInterval = 1500 * time.Millisecond
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 250 * time.Millisecond
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if config.TranscriptionTimeout <= 0 {
		config.TranscriptionTimeout = 30 * time.Second
	}

	if consumerCtx == nil {
		consumerCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(context.Background())

	now := time.Now()
	s := &Session{
		ID:           id,
		Language:     config.Language,
		StartTime:    now,
		config:       config,
		queue:        make(chan queueItem, config.QueueSize),
		accumulator:  phrase.NewAccumulator(),
		recorder:     audio.NewRecorder(config.SampleRate),
		stream:       events.NewStream(consumerCtx, config.QueueSize),
		transcriber:  transcriber,
		metrics:      m,
		logger:       logger.With(slog.String("session_id", id)),
		ctx:          ctx,
		cancel:       cancel,
		lastActivity: now,

		// Start the live cadence at session start so the first interim update
		// waits a full interval instead of firing on the first tick.
		lastLiveDispatch: now,
	}

	if config.VADEnabled {
		gate, err := vad.NewGate(vad.Config{
			Aggressiveness:  config.VADAggressiveness,
			FrameDuration:   config.VADFrameDuration,
			SilenceDuration: config.VADSilenceDuration,
			SampleRate:      config.SampleRate,
		})
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create VAD gate: %w", err)
		}
		s.gate = gate
	}

	s.wg.Add(1)
	go s.processingLoop()

	s.stream.Emit(events.Status("listening", now))

	s.logger.Info("Session started",
		slog.String("language", config.Language),
		slog.Int("sample_rate", config.SampleRate),
		slog.Bool("vad_enabled", config.VADEnabled),
	)

	return s, nil
}

// Events returns the session's ordered event channel
func (s *Session) Events() <-chan events.Event {
	return s.stream.C()
}

// Write ingests one chunk of raw PCM bytes. It validates, records, runs the
// voice gate, and enqueues. It never blocks on network or model calls; when
// the queue is full the oldest chunk is dropped to keep ingest latency flat.
func (s *Session) Write(payload []byte) error {
	if err := audio.ValidatePCM(payload); err != nil {
		if s.metrics != nil {
			s.metrics.RecordIngestError()
		}
		return &IngestionError{Message: "invalid chunk", Cause: err}
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return &IngestionError{Message: "session is stopped"}
	}
	s.chunksReceived++
	s.lastActivity = time.Now()
	s.mu.Unlock()

	// The recorder keeps its own copy; the queue owns this one.
	if err := s.recorder.Append(payload); err != nil {
		return &IngestionError{Message: "recording failed", Cause: err}
	}

	if s.gate != nil {
		boundary, err := s.gate.Feed(payload)
		if err != nil {
			s.logger.Warn("VAD gate error", slog.String("error", err.Error()))
		} else {
			if s.metrics != nil {
				st := s.gate.GetStats()
				s.metrics.RecordVADFrames(st.TotalFrames-s.vadFramesSeen, st.SpeechFrames-s.vadSpeechSeen)
				s.vadFramesSeen, s.vadSpeechSeen = st.TotalFrames, st.SpeechFrames
			}
			if boundary {
				if s.metrics != nil {
					s.metrics.RecordVADBoundary()
				}
				s.enqueue(queueItem{boundary: true, arrival: time.Now()})
			}
		}
	}

	chunk := make([]byte, len(payload))
	copy(chunk, payload)
	s.enqueue(queueItem{payload: chunk, arrival: time.Now()})

	if s.metrics != nil {
		s.metrics.RecordChunkIngested()
		s.metrics.SetQueueSize(len(s.queue))
	}

	return nil
}

// enqueue adds an item to the processing queue, dropping the oldest entry
// when the queue is full.
func (s *Session) enqueue(item queueItem) {
	select {
	case s.queue <- item:
	default:
		select {
		case dropped := <-s.queue:
			if !dropped.boundary {
				s.mu.Lock()
				s.chunksDropped++
				s.mu.Unlock()
				if s.metrics != nil {
					s.metrics.RecordChunkDropped()
				}
				s.logger.Warn("Queue full, dropped oldest chunk",
					slog.Int("bytes", len(dropped.payload)))
			}
		default:
		}
		select {
		case s.queue <- item:
		default:
		}
	}
}

// processingLoop is the single dispatch goroutine. It drains the queue,
// fires phrase boundaries and timeouts, and issues live updates at a bounded
// cadence. Polling instead of blocking keeps timeout checks firing when no
// audio arrives.
func (s *Session) processingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Debug("Processing loop started",
		slog.Duration("poll_interval", s.config.PollInterval))

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("Processing loop stopping")
			return
		case <-ticker.C:
			if s.stream.Done() {
				s.logger.Info("Event consumer disconnected, stopping dispatch")
				return
			}
			s.processTick(time.Now())
		}
	}
}

// processTick runs one poll iteration. Boundaries and timeouts are handled
// before any live-cadence dispatch so a completed phrase always finalizes
// ahead of its own interim update.
func (s *Session) processTick(now time.Time) {
	s.drainQueue(now)

	if completed := s.accumulator.CheckTimeout(now, s.config.PhraseTimeout); completed != nil {
		s.dispatchPhrase(completed, "timeout", now)
	}

	s.maybeLiveDispatch(now)
}

// drainQueue consumes everything queued since the last tick. Multiple
// payloads arriving between ticks merge into one buffer before any dispatch.
func (s *Session) drainQueue(now time.Time) {
	for {
		select {
		case item := <-s.queue:
			if item.boundary {
				if completed := s.accumulator.Finalize(now); completed != nil {
					s.dispatchPhrase(completed, "silence", now)
				}
				continue
			}
			s.accumulator.Append(item.payload, item.arrival)
		default:
			if s.metrics != nil {
				s.metrics.SetQueueSize(len(s.queue))
			}
			return
		}
	}
}

// maybeLiveDispatch issues an interim transcription when the live cadence
// has elapsed and enough audio has accumulated to be worth a call.
func (s *Session) maybeLiveDispatch(now time.Time) {
	if !s.accumulator.HasAudio() {
		return
	}
	if now.Sub(s.lastLiveDispatch) < s.config.LiveUpdateInterval {
		return
	}

	current := s.accumulator.Current()
	if current.Duration(s.config.SampleRate) < s.config.MinDuration {
		return
	}

	s.lastLiveDispatch = now
	s.dispatch(current.Bytes, false, now)
}

// dispatchPhrase dispatches a completed phrase as a final transcription
func (s *Session) dispatchPhrase(p *phrase.Phrase, reason string, now time.Time) {
	duration := p.Duration(s.config.SampleRate)
	if duration < s.config.MinDuration {
		s.logger.Debug("Skipping short phrase",
			slog.String("reason", reason),
			slog.Float64("seconds", duration.Seconds()))
		return
	}

	s.mu.Lock()
	s.phrasesCompleted++
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordPhraseCompleted(reason, duration.Seconds(), len(p.Bytes))
	}

	s.logger.Info("Phrase completed",
		slog.String("reason", reason),
		slog.Float64("seconds", duration.Seconds()),
		slog.Int("bytes", len(p.Bytes)))

	s.dispatch(p.Bytes, true, now)
	s.lastLiveDispatch = now
}

// dispatch converts PCM bytes to normalized samples, calls the transcriber,
// and emits the resulting event. A failed call degrades to an error event;
// accumulation continues uninterrupted.
func (s *Session) dispatch(pcm []byte, isFinal bool, now time.Time) {
	floats, err := audio.ToFloat32(pcm)
	if err != nil {
		s.emitError(fmt.Sprintf("invalid phrase audio: %v", err), now)
		return
	}

	if s.stream.Done() {
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTranscriptionRequest()
	}

	// Not derived from the loop context: the final flush on Stop still needs
	// to transcribe after the loop has been cancelled. The per-call timeout
	// bounds the call either way.
	ctx, cancel := context.WithTimeout(context.Background(), s.config.TranscriptionTimeout)
	defer cancel()

	startTime := time.Now()
	result, err := s.transcriber.Transcribe(ctx, floats, s.config.SampleRate, s.Language)
	elapsed := time.Since(startTime)

	if err != nil {
		s.mu.Lock()
		s.failures++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordTranscriptionFailure(elapsed.Seconds())
		}
		s.logger.Error("Transcription failed",
			slog.Bool("final", isFinal),
			slog.String("error", err.Error()),
			slog.Float64("seconds", elapsed.Seconds()))
		s.emitError(err.Error(), time.Now())
		return
	}

	if s.metrics != nil {
		s.metrics.RecordTranscriptionSuccess(elapsed.Seconds())
	}

	var ev events.Event
	if isFinal {
		s.lastFinalText = result.Text
		ev = events.Final(result.Text, time.Now())
	} else {
		s.mu.Lock()
		s.liveUpdates++
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordLiveUpdate()
		}
		ev = events.Transcription(result.Text, time.Now())
	}

	if !s.stream.Emit(ev) {
		// Consumer is gone. No point doing more work for this session.
		s.logger.Info("Event consumer disconnected, cancelling session")
		s.cancel()
	}
}

func (s *Session) emitError(message string, now time.Time) {
	if !s.stream.Emit(events.Error(message, now)) {
		s.cancel()
	}
}

// Stop finalizes the pending phrase, emits its final transcription, freezes
// the recorder, and closes the event stream. Safe to call more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	// Stop the loop first so the flush below is the only dispatcher left.
	s.cancel()
	s.wg.Wait()

	now := time.Now()

	// Flush: drain whatever the ingest path queued, then force completion.
	s.drainQueue(now)
	if completed := s.accumulator.Finalize(now); completed != nil {
		s.dispatchPhrase(completed, "stop", now)
	}

	s.recorder.Freeze()
	s.stream.Close()

	s.mu.RLock()
	s.logger.Info("Session stopped",
		slog.Duration("duration", time.Since(s.StartTime)),
		slog.Uint64("chunks_received", s.chunksReceived),
		slog.Uint64("chunks_dropped", s.chunksDropped),
		slog.Uint64("phrases_completed", s.phrasesCompleted),
		slog.Uint64("live_updates", s.liveUpdates),
		slog.Uint64("failures", s.failures),
	)
	s.mu.RUnlock()
}

// Recorder returns the session's audio recorder
func (s *Session) Recorder() *audio.Recorder {
	return s.recorder
}

// LastActivity returns the time of the most recent ingested chunk
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// GetInfo returns session information for monitoring
func (s *Session) GetInfo() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return SessionInfo{
		ID:               s.ID,
		Language:         s.Language,
		StartTime:        s.StartTime,
		LastActivity:     s.lastActivity,
		Duration:         time.Since(s.StartTime),
		ChunksReceived:   s.chunksReceived,
		ChunksDropped:    s.chunksDropped,
		PhrasesCompleted: s.phrasesCompleted,
		LiveUpdates:      s.liveUpdates,
		Failures:         s.failures,
		RecordedDuration: s.recorder.Duration().Seconds(),
		QueueDepth:       len(s.queue),
	}
}
