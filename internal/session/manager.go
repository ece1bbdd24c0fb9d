package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KyleGal/live-translation-api/internal/metrics"
	"github.com/KyleGal/live-translation-api/internal/transcription"
)

// Manager tracks all active live sessions and reaps idle ones.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex
	logger   *slog.Logger

	defaults    Config
	idleTimeout time.Duration

	transcriber transcription.Transcriber
	metrics     *metrics.Metrics

	// Cleanup management
	ctx     context.Context
	cancel  context.CancelFunc
	cleanup chan struct{}
}

// ManagerConfig contains configuration for the session manager
type ManagerConfig struct {
	Defaults    Config
	IdleTimeout time.Duration
}

// NewManager creates a session manager and starts its idle cleanup routine.
func NewManager(logger *slog.Logger, config ManagerConfig, transcriber transcription.Transcriber, m *metrics.Metrics) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	if config.IdleTimeout <= 0 {
		config.IdleTimeout = 5 * time.Minute
	}

	mgr := &Manager{
		sessions:    make(map[string]*Session),
		logger:      logger,
		defaults:    config.Defaults,
		idleTimeout: config.IdleTimeout,
		transcriber: transcriber,
		metrics:     m,
		ctx:         ctx,
		cancel:      cancel,
		cleanup:     make(chan struct{}),
	}

	go mgr.startCleanupRoutine()

	return mgr
}

// CreateSession starts a new live session. Zero-valued overrides fall back
// to the manager's defaults.
func (m *Manager) CreateSession(consumerCtx context.Context, overrides Config) (*Session, error) {
	config := m.defaults
	if overrides.Language != "" {
		config.Language = overrides.Language
	}
	if overrides.SampleRate > 0 {
		config.SampleRate = overrides.SampleRate
	}
	if overrides.PhraseTimeout > 0 {
		config.PhraseTimeout = overrides.PhraseTimeout
	}
	if overrides.LiveUpdateInterval > 0 {
		config.LiveUpdateInterval = overrides.LiveUpdateInterval
	}
	if overrides.VADEnabled {
		config.VADEnabled = true
	}

	id := uuid.NewString()

	sess, err := New(consumerCtx, id, config, m.transcriber, m.metrics, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordSessionCreated()
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Info("Created session",
		slog.String("session_id", id),
		slog.String("language", config.Language),
		slog.Int("active_sessions", count),
	)

	return sess, nil
}

// GetSession retrieves an active session by ID
func (m *Manager) GetSession(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[id]
	return sess, exists
}

// GetActiveSessionCount returns the number of currently active sessions
func (m *Manager) GetActiveSessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// GetAllSessionInfo returns a snapshot of all active sessions (for monitoring)
func (m *Manager) GetAllSessionInfo() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, sess.GetInfo())
	}

	return infos
}

// RemoveSession stops a session and removes it from tracking.
func (m *Manager) RemoveSession(id string) bool {
	m.mu.Lock()
	sess, exists := m.sessions[id]
	if !exists {
		m.mu.Unlock()
		return false
	}
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()

	sess.Stop()

	if m.metrics != nil {
		m.metrics.RecordSessionDestroyed(time.Since(sess.StartTime).Seconds())
		m.metrics.SetActiveSessions(count)
	}

	m.logger.Info("Session removed",
		slog.String("session_id", id),
		slog.Duration("duration", time.Since(sess.StartTime)),
	)

	return true
}

// Stop gracefully stops the session manager and all active sessions.
func (m *Manager) Stop() {
	m.logger.Info("Stopping session manager...")

	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.RemoveSession(id)
	}

	// Cancel context to stop cleanup routine
	m.cancel()
	<-m.cleanup

	m.logger.Info("Session manager stopped",
		slog.Int("remaining_sessions", m.GetActiveSessionCount()),
	)
}

// startCleanupRoutine runs in a separate goroutine to reap idle sessions
func (m *Manager) startCleanupRoutine() {
	defer close(m.cleanup)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	m.logger.Info("Session cleanup routine started",
		slog.Duration("idle_timeout", m.idleTimeout),
		slog.Duration("check_interval", 30*time.Second),
	)

	for {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Session cleanup routine stopping")
			return

		case <-ticker.C:
			m.cleanupIdleSessions()
		}
	}
}

// cleanupIdleSessions removes sessions with no ingest activity for longer
// than the idle timeout.
func (m *Manager) cleanupIdleSessions() {
	now := time.Now()
	idle := make([]string, 0)

	m.mu.RLock()
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActivity()) > m.idleTimeout {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	if len(idle) > 0 {
		m.logger.Info("Cleaning up idle sessions",
			slog.Int("idle_count", len(idle)),
		)

		for _, id := range idle {
			m.RemoveSession(id)
		}
	}
}
