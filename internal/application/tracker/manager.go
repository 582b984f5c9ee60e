// Package tracker owns the active offline session: start, background
// transitions, periodic ticks and end.
package tracker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/alem-hub/offline-quest/internal/domain/session"
	"github.com/alem-hub/offline-quest/internal/domain/shared"
	"github.com/alem-hub/offline-quest/pkg/logger"
	"github.com/alem-hub/offline-quest/pkg/timeutil"
)

// DefaultTickInterval is how often session.tick is published.
const DefaultTickInterval = time.Second

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for Manager.
type Config struct {
	// Clock returns the current time (default: time.Now)
	Clock timeutil.Clock

	// TickInterval between session.tick events (default: 1s)
	TickInterval time.Duration

	// Publisher receives session.started and session.tick.
	// Tick handlers run on the tick goroutine and must not call End.
	Publisher shared.EventPublisher

	// Logger for structured logging
	Logger *slog.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// MANAGER
// ══════════════════════════════════════════════════════════════════════════════

// Manager is the Idle → Active → Idle state machine around one session.
// All methods are safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	clock     timeutil.Clock
	interval  time.Duration
	publisher shared.EventPublisher
	logger    *slog.Logger

	active *session.Session
	stop   chan struct{}
	done   chan struct{}
}

// NewManager creates an idle manager.
func NewManager(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Publisher == nil {
		cfg.Publisher = shared.NopPublisher{}
	}

	return &Manager{
		clock:     cfg.Clock,
		interval:  cfg.TickInterval,
		publisher: cfg.Publisher,
		logger:    logger.OrDefault(cfg.Logger).With(logger.Component("tracker")),
	}
}

// Start begins a new session and its tick loop.
// Returns shared.ErrAlreadyActive if a session is running.
func (m *Manager) Start(goalID string) (session.Snapshot, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return session.Snapshot{}, shared.ErrAlreadyActive
	}

	s := session.New(goalID, m.clock())
	m.active = s
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	snap := s.Snapshot()

	go m.tickLoop(s, m.stop, m.done)
	m.mu.Unlock()

	m.logger.Info("session started", logger.SessionID(s.ID), slog.String("goal_id", goalID))
	m.publish(shared.NewSessionStartedEvent(s.ID, goalID, s.StartTime))

	return snap, nil
}

// End finalizes the active session and returns its summary.
// Returns shared.ErrNoActiveSession when idle.
func (m *Manager) End() (session.Summary, error) {
	m.mu.Lock()
	s := m.active
	if s == nil {
		m.mu.Unlock()
		return session.Summary{}, shared.ErrNoActiveSession
	}

	summary := s.Finish(m.clock())
	stop, done := m.stop, m.done
	m.active, m.stop, m.done = nil, nil, nil
	m.mu.Unlock()

	// The tick loop takes m.mu, so it must be stopped after unlocking.
	close(stop)
	<-done

	m.logger.Info("session ended",
		logger.SessionID(summary.SessionID),
		logger.Minutes(summary.WholeMinutes()),
		slog.String("quality", string(summary.Quality)),
		slog.Float64("focus_ratio", summary.FocusRatio),
	)

	return summary, nil
}

// RecordBackgrounded marks the app as backgrounded. No-op when idle or
// already backgrounded.
func (m *Manager) RecordBackgrounded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.active.Backgrounded(m.clock())
	}
}

// RecordForegrounded closes the current background interval. No-op when idle
// or not backgrounded.
func (m *Manager) RecordForegrounded() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		m.active.Foregrounded(m.clock())
	}
}

// Active reports whether a session is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Snapshot returns a copy of the active session.
func (m *Manager) Snapshot() (session.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return session.Snapshot{}, false
	}
	return m.active.Snapshot(), true
}

// Elapsed returns the running time of the active session, 0 when idle.
func (m *Manager) Elapsed() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return 0
	}
	return m.active.Elapsed(m.clock())
}

// Close ends the active session, if any, discarding its summary.
func (m *Manager) Close() {
	if _, err := m.End(); err == nil {
		m.logger.Warn("active session discarded on close")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TICK LOOP
// ══════════════════════════════════════════════════════════════════════════════

func (m *Manager) tickLoop(s *session.Session, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.mu.Lock()
			if m.active != s {
				m.mu.Unlock()
				return
			}
			now := m.clock()
			elapsed := s.Elapsed(now)
			m.mu.Unlock()

			m.publish(shared.NewSessionTickEvent(s.ID, elapsed, now))
		}
	}
}

func (m *Manager) publish(event shared.Event) {
	if err := m.publisher.Publish(event); err != nil {
		m.logger.Warn("failed to publish event",
			slog.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}
