// Package session runs the periodic session lifecycle (begin/update/end) and
// fans lifecycle notifications out to listener subsystems.
package session

import (
	"log/slog"
	"time"

	"github.com/attaboy/monetize/internal/bus"
	"github.com/attaboy/monetize/internal/dispatch"
	"github.com/attaboy/monetize/internal/domain"
	"github.com/google/uuid"
)

// Listener observes session lifecycle transitions. The offer engine is the
// primary listener: it runs a session-triggered offer check on start and on
// every update tick.
type Listener interface {
	OnSessionStarted(info domain.SessionInfo)
	OnSessionUpdated(info domain.SessionInfo)
	OnSessionEnded(info domain.SessionInfo)
}

// Scheduler owns the single active session per SDK instance. The ticker runs
// on its own goroutine and posts each tick onto the dispatch loop, so all
// session state and listener fan-out stay on the engine's logical thread.
type Scheduler struct {
	logger   *slog.Logger
	eventBus *bus.Bus
	loop     *dispatch.Loop
	interval time.Duration
	now      domain.Clock

	listeners []Listener

	active       bool
	sessionID    string
	startedAt    time.Time
	lastUpdateAt time.Time
	stop         chan struct{}
}

// NewScheduler creates a scheduler ticking at the given interval. A nil
// clock defaults to time.Now.
func NewScheduler(eventBus *bus.Bus, loop *dispatch.Loop, interval time.Duration, logger *slog.Logger, now domain.Clock) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		logger:   logger,
		eventBus: eventBus,
		loop:     loop,
		interval: interval,
		now:      now,
	}
}

// AddListener registers a lifecycle listener. Listeners added after
// BeginSession miss the start notification.
func (s *Scheduler) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// Active reports whether a session is running.
func (s *Scheduler) Active() bool { return s.active }

// Info returns a snapshot of the current session.
func (s *Scheduler) Info() domain.SessionInfo {
	return domain.SessionInfo{
		ID:           s.sessionID,
		StartedAt:    s.startedAt,
		LastUpdateAt: s.lastUpdateAt,
	}
}

// BeginSession starts a new session: generates a session id, records the
// start time, starts the recurring update timer and synchronously notifies
// all listeners. Warns and no-ops if a session is already active.
func (s *Scheduler) BeginSession() {
	if s.active {
		s.logger.Warn("session already active, ignoring begin")
		return
	}

	s.sessionID = uuid.NewString()
	s.startedAt = s.now()
	s.lastUpdateAt = s.startedAt
	s.active = true
	s.stop = make(chan struct{})

	go s.tickLoop(s.stop)

	info := s.Info()
	s.logger.Info("session started", "session_id", s.sessionID, "interval", s.interval)
	for _, l := range s.listeners {
		l.OnSessionStarted(info)
	}
	bus.Raise(s.eventBus, domain.SessionStarted{Session: info})
}

// EndSession stops the timer, flips to inactive and fans out "session
// ended". Idempotent: warns and no-ops when no session is active. No update
// tick runs after EndSession returns.
func (s *Scheduler) EndSession() {
	if !s.active {
		s.logger.Warn("no active session to end")
		return
	}

	close(s.stop)
	s.stop = nil
	s.active = false

	info := s.Info()
	s.logger.Info("session ended", "session_id", s.sessionID)
	for _, l := range s.listeners {
		l.OnSessionEnded(info)
	}
	bus.Raise(s.eventBus, domain.SessionEnded{Session: info})
}

// tickLoop posts one update per interval onto the dispatch loop until
// stopped. Ticks are not coalesced: if the consuming logic is slow they may
// back up on the loop.
func (s *Scheduler) tickLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.loop.Post(s.update)
		}
	}
}

// update runs on the dispatch loop. The active guard drops ticks that were
// already queued when EndSession ran.
func (s *Scheduler) update() {
	if !s.active {
		return
	}
	s.lastUpdateAt = s.now()
	info := s.Info()
	s.logger.Debug("session updated", "session_id", s.sessionID)
	for _, l := range s.listeners {
		l.OnSessionUpdated(info)
	}
	bus.Raise(s.eventBus, domain.SessionUpdated{Session: info})
}
