// internal/session/session.go
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
	"github.com/forgeqa/testforge/internal/browser"
)

// Session is one live, addressable browser tab under registry control. All
// page operations go through Do, which serializes access; the underlying
// browser page is not safely reentrant.
type Session struct {
	id     string
	page   browser.Page
	logger *zap.Logger
	events *EventLog

	// opMu serializes page operations (scans and actions) for this session.
	opMu sync.Mutex

	stateMu      sync.Mutex
	lastActivity time.Time
	closed       bool

	closeOnce sync.Once
}

func newSession(id string, page browser.Page, events *EventLog, logger *zap.Logger) *Session {
	return &Session{
		id:           id,
		page:         page,
		logger:       logger.With(zap.String("session_id", id)),
		events:       events,
		lastActivity: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Do runs fn against the session's page while holding the session's
// operation lock. It fails with ErrSessionNotFound once the session has
// been closed, including when the close happened while waiting for the
// lock.
func (s *Session) Do(ctx context.Context, fn func(page browser.Page) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isClosed() {
		return schemas.ErrSessionNotFound
	}
	return fn(s.page)
}

// Touch refreshes the last-activity timestamp. This is the sole mechanism
// preventing idle eviction of an in-use session.
func (s *Session) Touch() {
	s.stateMu.Lock()
	s.lastActivity = time.Now()
	s.stateMu.Unlock()
}

// LastActivity returns the time of the most recent lookup or action.
func (s *Session) LastActivity() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastActivity
}

// Events returns a snapshot of the session's diagnostic event log.
func (s *Session) Events() []schemas.PageEvent {
	return s.events.Snapshot()
}

func (s *Session) isClosed() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.closed
}

// shutdown releases the browser resources behind the session. The closed
// flag is set before the page is torn down so an in-flight action observes
// a clean failure rather than hanging. Safe to call at most-once semantics
// via closeOnce.
func (s *Session) shutdown(ctx context.Context) error {
	var closeErr error
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.closed = true
		s.stateMu.Unlock()

		s.logger.Info("Closing session.")
		closeErr = s.page.Close(ctx)
	})
	return closeErr
}
