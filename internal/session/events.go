// internal/session/events.go
package session

import (
	"strconv"
	"sync"
	"time"

	"github.com/forgeqa/testforge/api/schemas"
)

// EventLog is a bounded ring of diagnostic page events. It implements
// browser.PageObserver; callbacks arrive on driver goroutines, so all
// access is guarded.
type EventLog struct {
	mu   sync.Mutex
	buf  []schemas.PageEvent
	next int
	full bool
}

// NewEventLog creates a ring holding at most size events. Older events are
// overwritten once the ring is full.
func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = 1
	}
	return &EventLog{buf: make([]schemas.PageEvent, size)}
}

func (l *EventLog) append(ev schemas.PageEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = ev
	l.next++
	if l.next == len(l.buf) {
		l.next = 0
		l.full = true
	}
}

// Snapshot returns the logged events in arrival order.
func (l *EventLog) Snapshot() []schemas.PageEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full {
		out := make([]schemas.PageEvent, l.next)
		copy(out, l.buf[:l.next])
		return out
	}

	out := make([]schemas.PageEvent, 0, len(l.buf))
	out = append(out, l.buf[l.next:]...)
	out = append(out, l.buf[:l.next]...)
	return out
}

// OnConsole records a console message.
func (l *EventLog) OnConsole(level, text string) {
	l.append(schemas.PageEvent{
		Kind:      schemas.PageEventConsole,
		Timestamp: time.Now(),
		Text:      text,
		Detail:    level,
	})
}

// OnRequest records an outgoing request.
func (l *EventLog) OnRequest(method, url string) {
	l.append(schemas.PageEvent{
		Kind:      schemas.PageEventRequest,
		Timestamp: time.Now(),
		Text:      url,
		Detail:    method,
	})
}

// OnResponse records a completed response.
func (l *EventLog) OnResponse(status int, url string) {
	l.append(schemas.PageEvent{
		Kind:      schemas.PageEventResponse,
		Timestamp: time.Now(),
		Text:      url,
		Detail:    strconv.Itoa(status),
	})
}
