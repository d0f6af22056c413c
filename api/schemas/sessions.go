package schemas

import "time"

// CreateSessionRequest is the payload for opening a new browser session.
type CreateSessionRequest struct {
	URL string `json:"url"`
}

// CreateSessionResponse describes a freshly created session. Screenshot is a
// base64-encoded PNG of the page after the initial navigation settled, when
// capture is enabled.
type CreateSessionResponse struct {
	SessionID  string `json:"sessionId"`
	Title      string `json:"title"`
	ActualURL  string `json:"actualUrl"`
	Screenshot string `json:"screenshot,omitempty"`
}

// PageEventKind classifies an entry in a session's diagnostic event log.
type PageEventKind string

const (
	PageEventConsole  PageEventKind = "console"
	PageEventRequest  PageEventKind = "request"
	PageEventResponse PageEventKind = "response"
)

// PageEvent is one diagnostic record captured from a live page (console
// message or network round-trip). Events are best-effort and bounded; they
// play no part in action correctness.
type PageEvent struct {
	Kind      PageEventKind `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	// Text is the console message text, or the URL for network events.
	Text string `json:"text"`
	// Detail is the console level, HTTP method, or status line.
	Detail string `json:"detail,omitempty"`
}
