package schemas

// ActionKind identifies one of the supported UI instructions. Using a custom
// type ensures only predefined constants can appear where an ActionKind is
// expected.
type ActionKind string

const (
	ActionClick      ActionKind = "click"
	ActionType       ActionKind = "type"
	ActionFill       ActionKind = "fill" // accepted alias for "type" on the wire
	ActionSelect     ActionKind = "select"
	ActionWait       ActionKind = "wait"
	ActionNavigate   ActionKind = "navigate"
	ActionVerifyText ActionKind = "verify-text"
)

// ActionRequest is the wire form of a single instruction to execute against a
// session. Selector and Value are optional at this level; which fields are
// required depends on the action kind and is validated by the executor.
type ActionRequest struct {
	Action   ActionKind `json:"action"`
	Selector string     `json:"selector,omitempty"`
	// Value carries the text to type or verify, the URL to navigate to, the
	// option value to select, or the wait duration in milliseconds.
	Value string `json:"value,omitempty"`
}

// ActionResult is the outcome of one ActionRequest. A failed interaction or
// verification is a normal outcome (Success=false), not a transport error.
type ActionResult struct {
	Action   ActionKind `json:"action"`
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	Selector string     `json:"selector,omitempty"`

	// Verification detail, populated for verify-text.
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	// URL the page settled on, populated for navigate.
	URL string `json:"url,omitempty"`

	// Elapsed wall time in milliseconds, populated for wait.
	DurationMs int64 `json:"durationMs,omitempty"`
}
