package schemas

import "time"

// SavedTest is a named, persisted sequence of action steps authored against
// a target page.
type SavedTest struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	TargetURL string          `json:"targetUrl"`
	Steps     []ActionRequest `json:"steps"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// SaveTestRequest is the payload for creating or replacing a saved test.
// ID is optional; when present the existing test is replaced.
type SaveTestRequest struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	TargetURL string          `json:"targetUrl"`
	Steps     []ActionRequest `json:"steps"`
}

// GenerateStepsRequest asks the language model to turn a natural language
// description into an ordered list of action steps. Elements is the most
// recent scan inventory, used to ground selectors in real nodes.
type GenerateStepsRequest struct {
	Description string            `json:"description"`
	TargetURL   string            `json:"targetUrl,omitempty"`
	Elements    []DetectedElement `json:"elements,omitempty"`
}

// GenerateStepsResponse carries the generated steps.
type GenerateStepsResponse struct {
	Steps []ActionRequest `json:"steps"`
}
