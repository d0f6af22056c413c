package schemas

// BoundingBox describes an element's layout rectangle in viewport
// coordinates at scan time.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectedElement is a snapshot description of one DOM node produced by an
// element scan. Selectors are recomputed on every scan; a later scan
// invalidates all previous DetectedElement selectors.
type DetectedElement struct {
	// TagName is uppercased, matching the DOM convention (e.g. "BUTTON").
	TagName    string            `json:"tagName"`
	ID         string            `json:"id,omitempty"`
	Classes    []string          `json:"classes,omitempty"`
	Text       string            `json:"text"`
	Attributes map[string]string `json:"attributes"`
	// Selector is a CSS selector synthesized from the node's position:
	// "#id" when the node carries an id, otherwise tag:nth-of-type(n) steps
	// joined by ">" up to the nearest id-bearing ancestor or the root.
	Selector string `json:"selector"`
	// XPath uses the same ancestor walk with 1-based same-tag indices and an
	// //*[@id="..."] short-circuit.
	XPath       string      `json:"xpath"`
	BoundingBox BoundingBox `json:"boundingBox"`
}

// ScanResult is the full element inventory of one scan call, in DOM
// encounter order.
type ScanResult struct {
	Elements []DetectedElement `json:"elements"`
}
