// internal/scanner/scanner.go
// Package scanner discovers interactable and labeled elements on the page
// under test and synthesizes a stable CSS selector and XPath for each.
package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
	"github.com/forgeqa/testforge/internal/browser"
	"github.com/forgeqa/testforge/internal/session"
)

// scanScript runs inside the page (or the preview frame, when present) and
// returns the element inventory in document order. Selector synthesis
// short-circuits at the nearest ancestor with an id; otherwise segments
// are tag:nth-of-type(n) with a 1-based index among same-tag siblings.
const scanScript = `(() => {
    const candidates = document.querySelectorAll(
        'input, button, select, textarea, a, ' +
        '[role="button"], [role="link"], [role="tab"], [data-testid], ' +
        'h1[id], h2[id], h3[id], h4[id], h5[id], h6[id], p[id], span[id], div[id]'
    );
    const excluded = new Set(['SCRIPT', 'STYLE', 'META', 'LINK', 'HEAD', 'TITLE']);

    const cssEscape = (id) => (window.CSS && CSS.escape) ? CSS.escape(id) : id;

    const sameTagIndex = (el) => {
        let n = 1;
        for (let sib = el.previousElementSibling; sib; sib = sib.previousElementSibling) {
            if (sib.tagName === el.tagName) n++;
        }
        return n;
    };

    const cssSelector = (el) => {
        const parts = [];
        for (let cur = el; cur && cur.nodeType === Node.ELEMENT_NODE; cur = cur.parentElement) {
            if (cur.id) {
                parts.unshift('#' + cssEscape(cur.id));
                return parts.join(' > ');
            }
            parts.unshift(cur.tagName.toLowerCase() + ':nth-of-type(' + sameTagIndex(cur) + ')');
        }
        return parts.join(' > ');
    };

    const xpath = (el) => {
        const parts = [];
        for (let cur = el; cur && cur.nodeType === Node.ELEMENT_NODE; cur = cur.parentElement) {
            if (cur.id) {
                parts.unshift('//*[@id="' + cur.id + '"]');
                return parts.join('/');
            }
            parts.unshift(cur.tagName.toLowerCase() + '[' + sameTagIndex(cur) + ']');
        }
        return '/' + parts.join('/');
    };

    const out = [];
    for (const el of candidates) {
        if (excluded.has(el.tagName)) continue;

        const attrs = {};
        for (const a of el.attributes) attrs[a.name] = a.value;

        const rect = el.getBoundingClientRect();
        out.push({
            tagName: el.tagName,
            id: el.id || '',
            classes: el.className && typeof el.className === 'string'
                ? el.className.split(/\s+/).filter(Boolean) : [],
            text: (el.textContent || '').trim().slice(0, 200),
            attributes: attrs,
            selector: cssSelector(el),
            xpath: xpath(el),
            boundingBox: { x: rect.x, y: rect.y, width: rect.width, height: rect.height },
        });
    }
    return out;
})()`

// Scanner produces element inventories for live sessions.
type Scanner struct {
	logger *zap.Logger
}

func NewScanner(logger *zap.Logger) *Scanner {
	return &Scanner{logger: logger.Named("scanner")}
}

// Scan inventories the session's current page. Elements are returned in
// DOM document order; an empty page yields an empty, non-nil slice.
func (s *Scanner) Scan(ctx context.Context, sess *session.Session) (*schemas.ScanResult, error) {
	var raw any
	err := sess.Do(ctx, func(page browser.Page) error {
		var evalErr error
		raw, evalErr = page.Evaluate(ctx, scanScript)
		return evalErr
	})
	if err != nil {
		if errors.Is(err, schemas.ErrSessionNotFound) {
			return nil, err
		}
		return nil, &schemas.DomAccessError{Err: err}
	}

	elements, err := decodeElements(raw)
	if err != nil {
		return nil, &schemas.DomAccessError{Err: err}
	}

	s.logger.Debug("Page scan complete.",
		zap.String("session_id", sess.ID()),
		zap.Int("element_count", len(elements)))

	return &schemas.ScanResult{Elements: elements}, nil
}

// decodeElements converts the loosely typed evaluation result into the
// schema type via a JSON round trip.
func decodeElements(raw any) ([]schemas.DetectedElement, error) {
	if raw == nil {
		return []schemas.DetectedElement{}, nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encoding scan result: %w", err)
	}
	elements := []schemas.DetectedElement{}
	if err := json.Unmarshal(buf, &elements); err != nil {
		return nil, fmt.Errorf("decoding scan result: %w", err)
	}
	return elements, nil
}
