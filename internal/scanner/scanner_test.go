// internal/scanner/scanner_test.go
package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
	"github.com/forgeqa/testforge/internal/config"
	"github.com/forgeqa/testforge/internal/mocks"
	"github.com/forgeqa/testforge/internal/session"
)

func newTestSession(t *testing.T, setup func(p *mocks.FakePage)) *session.Session {
	t.Helper()

	driver := &mocks.FakeDriver{PageSetup: setup}
	cfg := config.SessionConfig{
		IdleThreshold:     30 * time.Minute,
		ReapInterval:      5 * time.Minute,
		NavigationTimeout: 5 * time.Second,
		ActionTimeout:     time.Second,
		ReadTimeout:       time.Second,
		EventLogSize:      16,
	}
	reg := session.NewRegistry(driver, cfg, zap.NewNop())

	resp, err := reg.Create(context.Background(), "https://example.test/")
	require.NoError(t, err)

	sess, err := reg.Lookup(resp.SessionID)
	require.NoError(t, err)
	return sess
}

// inventory is the loosely typed shape a page evaluation returns.
func inventory() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"tagName":  "H1",
			"id":       "page-title",
			"classes":  []interface{}{"heading", "main"},
			"text":     "Checkout",
			"selector": "#page-title",
			"xpath":    `//*[@id="page-title"]`,
			"attributes": map[string]interface{}{
				"id": "page-title",
			},
			"boundingBox": map[string]interface{}{
				"x": 16.0, "y": 24.0, "width": 320.0, "height": 40.0,
			},
		},
		{
			"tagName":  "BUTTON",
			"id":       "",
			"classes":  []interface{}{"btn"},
			"text":     "Place order",
			"selector": "#order-form > button:nth-of-type(1)",
			"xpath":    `//*[@id="order-form"]/button[1]`,
			"attributes": map[string]interface{}{
				"type": "submit",
			},
			"boundingBox": map[string]interface{}{
				"x": 16.0, "y": 80.0, "width": 120.0, "height": 32.0,
			},
		},
	}
}

func TestScanDecodesElements(t *testing.T) {
	sess := newTestSession(t, func(p *mocks.FakePage) {
		p.EvalResult = inventory()
	})

	result, err := NewScanner(zap.NewNop()).Scan(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, result.Elements, 2)

	first := result.Elements[0]
	assert.Equal(t, "H1", first.TagName)
	assert.Equal(t, "page-title", first.ID)
	assert.Equal(t, "#page-title", first.Selector)
	assert.Equal(t, `//*[@id="page-title"]`, first.XPath)
	assert.Equal(t, []string{"heading", "main"}, first.Classes)
	assert.Equal(t, 320.0, first.BoundingBox.Width)

	second := result.Elements[1]
	assert.Equal(t, "BUTTON", second.TagName)
	assert.Equal(t, "#order-form > button:nth-of-type(1)", second.Selector)
	assert.Equal(t, `//*[@id="order-form"]/button[1]`, second.XPath)
}

func TestScanPreservesDocumentOrder(t *testing.T) {
	sess := newTestSession(t, func(p *mocks.FakePage) {
		p.EvalResult = inventory()
	})

	s := NewScanner(zap.NewNop())
	first, err := s.Scan(context.Background(), sess)
	require.NoError(t, err)
	second, err := s.Scan(context.Background(), sess)
	require.NoError(t, err)

	assert.Equal(t, first.Elements, second.Elements)
}

func TestScanEmptyPage(t *testing.T) {
	sess := newTestSession(t, func(p *mocks.FakePage) {
		p.EvalResult = []map[string]interface{}{}
	})

	result, err := NewScanner(zap.NewNop()).Scan(context.Background(), sess)
	require.NoError(t, err)
	assert.NotNil(t, result.Elements)
	assert.Empty(t, result.Elements)
}

func TestScanNilResult(t *testing.T) {
	sess := newTestSession(t, nil)

	result, err := NewScanner(zap.NewNop()).Scan(context.Background(), sess)
	require.NoError(t, err)
	assert.NotNil(t, result.Elements)
	assert.Empty(t, result.Elements)
}

func TestScanEvaluateFailureIsDomAccessError(t *testing.T) {
	sess := newTestSession(t, func(p *mocks.FakePage) {
		p.EvaluateErr = errors.New("execution context destroyed")
	})

	_, err := NewScanner(zap.NewNop()).Scan(context.Background(), sess)
	require.Error(t, err)

	var domErr *schemas.DomAccessError
	assert.ErrorAs(t, err, &domErr)
}

func TestScanScriptShape(t *testing.T) {
	// Guard the selector inventory and exclusion list against accidental
	// edits; the authoring UI depends on these exact groups.
	assert.Contains(t, scanScript, `[data-testid]`)
	assert.Contains(t, scanScript, `[role="button"]`)
	assert.Contains(t, scanScript, "nth-of-type")
	assert.Contains(t, scanScript, `'SCRIPT', 'STYLE', 'META', 'LINK', 'HEAD', 'TITLE'`)
}
