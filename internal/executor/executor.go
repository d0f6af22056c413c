// internal/executor/executor.go
// Package executor runs validated test steps against live sessions and
// reports per-step outcomes.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
	"github.com/forgeqa/testforge/internal/browser"
	"github.com/forgeqa/testforge/internal/config"
	"github.com/forgeqa/testforge/internal/session"
)

// Executor dispatches actions to sessions. Operations on the same session
// are serialized by the session handle; the executor itself is stateless
// and safe for concurrent use.
type Executor struct {
	registry *session.Registry
	cfg      config.SessionConfig
	logger   *zap.Logger
}

func NewExecutor(registry *session.Registry, cfg config.SessionConfig, logger *zap.Logger) *Executor {
	return &Executor{
		registry: registry,
		cfg:      cfg,
		logger:   logger.Named("executor"),
	}
}

// Execute runs a single raw action against the named session.
//
// A step that fails against the page (element not found in time, text
// mismatch) is reported as a successful call with Success=false so a test
// run can record the failure and continue. Only malformed requests,
// unknown sessions, and driver-level faults surface as errors.
func (e *Executor) Execute(ctx context.Context, sessionID string, req schemas.ActionRequest) (*schemas.ActionResult, error) {
	action, err := ParseAction(req)
	if err != nil {
		return nil, err
	}

	sess, err := e.registry.Lookup(sessionID)
	if err != nil {
		return nil, err
	}

	var result *schemas.ActionResult
	err = sess.Do(ctx, func(page browser.Page) error {
		var dispatchErr error
		result, dispatchErr = e.dispatch(ctx, page, action)
		return dispatchErr
	})
	if err != nil {
		if errors.Is(err, schemas.ErrSessionNotFound) {
			return nil, err
		}
		return nil, &schemas.ExecutionError{Op: string(action.Kind()), Err: err}
	}

	e.logger.Debug("Action executed.",
		zap.String("session_id", sessionID),
		zap.String("action", string(result.Action)),
		zap.Bool("success", result.Success))
	return result, nil
}

func (e *Executor) dispatch(ctx context.Context, page browser.Page, action Action) (*schemas.ActionResult, error) {
	switch a := action.(type) {
	case ClickAction:
		return e.click(ctx, page, a)
	case TypeAction:
		return e.typeText(ctx, page, a)
	case SelectAction:
		return e.selectOption(ctx, page, a)
	case WaitAction:
		return e.wait(ctx, a)
	case NavigateAction:
		return e.navigate(ctx, page, a)
	case VerifyTextAction:
		return e.verifyText(ctx, page, a)
	default:
		return nil, fmt.Errorf("unhandled action kind %q", action.Kind())
	}
}

func (e *Executor) click(ctx context.Context, page browser.Page, a ClickAction) (*schemas.ActionResult, error) {
	if err := page.Click(ctx, a.Selector, e.cfg.ActionTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return failure(schemas.ActionClick, a.Selector,
				fmt.Sprintf("no element matched %q within %s", a.Selector, e.cfg.ActionTimeout)), nil
		}
		return nil, err
	}
	return success(schemas.ActionClick, a.Selector, fmt.Sprintf("clicked %q", a.Selector)), nil
}

func (e *Executor) typeText(ctx context.Context, page browser.Page, a TypeAction) (*schemas.ActionResult, error) {
	if err := page.Fill(ctx, a.Selector, a.Value, e.cfg.ActionTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return failure(schemas.ActionType, a.Selector,
				fmt.Sprintf("no input matched %q within %s", a.Selector, e.cfg.ActionTimeout)), nil
		}
		return nil, err
	}
	return success(schemas.ActionType, a.Selector, fmt.Sprintf("typed into %q", a.Selector)), nil
}

func (e *Executor) selectOption(ctx context.Context, page browser.Page, a SelectAction) (*schemas.ActionResult, error) {
	if err := page.SelectOption(ctx, a.Selector, a.Value, e.cfg.ActionTimeout); err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return failure(schemas.ActionSelect, a.Selector,
				fmt.Sprintf("no select matched %q within %s", a.Selector, e.cfg.ActionTimeout)), nil
		}
		return nil, err
	}
	return success(schemas.ActionSelect, a.Selector,
		fmt.Sprintf("selected option %q in %q", a.Value, a.Selector)), nil
}

// wait pauses for the requested duration but honors ctx cancellation so a
// shutdown never blocks behind a sleeping step.
func (e *Executor) wait(ctx context.Context, a WaitAction) (*schemas.ActionResult, error) {
	d := a.Duration
	if !a.Explicit {
		d = e.cfg.DefaultWait
	}

	start := time.Now()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	result := success(schemas.ActionWait, "", fmt.Sprintf("waited %s", d))
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

func (e *Executor) navigate(ctx context.Context, page browser.Page, a NavigateAction) (*schemas.ActionResult, error) {
	info, err := page.Navigate(ctx, a.URL, e.cfg.NavigationTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return failure(schemas.ActionNavigate, "",
				fmt.Sprintf("page did not settle on %s within %s", a.URL, e.cfg.NavigationTimeout)), nil
		}
		return nil, err
	}

	result := success(schemas.ActionNavigate, "", fmt.Sprintf("navigated to %s", info.URL))
	result.URL = info.URL
	return result, nil
}

func (e *Executor) verifyText(ctx context.Context, page browser.Page, a VerifyTextAction) (*schemas.ActionResult, error) {
	text, err := page.TextContent(ctx, a.Selector, e.cfg.ReadTimeout)
	if err != nil {
		if errors.Is(err, browser.ErrTimeout) {
			return failure(schemas.ActionVerifyText, a.Selector,
				fmt.Sprintf("no element matched %q within %s", a.Selector, e.cfg.ReadTimeout)), nil
		}
		return nil, err
	}

	actual := strings.TrimSpace(text)
	if actual == "" {
		// Form controls carry their text in value, not textContent. The
		// read is best effort; a non-form element simply keeps "".
		if value, valueErr := page.InputValue(ctx, a.Selector, e.cfg.ReadTimeout); valueErr == nil {
			actual = strings.TrimSpace(value)
		}
	}

	expected := strings.TrimSpace(a.Expected)
	result := &schemas.ActionResult{
		Action:   schemas.ActionVerifyText,
		Selector: a.Selector,
		Expected: expected,
		Actual:   actual,
	}
	if actual == expected {
		result.Success = true
		result.Message = fmt.Sprintf("text of %q matches %q", a.Selector, expected)
	} else {
		result.Message = fmt.Sprintf("text of %q is %q, expected %q", a.Selector, actual, expected)
	}
	return result, nil
}

func success(kind schemas.ActionKind, selector, message string) *schemas.ActionResult {
	return &schemas.ActionResult{Action: kind, Success: true, Selector: selector, Message: message}
}

func failure(kind schemas.ActionKind, selector, message string) *schemas.ActionResult {
	return &schemas.ActionResult{Action: kind, Success: false, Selector: selector, Message: message}
}
