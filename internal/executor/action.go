// internal/executor/action.go
package executor

import (
	"strconv"
	"time"

	"github.com/forgeqa/testforge/api/schemas"
)

// Action is a validated, executable test step. Parsing happens exactly once
// at the API boundary; past ParseAction the executor never sees a
// malformed step.
type Action interface {
	Kind() schemas.ActionKind
}

// ClickAction clicks the element matched by Selector.
type ClickAction struct {
	Selector string
}

func (ClickAction) Kind() schemas.ActionKind { return schemas.ActionClick }

// TypeAction replaces the current value of the matched input with Value.
type TypeAction struct {
	Selector string
	Value    string
}

func (TypeAction) Kind() schemas.ActionKind { return schemas.ActionType }

// SelectAction chooses the option with value Value in the matched select.
type SelectAction struct {
	Selector string
	Value    string
}

func (SelectAction) Kind() schemas.ActionKind { return schemas.ActionSelect }

// WaitAction pauses execution for Duration. Explicit records whether the
// request carried a value; when it did not, the executor substitutes the
// configured default, so an explicit "0" still means a zero wait.
type WaitAction struct {
	Duration time.Duration
	Explicit bool
}

func (WaitAction) Kind() schemas.ActionKind { return schemas.ActionWait }

// NavigateAction points the session's page at a new URL.
type NavigateAction struct {
	URL string
}

func (NavigateAction) Kind() schemas.ActionKind { return schemas.ActionNavigate }

// VerifyTextAction asserts that the matched element's visible text (or
// current input value) equals Expected after trimming whitespace.
type VerifyTextAction struct {
	Selector string
	Expected string
}

func (VerifyTextAction) Kind() schemas.ActionKind { return schemas.ActionVerifyText }

// ParseAction validates a raw request and produces the corresponding
// Action. All validation failures are ClientErrors.
func ParseAction(req schemas.ActionRequest) (Action, error) {
	switch req.Action {
	case schemas.ActionClick:
		if req.Selector == "" {
			return nil, schemas.NewClientError("click requires a selector")
		}
		return ClickAction{Selector: req.Selector}, nil

	case schemas.ActionType, schemas.ActionFill:
		if req.Selector == "" {
			return nil, schemas.NewClientError("type requires a selector")
		}
		if req.Value == "" {
			return nil, schemas.NewClientError("type requires a value")
		}
		return TypeAction{Selector: req.Selector, Value: req.Value}, nil

	case schemas.ActionSelect:
		if req.Selector == "" {
			return nil, schemas.NewClientError("select requires a selector")
		}
		if req.Value == "" {
			return nil, schemas.NewClientError("select requires a value")
		}
		return SelectAction{Selector: req.Selector, Value: req.Value}, nil

	case schemas.ActionWait:
		if req.Value == "" {
			return WaitAction{}, nil
		}
		ms, err := parseMillis(req.Value)
		if err != nil {
			return nil, schemas.NewClientError("wait value must be a duration in milliseconds, got %q", req.Value)
		}
		return WaitAction{Duration: time.Duration(ms) * time.Millisecond, Explicit: true}, nil

	case schemas.ActionNavigate:
		if req.Value == "" {
			return nil, schemas.NewClientError("navigate requires a value holding the target URL")
		}
		return NavigateAction{URL: req.Value}, nil

	case schemas.ActionVerifyText:
		if req.Selector == "" {
			return nil, schemas.NewClientError("verify-text requires a selector")
		}
		if req.Value == "" {
			return nil, schemas.NewClientError("verify-text requires a value holding the expected text")
		}
		return VerifyTextAction{Selector: req.Selector, Expected: req.Value}, nil

	default:
		return nil, schemas.NewClientError("unsupported action kind %q", req.Action)
	}
}

func parseMillis(s string) (int, error) {
	ms, err := strconv.Atoi(s)
	if err != nil || ms < 0 {
		return 0, schemas.NewClientError("not a millisecond count: %q", s)
	}
	return ms, nil
}
