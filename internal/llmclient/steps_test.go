// internal/llmclient/steps_test.go
package llmclient

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
)

type stubGenerator struct {
	reply string
	err   error

	lastSystem string
	lastUser   string
}

func (s *stubGenerator) GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.lastSystem = systemPrompt
	s.lastUser = userPrompt
	return s.reply, s.err
}

func TestGenerateStepsParsesReply(t *testing.T) {
	stub := &stubGenerator{reply: `[
        {"action": "type", "selector": "#username", "value": "standard_user"},
        {"action": "click", "selector": "#login-button"},
        {"action": "verify-text", "selector": ".title", "value": "Products"}
    ]`}

	gen := NewStepGenerator(stub, zap.NewNop())
	steps, err := gen.GenerateSteps(context.Background(), &schemas.GenerateStepsRequest{
		Description: "log in as the standard user and check the title",
	})
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, schemas.ActionType, steps[0].Action)
	assert.Equal(t, "#login-button", steps[1].Selector)
	assert.Equal(t, schemas.ActionVerifyText, steps[2].Action)
}

func TestGenerateStepsToleratesCodeFence(t *testing.T) {
	stub := &stubGenerator{reply: "```json\n[{\"action\": \"click\", \"selector\": \"#ok\"}]\n```"}

	gen := NewStepGenerator(stub, zap.NewNop())
	steps, err := gen.GenerateSteps(context.Background(), &schemas.GenerateStepsRequest{Description: "click ok"})
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, schemas.ActionClick, steps[0].Action)
}

func TestGenerateStepsRejectsUnknownAction(t *testing.T) {
	stub := &stubGenerator{reply: `[{"action": "hover", "selector": "#menu"}]`}

	gen := NewStepGenerator(stub, zap.NewNop())
	_, err := gen.GenerateSteps(context.Background(), &schemas.GenerateStepsRequest{Description: "hover the menu"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hover")
}

func TestGenerateStepsRejectsNonArrayReply(t *testing.T) {
	stub := &stubGenerator{reply: `{"steps": []}`}

	gen := NewStepGenerator(stub, zap.NewNop())
	_, err := gen.GenerateSteps(context.Background(), &schemas.GenerateStepsRequest{Description: "anything"})
	require.Error(t, err)
}

func TestGenerateStepsPropagatesClientError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("gemini API error: status 403")}

	gen := NewStepGenerator(stub, zap.NewNop())
	_, err := gen.GenerateSteps(context.Background(), &schemas.GenerateStepsRequest{Description: "anything"})
	require.Error(t, err)
}

func TestGenerateStepsGroundsPromptInInventory(t *testing.T) {
	stub := &stubGenerator{reply: `[]`}

	gen := NewStepGenerator(stub, zap.NewNop())
	_, err := gen.GenerateSteps(context.Background(), &schemas.GenerateStepsRequest{
		Description: "press the order button",
		TargetURL:   "https://shop.test/checkout",
		Elements: []schemas.DetectedElement{
			{TagName: "BUTTON", Selector: "#order-form > button:nth-of-type(1)", Text: "Place order"},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, stub.lastUser, "press the order button")
	assert.Contains(t, stub.lastUser, "https://shop.test/checkout")
	assert.Contains(t, stub.lastUser, "#order-form > button:nth-of-type(1)")
	assert.Contains(t, stub.lastSystem, "verify-text")
}
