// internal/llmclient/steps.go
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/forgeqa/testforge/api/schemas"
)

// TextGenerator is the slice of the LLM client the step generator needs.
type TextGenerator interface {
	GenerateJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const stepSystemPrompt = `You translate natural language test descriptions into JSON test steps.
Respond with a JSON array only. Each element has the shape:
  {"action": "...", "selector": "...", "value": "..."}
Allowed actions: click, type, select, wait, navigate, verify-text.
Rules:
- "selector" must be a CSS selector copied from the provided element inventory when one fits.
- "value" holds the text to type, the option value to select, the expected text for verify-text, the URL for navigate, or milliseconds for wait.
- Emit steps in execution order. Emit nothing but the JSON array.`

// StepGenerator turns a natural language description of a test into an
// ordered list of executable action steps.
type StepGenerator struct {
	client TextGenerator
	logger *zap.Logger
}

func NewStepGenerator(client TextGenerator, logger *zap.Logger) *StepGenerator {
	return &StepGenerator{
		client: client,
		logger: logger.Named("step_generator"),
	}
}

// GenerateSteps asks the model for steps grounded in the supplied element
// inventory and strictly parses the reply. A reply that is not a valid step
// array, or that contains an unknown action kind, is rejected.
func (g *StepGenerator) GenerateSteps(ctx context.Context, req *schemas.GenerateStepsRequest) ([]schemas.ActionRequest, error) {
	userPrompt, err := buildStepPrompt(req)
	if err != nil {
		return nil, err
	}

	raw, err := g.client.GenerateJSON(ctx, stepSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("step generation failed: %w", err)
	}

	steps, err := parseSteps(raw)
	if err != nil {
		g.logger.Warn("Model returned unparseable steps.", zap.Error(err))
		return nil, err
	}

	g.logger.Info("Generated test steps.",
		zap.Int("step_count", len(steps)),
		zap.Int("element_count", len(req.Elements)))
	return steps, nil
}

func buildStepPrompt(req *schemas.GenerateStepsRequest) (string, error) {
	var b strings.Builder

	b.WriteString("Test description:\n")
	b.WriteString(req.Description)
	b.WriteString("\n")

	if req.TargetURL != "" {
		fmt.Fprintf(&b, "\nTarget page: %s\n", req.TargetURL)
	}

	if len(req.Elements) > 0 {
		inventory, err := json.Marshal(req.Elements)
		if err != nil {
			return "", fmt.Errorf("failed to encode element inventory: %w", err)
		}
		b.WriteString("\nElement inventory (JSON):\n")
		b.Write(inventory)
		b.WriteString("\n")
	}

	return b.String(), nil
}

// parseSteps decodes the model reply, tolerating a markdown code fence
// around the array but nothing else.
func parseSteps(raw string) ([]schemas.ActionRequest, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var steps []schemas.ActionRequest
	if err := json.Unmarshal([]byte(cleaned), &steps); err != nil {
		return nil, fmt.Errorf("model reply is not a step array: %w", err)
	}

	for i, step := range steps {
		switch step.Action {
		case schemas.ActionClick, schemas.ActionType, schemas.ActionFill,
			schemas.ActionSelect, schemas.ActionWait, schemas.ActionNavigate,
			schemas.ActionVerifyText:
		default:
			return nil, fmt.Errorf("step %d has unsupported action %q", i, step.Action)
		}
	}
	return steps, nil
}
