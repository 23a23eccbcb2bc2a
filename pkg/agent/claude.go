// Package agent provides the optional Claude-backed coach reviewer. The rest
// of the pipeline works without it; the CLI only constructs a client when an
// API key is configured.
package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"guardkit/pkg/logx"
	"guardkit/pkg/utils"
)

const coachSystemPrompt = `You are a senior engineer reviewing a task before implementation begins.
Assess the task against the architecture context provided. Point out affected
components, conflicting decisions, and risks. Be concise and concrete.`

// CoachClient wraps the Anthropic API for coach reviews.
type CoachClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	counter   *utils.TokenCounter
	logger    *logx.Logger
}

// NewCoachClient builds a client with an explicit API key.
func NewCoachClient(apiKey, model string, maxTokens int) *CoachClient {
	// Counter errors fall back to character-based estimation inside
	// CountTokens, so a nil counter is fine.
	counter, _ := utils.NewTokenCounter(model)
	return &CoachClient{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
		counter:   counter,
		logger:    logx.NewLogger("coach"),
	}
}

// NewCoachClientFromEnv reads ANTHROPIC_API_KEY. Nil when the key is unset,
// which callers treat as "coach review disabled".
func NewCoachClientFromEnv(model string, maxTokens int) *CoachClient {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil
	}
	return NewCoachClient(apiKey, model, maxTokens)
}

// Review sends the assembled architecture context and task prompt to Claude
// and returns the review text.
func (c *CoachClient) Review(ctx context.Context, archContext, taskPrompt string) (string, error) {
	system := coachSystemPrompt
	if archContext != "" {
		system = system + "\n\n" + archContext
	}
	if c.counter != nil {
		c.logger.Debug("coach prompt size: %d tokens", c.counter.CountTokens(system+taskPrompt))
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(taskPrompt)),
		},
		System: []anthropic.TextBlockParam{{
			Text: system,
			Type: "text",
		}},
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("coach review request: %w", err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return "", fmt.Errorf("coach review: empty response from API")
	}

	var b strings.Builder
	for i := range resp.Content {
		block := &resp.Content[i]
		if block.Type == "text" {
			textBlock := block.AsText()
			b.WriteString(textBlock.Text)
		}
	}

	c.logger.Debug("coach review complete, stop reason %s", resp.StopReason)
	return b.String(), nil
}
