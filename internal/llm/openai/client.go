package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are an invoicing assistant. Always answer with a single JSON object and nothing else."

// Complete sends prompt as a JSON-mode chat completion and returns the message text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		c.log.Error("llm.complete.error",
			"model", c.cfg.Model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.log.Error("llm.complete.no_choices", "model", c.cfg.Model, "id", resp.ID)
		return "", fmt.Errorf("no choices in openai response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	c.log.Info("llm.complete.ok",
		"model", c.cfg.Model,
		"id", resp.ID,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
