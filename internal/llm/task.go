package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/invoice-drafter/internal/common"
)

// RetrySuffix is appended to the prompt for the single retry.
const RetrySuffix = "\n\nYour previous answer could not be used. Return ONLY a single JSON object. No prose, no code fences."

// Task is one JSON-producing request to the completion service.
type Task[T any] struct {
	Name   string
	Prompt string
	Schema map[string]any
	// Decode turns the schema-valid object into the caller's type. A decode
	// error counts as unusable output and triggers the retry.
	Decode func(map[string]any) (T, error)
}

// RunJSONTask sends task.Prompt, extracts and validates the JSON object in the
// response and decodes it. Unusable output is retried once with RetrySuffix;
// a second failure is a ModelOutputError. Transport errors are not retried.
func RunJSONTask[T any](ctx context.Context, c Completer, task Task[T], logger *slog.Logger) (T, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var zero T

	schema, err := CompileSchema(task.Schema)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", task.Name, err)
	}

	prompt := task.Prompt
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		start := time.Now()
		logger.Info("llm.task.start",
			"task", task.Name,
			"req_id", rid,
			"attempt", attempt,
			"prompt_len", len(prompt),
		)

		text, err := c.Complete(ctx, prompt)
		if err != nil {
			logger.Error("llm.task.complete_error",
				"task", task.Name, "req_id", rid, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, common.NewTimeoutError(task.Name+": completion service timed out", err)
			}
			if errors.Is(err, context.Canceled) {
				return zero, err
			}
			return zero, common.NewUpstreamError(task.Name+": completion service request failed", err)
		}

		out, err := decodeResponse(text, schema, task.Decode, logger)
		if err == nil {
			logger.Info("llm.task.ok",
				"task", task.Name, "req_id", rid, "attempt", attempt,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return out, nil
		}

		lastErr = err
		logger.Warn("llm.task.unusable_output",
			"task", task.Name, "req_id", rid, "attempt", attempt, "error", err,
			"response_len", len(text),
		)
		prompt = task.Prompt + RetrySuffix
	}

	return zero, common.NewModelOutputError(
		fmt.Sprintf("%s: the completion service did not return a usable JSON object", task.Name),
		lastErr,
	)
}

func decodeResponse[T any](text string, schema *jsonschema.Schema, decode func(map[string]any) (T, error), logger *slog.Logger) (T, error) {
	var zero T
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return zero, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("decode: %w", err)
	}
	cleaned, dropped := DropEmpty(v)
	if len(dropped) > 0 {
		logger.Debug("llm.task.sanitize", "dropped", dropped)
	}
	if err := schema.Validate(cleaned); err != nil {
		return zero, fmt.Errorf("json does not match schema: %w", err)
	}
	obj, ok := cleaned.(map[string]any)
	if !ok {
		return zero, errNoJSONObject
	}
	return decode(obj)
}
