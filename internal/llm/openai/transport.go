package openai

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// loggingTransport logs each completion HTTP exchange with a request id.
type loggingTransport struct {
	base http.RoundTripper
	log  *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqID := uuid.New().String()
	start := time.Now()

	t.log.Info("llm.http.request",
		"req_id", reqID,
		"url", req.URL.String(),
		"content_length", req.ContentLength,
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.log.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	t.log.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}
