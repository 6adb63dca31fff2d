package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Config for the OpenAI completion client.
type Config struct {
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0..2
	Timeout     time.Duration // http client timeout
	RPS         float64       // client-side request rate; <= 0 disables the limiter
}

// Client implements llm.Completer over chat completions.
type Client struct {
	cfg     Config
	api     *goopenai.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	oc := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &loggingTransport{base: http.DefaultTransport, log: logger},
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &Client{
		cfg:     cfg,
		api:     goopenai.NewClientWithConfig(oc),
		limiter: rate.NewLimiter(limit, 1),
		log:     logger,
	}
}
