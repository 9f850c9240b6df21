package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/portfolio-labs/extraction-pipeline/internal/common"
	"github.com/portfolio-labs/extraction-pipeline/internal/router"
)

// ClientConfig holds the OpenAI-backed oracle configuration. The two tiers
// are two model names on one client.
type ClientConfig struct {
	APIKey        string
	BaseURL       string // optional override for compatible endpoints
	FastModel     string
	AccurateModel string
}

// Client implements Extractor against the OpenAI chat completions API.
type Client struct {
	cfg    ClientConfig
	api    *openai.Client
	schema string
	logger *slog.Logger
}

// NewClient builds the oracle client. Model names default to the tuned
// fast/accurate pair when empty.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FastModel == "" {
		cfg.FastModel = "gpt-4o-mini"
	}
	if cfg.AccurateModel == "" {
		cfg.AccurateModel = "gpt-4o"
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	return &Client{
		cfg:    cfg,
		api:    openai.NewClientWithConfig(oc),
		schema: mustJSON(BuildItemListSchema()),
		logger: logger,
	}
}

// ModelFor maps a routing tier to the configured model name.
func (c *Client) ModelFor(tier router.Tier) string {
	if tier == router.TierAccurate {
		return c.cfg.AccurateModel
	}
	return c.cfg.FastModel
}

// Extract sends one chunk to the oracle and returns the raw model output.
// The ctx deadline is the only timeout; callers own fallback behavior.
func (c *Client) Extract(ctx context.Context, req Request) (string, error) {
	// Reuse the caller's request ID so retries and fallbacks for the same
	// chunk share one correlation key in the logs.
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	model := c.ModelFor(req.Tier)
	start := time.Now()

	c.logger.Info("oracle.extract.start",
		"req_id", rid,
		"model", model,
		"template", string(req.Template),
		"text_len", len(req.Text),
	)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
			{Role: openai.ChatMessageRoleSystem, Content: "JSON Schema:\n" + c.schema},
		},
	})
	if err != nil {
		c.logger.Error("oracle.extract.error",
			"req_id", rid, "model", model, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("oracle call: %w", err)
	}
	if len(resp.Choices) == 0 {
		c.logger.Error("oracle.extract.no_choices",
			"req_id", rid, "model", model,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("oracle call: no choices in response")
	}

	content := resp.Choices[0].Message.Content
	c.logger.Info("oracle.extract.ok",
		"req_id", rid,
		"model", model,
		"bytes", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
