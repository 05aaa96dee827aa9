package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/draftforge/draftforge/internal/config"
	"go.uber.org/zap"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	http         *http.Client
	log          *zap.Logger
	baseURL      string
	apiKey       string
	defaultModel string
	maxTokens    int
}

func NewClient(cfg config.Config, log *zap.Logger) Generator {
	timeout := time.Duration(cfg.Generator.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:         &http.Client{Timeout: timeout},
		log:          log.Named("generator.client"),
		baseURL:      strings.TrimRight(cfg.Generator.BaseURL, "/"),
		apiKey:       cfg.Generator.APIKey,
		defaultModel: cfg.Generator.DefaultModel,
		maxTokens:    cfg.Generator.MaxTokens,
	}
}

func (c *Client) Produce(ctx context.Context, prompt, modelID string) (*Result, error) {
	if modelID == "" {
		modelID = c.defaultModel
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: modelID,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		// Propagate cancellation so callers can tell an aborted request
		// apart from an upstream fault.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Warn("upstream completion failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model_id", modelID),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("%w: status %d", ErrUpstreamFailed, resp.StatusCode)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailed, err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrUpstreamFailed)
	}

	result := &Result{
		Output:  completion.Choices[0].Message.Content,
		ModelID: modelID,
	}
	if completion.Usage != nil {
		result.TokensUsed = completion.Usage.CompletionTokens
	}
	return result, nil
}
