package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
)

// Options configures an OpenAI-compatible chat completions client. Groq is
// reached through the same API by pointing BaseURL at its /openai/v1 root.
type Options struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements llm.Client using the Chat Completions API.
type Client struct {
	sdk      oai.Client
	model    string
	provider string
}

// NewClient constructs a new chat completions client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for %s", providerName(opts.Provider))
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("API key is required for %s", providerName(opts.Provider))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		reqOpts = append(reqOpts, option.WithBaseURL(base))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(opts.HTTPClient))
	}

	return &Client{
		sdk:      oai.NewClient(reqOpts...),
		model:    opts.Model,
		provider: providerName(opts.Provider),
	}, nil
}

// Complete sends one chat completion and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%s: request has no messages", c.provider)
	}
	params := oai.ChatCompletionNewParams{
		Model:    oai.ChatModel(c.model),
		Messages: toMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = oai.Float(*req.Temperature)
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s response missing choices", c.provider)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%s: %w", c.provider, llm.ErrEmptyCompletion)
	}
	return content, nil
}

func (c *Client) wrapError(err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s: http status %d: %w", c.provider, apiErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request timeout: %w", c.provider, err)
	}
	return fmt.Errorf("%s: %w", c.provider, err)
}

func toMessages(in []llm.Message) []oai.ChatCompletionMessageParamUnion {
	out := make([]oai.ChatCompletionMessageParamUnion, 0, len(in))
	for _, m := range in {
		switch m.Role {
		case policy.RoleSystem:
			out = append(out, oai.SystemMessage(m.Content))
		case policy.RoleAssistant:
			out = append(out, oai.AssistantMessage(m.Content))
		default:
			out = append(out, oai.UserMessage(m.Content))
		}
	}
	return out
}

func providerName(p string) string {
	if strings.TrimSpace(p) == "" {
		return "openai"
	}
	return p
}
