package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
)

const defaultMaxTokens = 4096

// openingUserTurn precedes transcripts that begin with an assistant message,
// since the Messages API requires the first turn to come from the user.
const openingUserTurn = "Hi"

// Options configures the Messages API client.
type Options struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int64
}

// Client implements llm.Client on the Anthropic Messages API.
type Client struct {
	sdk       sdk.Client
	model     string
	maxTokens int64
}

// NewClient constructs a Messages API client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required for anthropic")
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
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
		reqOpts = append(reqOpts, option.WithBaseURL(strings.TrimRight(base, "/")))
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{
		sdk:       sdk.NewClient(reqOpts...),
		model:     opts.Model,
		maxTokens: maxTokens,
	}, nil
}

// Complete sends the request and concatenates the text blocks of the reply.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	system, turns := splitSystem(req.Messages)
	if len(turns) == 0 {
		return "", fmt.Errorf("anthropic: request has no user or assistant messages")
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  turns,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("anthropic: http status %d: %w", apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := b.String()
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("anthropic: %w", llm.ErrEmptyCompletion)
	}
	return out, nil
}

func splitSystem(in []llm.Message) (string, []sdk.MessageParam) {
	var system []string
	turns := make([]sdk.MessageParam, 0, len(in))
	for _, m := range in {
		switch m.Role {
		case policy.RoleSystem:
			system = append(system, m.Content)
		case policy.RoleAssistant:
			if len(turns) == 0 {
				turns = append(turns, sdk.NewUserMessage(sdk.NewTextBlock(openingUserTurn)))
			}
			turns = append(turns, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			turns = append(turns, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}
	return strings.Join(system, "\n\n"), turns
}
