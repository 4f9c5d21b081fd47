// package drafter asks a text-generation provider for quote drafts.
//
// Replies are parsed strictly. A reply that is not the expected JSON object fails with [shared.ErrMalformedResponse]
// and nothing is created; callers decide whether to retry.
package drafter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/focusync/internal/models"
	"github.com/desertthunder/focusync/internal/shared"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5"

// Completer returns a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to [Completer].
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

// AnthropicCompleter completes prompts with the Anthropic Messages API.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicCompleter creates a completer from drafter settings. Extra request options, such as a base URL for
// tests, are applied after the API key.
func NewAnthropicCompleter(cfg shared.DrafterConfig, opts ...option.RequestOption) (*AnthropicCompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: drafter api_key is required", shared.ErrMissingConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}

	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	return &AnthropicCompleter{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	})
	if err != nil {
		return "", fmt.Errorf("%w: completion failed: %w", shared.ErrRemoteUnavailable, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

// Draft is a proposed quote.
type Draft struct {
	Text     string `json:"text"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

// Quote converts the draft into an unsaved quote.
func (d Draft) Quote() models.Quote {
	return models.NewQuote(d.Text, d.Author, d.Category)
}

// QuoteDrafter produces quote drafts from a [Completer].
type QuoteDrafter struct {
	completer Completer
	logger    *log.Logger
}

func NewQuoteDrafter(c Completer, logger *log.Logger) *QuoteDrafter {
	return &QuoteDrafter{completer: c, logger: shared.WithLogger(logger, "component", "drafter")}
}

// Prompt builds the request for a draft about topic.
func Prompt(topic string) string {
	var b strings.Builder
	b.WriteString("Suggest one short, real quote suitable for a focus session")
	if topic = strings.TrimSpace(topic); topic != "" {
		fmt.Fprintf(&b, " about %s", topic)
	}
	b.WriteString(`. Reply with only a JSON object of the form {"text": "...", "author": "...", "category": "..."}.`)
	return b.String()
}

// Draft asks for a quote about topic.
func (d *QuoteDrafter) Draft(ctx context.Context, topic string) (Draft, error) {
	reply, err := d.completer.Complete(ctx, Prompt(topic))
	if err != nil {
		return Draft{}, err
	}

	draft, err := ParseDraft(reply)
	if err != nil {
		d.logger.Warn("discarded malformed draft", "error", err)
		return Draft{}, err
	}
	return draft, nil
}

// ParseDraft extracts a draft from a reply. A JSON object wrapped in prose or a code fence is accepted; anything
// else, or a draft without text, is malformed.
func ParseDraft(reply string) (Draft, error) {
	start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return Draft{}, fmt.Errorf("%w: no JSON object in reply", shared.ErrMalformedResponse)
	}

	var draft Draft
	if err := json.Unmarshal([]byte(reply[start:end+1]), &draft); err != nil {
		return Draft{}, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	draft.Text = strings.TrimSpace(draft.Text)
	draft.Author = strings.TrimSpace(draft.Author)
	draft.Category = strings.TrimSpace(draft.Category)
	if draft.Text == "" {
		return Draft{}, fmt.Errorf("%w: draft has no text", shared.ErrMalformedResponse)
	}
	return draft, nil
}
