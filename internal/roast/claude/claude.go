package claude

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/roast"
)

type ClaudeRoaster struct {
	client    *anthropic.Client
	model     string
	maxTokens int
}

// NewClaudeRoaster builds a roaster on the Anthropic Messages API. opts are
// passed through to the SDK client (base URL, HTTP client).
func NewClaudeRoaster(apiKey, model string, maxTokens int, opts ...anthropic.ClientOption) *ClaudeRoaster {
	if maxTokens <= 0 {
		maxTokens = roast.DefaultMaxOutputTokens
	}
	return &ClaudeRoaster{
		client:    anthropic.NewClient(apiKey, opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (c *ClaudeRoaster) Name() string  { return "claude" }
func (c *ClaudeRoaster) Model() string { return c.model }

// buildRequest constructs the Messages request for a vision roast.
func (c *ClaudeRoaster) buildRequest(img *domain.SelectedImage) anthropic.MessagesRequest {
	return anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    roast.Prompt,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(img.MimeType),
					base64.StdEncoding.EncodeToString(img.Data),
				)),
			},
		}},
	}
}

func (c *ClaudeRoaster) Roast(ctx context.Context, img *domain.SelectedImage) (*roast.Response, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("no image to send")
	}

	resp, err := c.client.CreateMessages(ctx, c.buildRequest(img))
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("claude returned %s: %w", apiErr.Type, err)
		}
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			return roast.NewResponse(blk.GetText()), nil
		}
	}
	return nil, fmt.Errorf("claude returned no text content")
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
