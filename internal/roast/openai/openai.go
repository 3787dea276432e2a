package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/roast"
)

const defaultBaseURL = "https://api.openai.com/v1"

// request types mirror the Chat Completions API structure.
type request struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type OpenAIRoaster struct {
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
	baseURL   string
}

// NewOpenAIRoaster builds a roaster for the Chat Completions API. An empty
// baseURL selects the public endpoint. The HTTP client has no timeout.
func NewOpenAIRoaster(apiKey, model, baseURL string, maxTokens int) *OpenAIRoaster {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if maxTokens <= 0 {
		maxTokens = roast.DefaultMaxOutputTokens
	}
	return &OpenAIRoaster{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{},
		baseURL:   strings.TrimRight(baseURL, "/"),
	}
}

func (o *OpenAIRoaster) Name() string  { return "openai" }
func (o *OpenAIRoaster) Model() string { return o.model }

// buildMessages puts the instruction in a system message and the image,
// as its data-URL, in a user message.
func buildMessages(dataURL string) []message {
	return []message{
		{Role: "system", Content: roast.Prompt},
		{
			Role: "user",
			Content: []contentPart{{
				Type:     "image_url",
				ImageURL: &imageURL{URL: dataURL},
			}},
		},
	}
}

func (o *OpenAIRoaster) Roast(ctx context.Context, img *domain.SelectedImage) (*roast.Response, error) {
	if img == nil || img.DataURL == "" {
		return nil, fmt.Errorf("no image to send")
	}

	payload, err := json.Marshal(request{
		Model:     o.model,
		Messages:  buildMessages(img.DataURL),
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call openai: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close openai response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody response
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	var text string
	if c := respBody.Choices[0].Message.Content; c != nil {
		text = *c
	}
	return roast.NewResponse(text), nil
}
