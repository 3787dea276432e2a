package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/roast"
)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatOptions struct {
	NumPredict int `json:"num_predict"`
}

type OllamaRoaster struct {
	host      string
	model     string
	maxTokens int
	client    *http.Client
}

func NewOllamaRoaster(host, model string, maxTokens int) *OllamaRoaster {
	if maxTokens <= 0 {
		maxTokens = roast.DefaultMaxOutputTokens
	}
	return &OllamaRoaster{
		host:      strings.TrimRight(host, "/"),
		model:     model,
		maxTokens: maxTokens,
		client:    &http.Client{},
	}
}

func (a *OllamaRoaster) Name() string  { return "ollama" }
func (a *OllamaRoaster) Model() string { return a.model }

func (a *OllamaRoaster) Roast(ctx context.Context, img *domain.SelectedImage) (*roast.Response, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("no image to send")
	}

	reqBody := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: roast.Prompt},
			{Role: "user", Content: "Roast this email.", Images: []string{base64.StdEncoding.EncodeToString(img.Data)}},
		},
		Stream:  false,
		Options: chatOptions{NumPredict: a.maxTokens},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}

	var respBody struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return roast.NewResponse(respBody.Message.Content), nil
}
