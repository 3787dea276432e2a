package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/roast"
)

// generator is the subset of *genai.GenerativeModel the roaster calls.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type GeminiRoaster struct {
	client *genai.Client
	gen    generator
	model  string
}

// NewGeminiRoaster opens a Gemini client and configures the model with the
// roast instruction and output cap. Close releases the client.
func NewGeminiRoaster(ctx context.Context, apiKey, model string, maxTokens int, opts ...option.ClientOption) (*GeminiRoaster, error) {
	if maxTokens <= 0 {
		maxTokens = roast.DefaultMaxOutputTokens
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	m.SetMaxOutputTokens(int32(maxTokens))
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(roast.Prompt)},
	}

	return &GeminiRoaster{client: client, gen: m, model: model}, nil
}

func (g *GeminiRoaster) Name() string  { return "gemini" }
func (g *GeminiRoaster) Model() string { return g.model }

func (g *GeminiRoaster) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiRoaster) Roast(ctx context.Context, img *domain.SelectedImage) (*roast.Response, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("no image to send")
	}

	resp, err := g.gen.GenerateContent(ctx, &genai.Blob{MIMEType: img.MimeType, Data: img.Data})
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	return roast.NewResponse(firstText(resp.Candidates[0])), nil
}

// firstText joins the text parts of one candidate.
func firstText(cand *genai.Candidate) string {
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
