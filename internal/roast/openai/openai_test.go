package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/roastmail/internal/domain"
	"github.com/vbonduro/roastmail/internal/roast"
)

var testImage = &domain.SelectedImage{
	FileName: "email.png",
	MimeType: "image/png",
	Data:     []byte{0x89, 0x50},
	DataURL:  "data:image/png;base64,iVA=",
}

func TestOpenAIRoast(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		} `json:"messages"`
	}
	var auth, path string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)

		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"role": "assistant", "content": "score: 7 <br> oneLine: Bold use of Comic Sans <br> roast: Fire drill energy."}},
				{"message": map[string]interface{}{"role": "assistant", "content": "score: 1"}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
	defer server.Close()

	roaster := NewOpenAIRoaster("sk-test", "gpt-4o", server.URL, 1000)

	result, err := roaster.Roast(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, "7", result.Result.Score)
	assert.Equal(t, "Bold use of Comic Sans", result.Result.OneLine)
	assert.Equal(t, "Fire drill energy.", result.Result.Roast)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "/chat/completions", path)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, 1000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)

	var system string
	require.NoError(t, json.Unmarshal(got.Messages[0].Content, &system))
	assert.Equal(t, roast.Prompt, system)

	assert.Equal(t, "user", got.Messages[1].Role)
	var parts []contentPart
	require.NoError(t, json.Unmarshal(got.Messages[1].Content, &parts))
	require.Len(t, parts, 1)
	assert.Equal(t, "image_url", parts[0].Type)
	assert.Equal(t, testImage.DataURL, parts[0].ImageURL.URL)
}

func TestOpenAIRoastAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Incorrect API key provided"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	roaster := NewOpenAIRoaster("", "gpt-4o", server.URL, 0)

	_, err := roaster.Roast(context.Background(), testImage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestOpenAIRoastMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": "nope"`))
	}))
	defer server.Close()

	roaster := NewOpenAIRoaster("sk-test", "gpt-4o", server.URL, 0)

	_, err := roaster.Roast(context.Background(), testImage)
	assert.Error(t, err)
}

func TestOpenAIRoastNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	roaster := NewOpenAIRoaster("sk-test", "gpt-4o", server.URL, 0)

	_, err := roaster.Roast(context.Background(), testImage)
	assert.Error(t, err)
}

func TestOpenAIRoastNetworkError(t *testing.T) {
	roaster := NewOpenAIRoaster("sk-test", "gpt-4o", "http://localhost:99999", 0)

	_, err := roaster.Roast(context.Background(), testImage)
	assert.Error(t, err)
}

func TestOpenAIRoastNoImage(t *testing.T) {
	roaster := NewOpenAIRoaster("sk-test", "gpt-4o", "", 0)

	_, err := roaster.Roast(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, roast.DefaultMaxOutputTokens, roaster.maxTokens)
	assert.Equal(t, defaultBaseURL, roaster.baseURL)
}
