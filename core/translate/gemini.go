package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// Gemini translates with a Google generative model. The client is created
// on first use.
type Gemini struct {
	APIKey string
	Model  string

	mu         sync.Mutex
	client     *genai.Client
	clientOpts []option.ClientOption
}

// NewGemini creates a Gemini provider. Extra client options are appended
// after the API key.
func NewGemini(apiKey, model string, opts ...option.ClientOption) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{APIKey: apiKey, Model: model, clientOpts: opts}
}

func (g *Gemini) getClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	if g.APIKey == "" {
		return nil, errors.New("gemini: no API key configured")
	}
	opts := append([]option.ClientOption{option.WithAPIKey(g.APIKey)}, g.clientOpts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	g.client = client
	return client, nil
}

// Translate asks the model for a translation of text.
func (g *Gemini) Translate(ctx context.Context, text, source, target string) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}
	model := client.GenerativeModel(g.Model)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt(text, source, target)))
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	out := responseText(resp)
	if out == "" {
		return "", errors.New("gemini: empty response")
	}
	return out, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

func prompt(text, source, target string) string {
	return fmt.Sprintf("Translate the following text from %s to %s. "+
		"Keep placeholders like ___CODE_BLOCK_0___, URLs and Markdown unchanged. "+
		"Reply with the translation only.\n\n%s", source, target, text)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return strings.TrimSpace(b.String())
}
