package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiInvoker invokes a model through Google's Gemini API.
type GeminiInvoker struct {
	client  *genai.Client
	modelID string
}

// NewGeminiInvoker creates a Gemini-backed invoker.
func NewGeminiInvoker(ctx context.Context, apiKey, modelID string) (*GeminiInvoker, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("inference: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("inference: failed to create gemini client: %w", err)
	}
	return &GeminiInvoker{client: client, modelID: modelID}, nil
}

// Invoke sends the exchange as a single-turn prompt with the system
// instructions attached as the model's system instruction.
func (g *GeminiInvoker) Invoke(ctx context.Context, userInput, systemInstructions string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	if strings.TrimSpace(systemInstructions) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstructions))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(userInput))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("inference: gemini returned no text content")
	}
	return text, nil
}

// Close releases the underlying API client.
func (g *GeminiInvoker) Close() error {
	return g.client.Close()
}
