package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const smoothInstruction = "You rewrite short assistant replies for a business chat widget. " +
	"Keep the meaning, every fact, every time, and every email exactly as given. " +
	"Do not add offers, questions, links, or emoji. Return only the rewritten reply, " +
	"at most as long as the original plus a few words."

// GeminiSmoother rewrites deterministic reply text into warmer copy.
// Only KindText replies pass through it; slot lists, booking
// confirmations, and action payloads stay verbatim.
type GeminiSmoother struct {
	client  *genai.Client
	modelID string
}

// NewGeminiSmoother builds a smoother against the Gemini API.
func NewGeminiSmoother(ctx context.Context, apiKey, modelID string) (*GeminiSmoother, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chat: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("chat: failed to create gemini client: %w", err)
	}
	return &GeminiSmoother{client: client, modelID: modelID}, nil
}

// Smooth returns a rewritten form of text, or an error the caller treats
// as "use the original".
func (s *GeminiSmoother) Smooth(ctx context.Context, text string) (string, error) {
	model := s.client.GenerativeModel(s.modelID)
	model.SetTemperature(0.4)
	model.SetMaxOutputTokens(256)
	model.SystemInstruction = genai.NewUserContent(genai.Text(smoothInstruction))

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("chat: tone rewrite failed: %w", err)
	}
	out := collectText(resp)
	if strings.TrimSpace(out) == "" {
		return "", errors.New("chat: tone rewrite returned no text")
	}
	return strings.TrimSpace(out), nil
}

// Close releases the underlying API client.
func (s *GeminiSmoother) Close() error {
	return s.client.Close()
}

func collectText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}
