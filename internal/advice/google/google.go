// Package google adapts the Gemini generative-language API to the
// advice port.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"langkah/internal/advice"
	"langkah/internal/core"

	genlang "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

const DefaultModel = "gemini-3-pro-preview"

type Client struct {
	svc   *genlang.Service
	model string
}

var _ advice.Adviser = (*Client)(nil)

// New builds a Gemini client authenticated with an API key. The model
// name is the bare model id, e.g. "gemini-3-pro-preview".
func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	svc, err := genlang.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("generative language service: %w", err)
	}
	return &Client{svc: svc, model: model}, nil
}

func (c *Client) Advise(ctx context.Context, summary core.FinancialSummary, recent []core.Transaction) (string, error) {
	prompt := advice.BuildPrompt(summary, recent)

	req := &genlang.GenerateContentRequest{
		Contents: []*genlang.Content{{
			Role:  "user",
			Parts: []*genlang.Part{{Text: prompt}},
		}},
		GenerationConfig: &genlang.GenerationConfig{
			Temperature: 0.7,
			TopP:        0.8,
			TopK:        40,
		},
	}

	resp, err := c.svc.Models.GenerateContent("models/"+c.model, req).Context(ctx).Do()
	if err != nil {
		slog.ErrorContext(ctx, "Gemini request failed", "model", c.model, "error", err)
		return "", fmt.Errorf("%w: %v", advice.ErrUnavailable, err)
	}

	text := extractText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", advice.ErrUnavailable)
	}
	return text, nil
}

func extractText(resp *genlang.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		// The first candidate is the answer; the rest are alternates.
		break
	}
	return strings.TrimSpace(b.String())
}
