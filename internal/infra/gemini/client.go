// Package gemini implements the generation client on the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/happyBayes/goods-gallery/internal/generation"
)

// Config holds Gemini client settings.
type Config struct {
	APIKey string
	Model  string
}

// Client calls the Gemini image generation API. It implements
// generation.Client; failures are returned raw for the classifier.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Client{client: client, model: cfg.Model}, nil
}

// Generate sends the enhanced prompt plus the reference image and returns
// the first image part of the response.
func (c *Client) Generate(ctx context.Context, req generation.ClientRequest) (*generation.ClientResult, error) {
	parts := []*genai.Part{{Text: req.Prompt}}
	if len(req.ReferenceImage) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				MIMEType: req.ReferenceMime,
				Data:     req.ReferenceImage,
			},
		})
	}

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if req.AspectRatio != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: req.AspectRatio}
	}
	if req.ImageCount > 1 {
		cfg.CandidateCount = int32(req.ImageCount)
	}

	slog.Debug("Calling Gemini", "model", c.model, "parts", len(parts))

	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: parts}}, cfg)
	if err != nil {
		return nil, err
	}

	return extractImage(resp)
}

// extractImage picks the first inline image out of the response.
func extractImage(resp *genai.GenerateContentResponse) (*generation.ClientResult, error) {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return &generation.ClientResult{
					ImageData: part.InlineData.Data,
					MimeType:  part.InlineData.MIMEType,
				}, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini response contained no image data")
}
