package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/oukeidos/photomotion/internal/apperrors"
	"github.com/oukeidos/photomotion/internal/httpclient"
	"google.golang.org/api/option"
)

const suggestInstruction = `You write prompts for an image-to-video model.
Look at the photo and reply with ONE sentence (max 30 words) describing natural, subtle motion that would bring this exact scene to life.
Describe only movement and camera behaviour. Do not describe objects that are not in the photo. No quotes, no preamble.`

// SuggestRequest is a photo plus an optional user hint.
type SuggestRequest struct {
	Image    []byte
	MIMEType string
	// Hint steers the suggestion, e.g. "slow dolly in".
	Hint string
}

// Suggester proposes a motion prompt for a photo.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestRequest) (string, error)
}

// Client handles communication with the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

var _ Suggester = (*Client)(nil)

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string, modelName string, opts ...option.ClientOption) (*Client, error) {
	// option.WithHTTPClient drops the SDK's API key header injection; timeouts are
	// enforced through the context in Suggest instead.
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(suggestInstruction)},
	}
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(128)

	return &Client{
		client: client,
		model:  model,
	}, nil
}

// Close closes the underlying genai client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Suggest returns a one-sentence motion prompt for the photo.
func (c *Client) Suggest(ctx context.Context, req SuggestRequest) (string, error) {
	if len(req.Image) == 0 {
		return "", apperrors.Validation(fmt.Errorf("image is required"))
	}
	if req.MIMEType == "" {
		return "", apperrors.Validation(fmt.Errorf("image MIME type is required"))
	}
	ctx, cancel := context.WithTimeout(ctx, httpclient.DefaultTimeout)
	defer cancel()

	parts := []genai.Part{
		genai.Blob{MIMEType: req.MIMEType, Data: req.Image},
		genai.Text(userPrompt(req.Hint)),
	}
	resp, err := c.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	text, err := extractResponseText(resp)
	if err != nil {
		return "", apperrors.Validation(err)
	}
	return cleanSuggestion(text), nil
}

func userPrompt(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "Suggest the motion prompt."
	}
	return "Suggest the motion prompt. The user wants: " + hint
}

// cleanSuggestion keeps the first non-empty line without wrapping quotes.
func cleanSuggestion(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return strings.Trim(line, "\"'“”")
	}
	return ""
}

func extractResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("no response received from Gemini")
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates returned from Gemini")
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
			continue
		}
		var combined string
		for _, part := range candidate.Content.Parts {
			text, ok := part.(genai.Text)
			if !ok {
				continue
			}
			combined += string(text)
		}
		if strings.TrimSpace(combined) != "" {
			return combined, nil
		}
	}
	return "", fmt.Errorf("no text parts found in Gemini response")
}
