package veo

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// GenaiService talks to Veo through the Gemini API SDK. A client bound to the
// given credential is built for each call and discarded afterwards.
type GenaiService struct {
	// HTTPClient is optional; nil lets the SDK build its own.
	HTTPClient *http.Client
	// BaseURL overrides the API endpoint. Empty means the SDK default.
	BaseURL string
}

var _ Service = (*GenaiService)(nil)

func (s *GenaiService) client(ctx context.Context, credential string) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     credential,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.HTTPClient,
	}
	if s.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: s.BaseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return c, nil
}

func (s *GenaiService) Submit(ctx context.Context, credential string, params SubmitParams) (*Operation, error) {
	c, err := s.client(ctx, credential)
	if err != nil {
		return nil, err
	}
	op, err := c.Models.GenerateVideos(ctx, params.Model, params.Prompt,
		&genai.Image{
			ImageBytes: params.Image,
			MIMEType:   params.MIMEType,
		},
		&genai.GenerateVideosConfig{
			NumberOfVideos: int32(params.NumberOfVideos),
			Resolution:     string(params.Resolution),
			AspectRatio:    string(params.AspectRatio),
		})
	if err != nil {
		return nil, err
	}
	return fromGenaiOperation(op), nil
}

func (s *GenaiService) Poll(ctx context.Context, credential string, op *Operation) (*Operation, error) {
	if op == nil || op.Name == "" {
		return nil, fmt.Errorf("operation name is empty")
	}
	c, err := s.client(ctx, credential)
	if err != nil {
		return nil, err
	}
	next, err := c.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: op.Name}, nil)
	if err != nil {
		return nil, err
	}
	return fromGenaiOperation(next), nil
}

func fromGenaiOperation(op *genai.GenerateVideosOperation) *Operation {
	if op == nil {
		return nil
	}
	out := &Operation{
		Name:         op.Name,
		Done:         op.Done,
		ErrorMessage: operationErrorMessage(op.Error),
	}
	if op.Response != nil {
		for _, v := range op.Response.GeneratedVideos {
			if v == nil || v.Video == nil {
				continue
			}
			out.Videos = append(out.Videos, GeneratedVideo{
				URI:      v.Video.URI,
				MIMEType: v.Video.MIMEType,
			})
		}
	}
	return out
}

func operationErrorMessage(e map[string]any) string {
	if len(e) == 0 {
		return ""
	}
	msg, _ := e["message"].(string)
	code, hasCode := e["code"]
	switch {
	case msg != "" && hasCode:
		return fmt.Sprintf("%s (code %v)", msg, code)
	case msg != "":
		return msg
	default:
		return fmt.Sprint(e)
	}
}
