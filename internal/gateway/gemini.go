package gateway

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/genai"
)

// Generator produces text for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", classifyGemini(err)
	}
	return resp.Text(), nil
}

// classifyGemini marks server-side and transport failures retryable.
// Quota exhaustion and other client errors are permanent.
func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiError(apiErr, err)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiError(*apiErrPtr, err)
	}

	return &Error{Retryable: isTransient(err), Err: err}
}

func apiError(e genai.APIError, err error) *Error {
	if e.Code == http.StatusTooManyRequests || e.Status == "RESOURCE_EXHAUSTED" {
		return &Error{Throttled: true, Err: err}
	}
	return &Error{Retryable: e.Code >= 500 || e.Status == "UNAVAILABLE", Err: err}
}

// disabled stands in when no API key is configured.
type disabled struct{}

func Disabled() Generator {
	return disabled{}
}

func (disabled) Generate(context.Context, string) (string, error) {
	return "", &Error{Retryable: false, Err: ErrNotConfigured}
}
