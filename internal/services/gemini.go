package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

const geminiTranscribeInstruction = "Transcribe this audio verbatim. Return only the transcript text, with no commentary."

type geminiService struct {
	apiKey    string
	modelName string
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiChatFactory returns a factory building a Gemini chat client per call.
func NewGeminiChatFactory(modelName string) ChatFactory {
	return func(apiKey string) (ChatCompleter, error) {
		return &geminiService{apiKey: apiKey, modelName: modelName}, nil
	}
}

// NewGeminiTranscriberFactory returns a factory that transcribes through Gemini's audio input.
func NewGeminiTranscriberFactory(modelName string) TranscriberFactory {
	return func(apiKey string) (Transcriber, error) {
		return &geminiService{apiKey: apiKey, modelName: modelName}, nil
	}
}

func (g *geminiService) Complete(ctx context.Context, system, user string) (string, error) {
	client, err := newGeminiClient(ctx, g.apiKey)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, g.modelName, genai.Text(user), config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", normalizeGeminiError(err))
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}

func (g *geminiService) Transcribe(ctx context.Context, wavPath string) (string, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("failed to read audio: %w", err)
	}

	client, err := newGeminiClient(ctx, g.apiKey)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(geminiTranscribeInstruction),
			genai.NewPartFromBytes(data, "audio/wav"),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, g.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	return strings.TrimSpace(resp.Text()), nil
}

// normalizeGeminiError exposes the HTTP status and the RPC status name
// (PERMISSION_DENIED, RESOURCE_EXHAUSTED, ...) of a Gemini API failure.
func normalizeGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.Code, Code: apiErr.Status, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &ProviderError{StatusCode: apiErrPtr.Code, Code: apiErrPtr.Status, Err: err}
	}
	return err
}
