package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
	einoclient "github.com/meguminnnnnnnnn/go-openai"
	goopenai "github.com/sashabaranov/go-openai"
)

type OpenAIOptions struct {
	BaseURL         string
	ChatModel       string
	TranscribeModel string
}

type openAIChat struct {
	apiKey string
	opts   OpenAIOptions
}

// NewOpenAIChatFactory returns a factory building an OpenAI chat client per call.
func NewOpenAIChatFactory(opts OpenAIOptions) ChatFactory {
	return func(apiKey string) (ChatCompleter, error) {
		return &openAIChat{apiKey: apiKey, opts: opts}, nil
	}
}

func (o *openAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	chatModel, err := einoopenai.NewChatModel(ctx, &einoopenai.ChatModelConfig{
		APIKey:  o.apiKey,
		BaseURL: o.opts.BaseURL,
		Model:   o.opts.ChatModel,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat model: %w", err)
	}

	resp, err := chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", normalizeOpenAIError(err))
	}
	if resp == nil {
		return "", fmt.Errorf("no response generated (nil response)")
	}

	return resp.Content, nil
}

// normalizeOpenAIError unwraps the error types of the client eino's chat model
// is built on, which is a fork of go-openai with its own types.
func normalizeOpenAIError(err error) error {
	var apiErr *einoclient.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		if code == "" || apiErr.Type == "insufficient_quota" {
			code = apiErr.Type
		}
		return &ProviderError{StatusCode: apiErr.HTTPStatusCode, Code: code, Err: err}
	}

	var reqErr *einoclient.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return err
}

type openAITranscriber struct {
	client *goopenai.Client
	model  string
}

// NewOpenAITranscriberFactory returns a factory building a speech-to-text client per call.
func NewOpenAITranscriberFactory(opts OpenAIOptions) TranscriberFactory {
	return func(apiKey string) (Transcriber, error) {
		clientCfg := goopenai.DefaultConfig(apiKey)
		if opts.BaseURL != "" {
			clientCfg.BaseURL = opts.BaseURL
		}
		return &openAITranscriber{
			client: goopenai.NewClientWithConfig(clientCfg),
			model:  opts.TranscribeModel,
		}, nil
	}
}

func (o *openAITranscriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    o.model,
		FilePath: wavPath,
		Format:   goopenai.AudioResponseFormatText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}

	return strings.TrimSpace(resp.Text), nil
}
