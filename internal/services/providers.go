package services

import "fmt"

type ProviderOptions struct {
	Provider    string
	OpenAI      OpenAIOptions
	GeminiModel string
}

// NewProviderFactories selects the chat and speech-to-text backends by provider name.
func NewProviderFactories(opts ProviderOptions) (ChatFactory, TranscriberFactory, error) {
	switch opts.Provider {
	case "", "openai":
		return NewOpenAIChatFactory(opts.OpenAI), NewOpenAITranscriberFactory(opts.OpenAI), nil
	case "gemini":
		return NewGeminiChatFactory(opts.GeminiModel), NewGeminiTranscriberFactory(opts.GeminiModel), nil
	default:
		return nil, nil, fmt.Errorf("invalid AI provider: %s", opts.Provider)
	}
}
