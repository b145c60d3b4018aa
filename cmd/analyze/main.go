package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"feedbackr/internal/config"
	"feedbackr/internal/models"
	"feedbackr/internal/services"
)

const previewChars = 1000

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "analyze",
		Short: "Run the portfolio or interview feedback pipeline on a local file",
	}
	root.AddCommand(newPortfolioCmd(), newAudioCmd())
	return root
}

func newPortfolioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio <pdf_path>",
		Short: "Extract text from a PDF portfolio and print feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}

			text, err := p.documents.ExtractText(args[0])
			if err != nil {
				return err
			}

			fmt.Println("------ PDF Text Extraction Results ------")
			fmt.Println(services.Preview(text, previewChars))
			fmt.Println("\n------ AI Feedback ------")
			if services.IsBlank(text) {
				fmt.Println(services.NoExtractableTextMessage)
				return nil
			}
			fmt.Println(p.feedback.Generate(cmd.Context(), models.KindPortfolio, text).Text)
			return nil
		},
	}
}

func newAudioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audio <audio_path>",
		Short: "Transcribe an interview recording and print feedback",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}

			transcript, err := p.transcribe(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Println("------ Audio Transcription ------")
			fmt.Println(services.Preview(transcript, previewChars))
			fmt.Println("\n------ AI Feedback ------")
			fmt.Println(p.feedback.Generate(cmd.Context(), models.KindInterview, transcript).Text)
			return nil
		},
	}
}

type pipeline struct {
	storage   services.TempStorage
	documents services.DocumentExtractor
	audio     services.AudioExtractor
	feedback  services.FeedbackGenerator
}

func newPipeline() (*pipeline, error) {
	cfg := config.Load()

	chatFactory, transcriberFactory, err := services.NewProviderFactories(services.ProviderOptions{
		Provider: cfg.AI.Provider,
		OpenAI: services.OpenAIOptions{
			BaseURL:         cfg.AI.OpenAIBaseURL,
			ChatModel:       cfg.AI.OpenAIChatModel,
			TranscribeModel: cfg.AI.OpenAITranscribeModel,
		},
		GeminiModel: cfg.AI.GeminiModel,
	})
	if err != nil {
		return nil, err
	}

	storage := services.NewTempStorage(cfg.Storage.TempDir, nil)
	if err := storage.EnsureDir(); err != nil {
		return nil, err
	}

	return &pipeline{
		storage:   storage,
		documents: services.NewPDFExtractor(),
		audio: services.NewAudioExtractor(
			services.NewFFmpegTranscoder(cfg.Audio.FFmpegPath),
			transcriberFactory,
			cfg.AI.Credential,
			cfg.AI.CredentialName(),
		),
		feedback: services.NewFeedbackGenerator(
			chatFactory,
			cfg.AI.Credential,
			cfg.AI.CredentialName(),
			services.BreakerSettings{},
		),
	}, nil
}

// transcribe copies the recording into a temp scope so the source file is never
// touched by cleanup.
func (p *pipeline) transcribe(ctx context.Context, path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(path))

	scope := p.storage.NewScope()
	defer scope.Close()

	upload, err := scope.Acquire(src, ext)
	if err != nil {
		return "", err
	}

	log.Printf("🎙️ Transcribing %s\n", path)
	return p.audio.Transcribe(ctx, scope, upload, ext)
}
