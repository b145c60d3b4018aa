package services

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// SupportedAudioFormats lists the containers accepted by the audio pipeline.
var SupportedAudioFormats = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
	".aac":  true,
}

// CredentialFunc returns the current API credential, or "" when none is configured.
type CredentialFunc func() string

// Transcriber turns a wav file into its full transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// TranscriberFactory builds a transcriber bound to one credential.
type TranscriberFactory func(apiKey string) (Transcriber, error)

type AudioExtractor interface {
	// Transcribe converts the upload to wav when needed and returns the transcript.
	// A derived wav is reserved from scope so it is released with the request.
	Transcribe(ctx context.Context, scope *TempScope, upload *TempFile, ext string) (string, error)
}

type audioExtractor struct {
	transcoder     AudioTranscoder
	newTranscriber TranscriberFactory
	credential     CredentialFunc
	credentialName string
}

func NewAudioExtractor(
	transcoder AudioTranscoder,
	newTranscriber TranscriberFactory,
	credential CredentialFunc,
	credentialName string,
) AudioExtractor {
	return &audioExtractor{
		transcoder:     transcoder,
		newTranscriber: newTranscriber,
		credential:     credential,
		credentialName: credentialName,
	}
}

func (a *audioExtractor) Transcribe(ctx context.Context, scope *TempScope, upload *TempFile, ext string) (string, error) {
	ext = strings.ToLower(ext)
	if !SupportedAudioFormats[ext] {
		return "", NewTranscriptionError(StageDecode,
			fmt.Sprintf("audio decode failed: unsupported audio format %q", ext), nil)
	}

	apiKey := a.credential()
	if apiKey == "" {
		return "", NewConfigurationError(fmt.Sprintf("%s is not configured; cannot transcribe audio", a.credentialName))
	}

	wavPath := upload.Path()
	if ext != ".wav" {
		wav, err := scope.Reserve(".wav")
		if err != nil {
			return "", NewTranscriptionError(StageDecode, "audio decode failed", err)
		}

		log.Printf("🎧 Converting %s upload to wav\n", ext)
		if err := a.transcoder.ToWAV(ctx, upload.Path(), wav.Path()); err != nil {
			return "", NewTranscriptionError(StageDecode, "audio decode failed", err)
		}
		wavPath = wav.Path()
	}

	transcriber, err := a.newTranscriber(apiKey)
	if err != nil {
		return "", NewTranscriptionError(StageTranscribe, "speech-to-text failed", err)
	}

	transcript, err := transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		return "", NewTranscriptionError(StageTranscribe, "speech-to-text failed", err)
	}

	return transcript, nil
}
