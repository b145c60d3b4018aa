package services

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes pipeline failures.
type ErrorKind string

const (
	KindExtraction      ErrorKind = "extraction"
	KindTranscription   ErrorKind = "transcription"
	KindConfiguration   ErrorKind = "configuration"
	KindExternalService ErrorKind = "external_service"
)

// Transcription stages, so operators can tell a bad upload from a failing provider.
const (
	StageDecode     = "decode"
	StageTranscribe = "transcribe"
)

// PipelineError carries a kind and a message that is safe to return to callers.
type PipelineError struct {
	Kind    ErrorKind
	Stage   string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func NewExtractionError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindExtraction, Message: message, Cause: cause}
}

func NewTranscriptionError(stage, message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindTranscription, Stage: stage, Message: message, Cause: cause}
}

func NewConfigurationError(message string) *PipelineError {
	return &PipelineError{Kind: KindConfiguration, Message: message}
}

func NewExternalServiceError(message string, cause error) *PipelineError {
	return &PipelineError{Kind: KindExternalService, Message: message, Cause: cause}
}

// IsKind reports whether err is, or wraps, a PipelineError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// ProviderError is an AI provider failure reduced to the fields used for
// classification: the HTTP status and the provider's own error code.
type ProviderError struct {
	StatusCode int
	Code       string
	Err        error
}

func (e *ProviderError) Error() string {
	return e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
