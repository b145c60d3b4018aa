package services

import (
	"fmt"

	"feedbackr/internal/models"
)

const englishOnly = "IMPORTANT: Your response must be in English only, regardless of the language used in the input text."

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildSystemPrompt returns the reviewer persona for the given kind of material.
func (pb *PromptBuilder) BuildSystemPrompt(kind models.AnalysisKind) string {
	switch kind {
	case models.KindInterview:
		return "You are an interview coach. Please analyze the following interview content, " +
			"summarize key points, identify strengths and weaknesses, and provide improvement suggestions. " +
			englishOnly
	default:
		return "You are a UX design mentor. Please provide constructive feedback and suggestions " +
			"for the following portfolio. " + englishOnly
	}
}

// BuildUserPrompt wraps already-truncated text with a short instruction.
func (pb *PromptBuilder) BuildUserPrompt(kind models.AnalysisKind, text string) string {
	switch kind {
	case models.KindInterview:
		return fmt.Sprintf("Please analyze this interview content and provide feedback in English: %s", text)
	default:
		return fmt.Sprintf("Please review this portfolio and provide feedback in English: %s", text)
	}
}
