package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker/v2"

	"feedbackr/internal/models"
)

// MaxPromptChars bounds how much extracted text is sent to the language model.
const MaxPromptChars = 3000

// ChatCompleter runs one system+user exchange and returns the reply.
type ChatCompleter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatFactory builds a chat client bound to one credential.
type ChatFactory func(apiKey string) (ChatCompleter, error)

type BreakerSettings struct {
	Enabled      bool
	MinRequests  uint32
	FailureRatio float64
	Timeout      time.Duration
}

type FeedbackGenerator interface {
	// Generate never fails: provider errors come back as degraded feedback.
	Generate(ctx context.Context, kind models.AnalysisKind, text string) models.Feedback
}

type feedbackGenerator struct {
	newChat        ChatFactory
	credential     CredentialFunc
	credentialName string
	promptBuilder  *PromptBuilder
	breaker        *gobreaker.CircuitBreaker[string]
}

func NewFeedbackGenerator(
	newChat ChatFactory,
	credential CredentialFunc,
	credentialName string,
	breaker BreakerSettings,
) FeedbackGenerator {
	g := &feedbackGenerator{
		newChat:        newChat,
		credential:     credential,
		credentialName: credentialName,
		promptBuilder:  NewPromptBuilder(),
	}
	if breaker.Enabled {
		g.breaker = newFeedbackBreaker(breaker)
	}
	return g
}

func newFeedbackBreaker(cfg BreakerSettings) *gobreaker.CircuitBreaker[string] {
	settings := gobreaker.Settings{
		Name:    "feedback-llm",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("🔌 Circuit breaker %s: %s -> %s\n", name, from, to)
		},
	}
	return gobreaker.NewCircuitBreaker[string](settings)
}

func (g *feedbackGenerator) Generate(ctx context.Context, kind models.AnalysisKind, text string) models.Feedback {
	apiKey := g.credential()
	if apiKey == "" {
		return g.degraded(kind, NewConfigurationError(fmt.Sprintf(
			"AI analysis unavailable: %s is not configured. Set it in the environment to enable feedback.",
			g.credentialName)))
	}

	system := g.promptBuilder.BuildSystemPrompt(kind)
	user := g.promptBuilder.BuildUserPrompt(kind, TruncateChars(text, MaxPromptChars))

	call := func() (string, error) {
		chat, err := g.newChat(apiKey)
		if err != nil {
			return "", err
		}
		return chat.Complete(ctx, system, user)
	}

	var (
		reply string
		err   error
	)
	if g.breaker != nil {
		reply, err = g.breaker.Execute(call)
	} else {
		reply, err = call()
	}
	if err != nil {
		return g.degraded(kind, g.classify(err))
	}

	log.Printf("✅ %s feedback received: %d characters\n", kind, utf8.RuneCountInString(reply))
	return models.Feedback{Text: reply}
}

func (g *feedbackGenerator) degraded(kind models.AnalysisKind, pe *PipelineError) models.Feedback {
	log.Printf("⚠️  %s feedback degraded (%s): %v\n", kind, pe.Kind, pe)
	return models.Feedback{
		Text:     pe.Message,
		Degraded: true,
		Reason:   string(pe.Kind),
	}
}

// classify maps a provider failure onto a message naming its category.
func (g *feedbackGenerator) classify(err error) *PipelineError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return NewExternalServiceError(
			"AI analysis failed: the AI service is temporarily unavailable after repeated failures. Please try again later.", err)
	}

	switch providerFailure(err) {
	case failureAuth:
		return NewConfigurationError(fmt.Sprintf(
			"AI analysis failed: the API key is invalid or was rejected. Please check %s.", g.credentialName))
	case failureQuota:
		return NewExternalServiceError(
			"AI analysis failed: the API quota has been exhausted. Please check your plan and billing details.", err)
	case failureRateLimit:
		return NewExternalServiceError(
			"AI analysis failed: rate limit reached. Please wait a moment and try again.", err)
	default:
		return NewExternalServiceError(fmt.Sprintf("AI analysis failed: %v", err), err)
	}
}

type failureCategory int

const (
	failureTransport failureCategory = iota
	failureAuth
	failureRateLimit
	failureQuota
)

func providerFailure(err error) failureCategory {
	status, code := 0, ""
	var pe *ProviderError
	if errors.As(err, &pe) {
		status, code = pe.StatusCode, strings.ToLower(pe.Code)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case code == "insufficient_quota" ||
		strings.Contains(msg, "insufficient_quota") || strings.Contains(msg, "exceeded your current quota") ||
		strings.Contains(msg, "quota exceeded"):
		return failureQuota
	case status == http.StatusUnauthorized || status == http.StatusForbidden ||
		code == "invalid_api_key" || code == "unauthenticated" || code == "permission_denied" ||
		strings.Contains(msg, "status code: 401") || strings.Contains(msg, "invalid_api_key") ||
		strings.Contains(msg, "incorrect api key") || strings.Contains(msg, "api key not valid"):
		return failureAuth
	case status == http.StatusTooManyRequests || code == "rate_limit_exceeded" || code == "resource_exhausted" ||
		strings.Contains(msg, "status code: 429") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource_exhausted"):
		return failureRateLimit
	}
	return failureTransport
}
