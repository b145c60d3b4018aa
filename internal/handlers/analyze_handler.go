package handlers

import (
	"fmt"
	"log"
	"mime/multipart"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"feedbackr/internal/metrics"
	"feedbackr/internal/models"
	"feedbackr/internal/services"
)

const (
	endpointPortfolio = "portfolio"
	endpointAudio     = "audio"
)

type AnalysisRecorder interface {
	ObserveAnalysis(endpoint, outcome string)
}

type AnalyzeHandler struct {
	storage   services.TempStorage
	documents services.DocumentExtractor
	audio     services.AudioExtractor
	feedback  services.FeedbackGenerator
	recorder  AnalysisRecorder
}

func NewAnalyzeHandler(
	storage services.TempStorage,
	documents services.DocumentExtractor,
	audio services.AudioExtractor,
	feedback services.FeedbackGenerator,
	recorder AnalysisRecorder,
) *AnalyzeHandler {
	return &AnalyzeHandler{
		storage:   storage,
		documents: documents,
		audio:     audio,
		feedback:  feedback,
		recorder:  recorder,
	}
}

// HandlePortfolio handles POST /api/analyze-portfolio
func (h *AnalyzeHandler) HandlePortfolio(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Detail: "file is required"})
	}
	asset := models.UploadedAsset{Filename: fileHeader.Filename, Size: fileHeader.Size}

	scope := h.storage.NewScope()
	defer scope.Close()

	upload, err := acquireUpload(scope, fileHeader, ".pdf")
	if err != nil {
		return h.fail(c, endpointPortfolio, err)
	}

	log.Printf("📄 Extracting text from %s (%d bytes)\n", asset.Filename, asset.Size)
	text, err := h.documents.ExtractText(upload.Path())
	if err != nil {
		return h.fail(c, endpointPortfolio, err)
	}

	if services.IsBlank(text) {
		h.observe(endpointPortfolio, metrics.OutcomeEmpty)
		return c.JSON(models.PortfolioResponse{Suggestion: services.NoExtractableTextMessage})
	}

	log.Printf("🤖 Requesting portfolio feedback (%d characters extracted)\n", utf8.RuneCountInString(text))
	feedback := h.feedback.Generate(c.UserContext(), models.KindPortfolio, text)
	h.observeFeedback(endpointPortfolio, feedback)

	return c.JSON(models.PortfolioResponse{Suggestion: feedback.Text})
}

// HandleAudio handles POST /api/analyze-audio
func (h *AnalyzeHandler) HandleAudio(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{Detail: "file is required"})
	}
	asset := models.UploadedAsset{Filename: fileHeader.Filename, Size: fileHeader.Size}
	ext := asset.Extension()

	scope := h.storage.NewScope()
	defer scope.Close()

	upload, err := acquireUpload(scope, fileHeader, ext)
	if err != nil {
		return h.fail(c, endpointAudio, err)
	}

	log.Printf("🎙️ Transcribing %s (%d bytes)\n", asset.Filename, asset.Size)
	transcript, err := h.audio.Transcribe(c.UserContext(), scope, upload, ext)
	if err != nil {
		return h.fail(c, endpointAudio, err)
	}

	log.Printf("🤖 Requesting interview feedback (%d characters transcribed)\n", utf8.RuneCountInString(transcript))
	feedback := h.feedback.Generate(c.UserContext(), models.KindInterview, transcript)
	h.observeFeedback(endpointAudio, feedback)

	return c.JSON(models.AudioResponse{
		ASRText:    transcript,
		Suggestion: feedback.Text,
	})
}

func acquireUpload(scope *services.TempScope, fileHeader *multipart.FileHeader, suffix string) (*services.TempFile, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	return scope.Acquire(src, suffix)
}

func (h *AnalyzeHandler) fail(c *fiber.Ctx, endpoint string, err error) error {
	log.Printf("❌ %s analysis failed: %v\n", endpoint, err)
	h.observe(endpoint, metrics.OutcomeFailed)
	return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{Detail: err.Error()})
}

func (h *AnalyzeHandler) observeFeedback(endpoint string, feedback models.Feedback) {
	if feedback.Degraded {
		h.observe(endpoint, metrics.OutcomeDegraded)
		return
	}
	h.observe(endpoint, metrics.OutcomeOK)
}

func (h *AnalyzeHandler) observe(endpoint, outcome string) {
	if h.recorder != nil {
		h.recorder.ObserveAnalysis(endpoint, outcome)
	}
}
