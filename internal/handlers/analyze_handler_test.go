package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/ledongthuc/pdf"

	"feedbackr/internal/metrics"
	"feedbackr/internal/models"
	"feedbackr/internal/pdftest"
	"feedbackr/internal/services"
)

type fakeChat struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
	user  string
}

func (f *fakeChat) factory(string) (services.ChatCompleter, error) {
	return f, nil
}

func (f *fakeChat) Complete(_ context.Context, _, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.user = user
	return f.reply, f.err
}

type fakeTranscoder struct {
	err error
}

func (f *fakeTranscoder) ToWAV(_ context.Context, _, dstPath string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dstPath, []byte("RIFF"), 0o600)
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) factory(string) (services.Transcriber, error) {
	return f, nil
}

func (f *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	return f.text, f.err
}

type fakeRecorder struct {
	outcomes []string
}

func (r *fakeRecorder) ObserveAnalysis(endpoint, outcome string) {
	r.outcomes = append(r.outcomes, endpoint+":"+outcome)
}

type testServer struct {
	app         *fiber.App
	tempDir     string
	chat        *fakeChat
	transcoder  *fakeTranscoder
	transcriber *fakeTranscriber
	recorder    *fakeRecorder
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()

	ts := &testServer{
		tempDir:     t.TempDir(),
		chat:        &fakeChat{reply: "Strong visual hierarchy; add more process detail."},
		transcoder:  &fakeTranscoder{},
		transcriber: &fakeTranscriber{text: "I led the redesign of our onboarding flow."},
		recorder:    &fakeRecorder{},
	}
	credential := func() string { return apiKey }

	handler := NewAnalyzeHandler(
		services.NewTempStorage(ts.tempDir, nil),
		services.NewPDFExtractor(),
		services.NewAudioExtractor(ts.transcoder, ts.transcriber.factory, credential, "OPENAI_API_KEY"),
		services.NewFeedbackGenerator(ts.chat.factory, credential, "OPENAI_API_KEY", services.BreakerSettings{}),
		ts.recorder,
	)

	ts.app = fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	SetupRoutes(ts.app, handler, nil)
	return ts
}

func (ts *testServer) upload(t *testing.T, path, filename string, data []byte) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := ts.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s: %v", path, err)
	}
	return resp
}

func (ts *testServer) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(ts.tempDir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("temp files left behind: %v", names)
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return out
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func TestLiveness(t *testing.T) {
	ts := newTestServer(t, "sk-test")

	resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["message"] != LivenessMessage {
		t.Fatalf("body = %v", body)
	}
}

func TestAnalyzePortfolioSuccess(t *testing.T) {
	ts := newTestServer(t, "sk-test")

	resp := ts.upload(t, "/api/analyze-portfolio", "portfolio.pdf",
		pdftest.Build("Checkout redesign case study", "Usability testing results"))

	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["suggestion"] != ts.chat.reply {
		t.Fatalf("suggestion = %v", body["suggestion"])
	}
	if !strings.Contains(ts.chat.user, "Checkout redesign case study") {
		t.Fatalf("extracted text not forwarded: %q", ts.chat.user)
	}
	ts.assertNoTempFiles(t)

	if len(ts.recorder.outcomes) != 1 || ts.recorder.outcomes[0] != "portfolio:"+metrics.OutcomeOK {
		t.Fatalf("outcomes = %v", ts.recorder.outcomes)
	}
}

func TestAnalyzePortfolioBlankDocumentSkipsModel(t *testing.T) {
	ts := newTestServer(t, "sk-test")

	resp := ts.upload(t, "/api/analyze-portfolio", "blank.pdf", pdftest.Build(""))

	assertStatus(t, resp, http.StatusOK)
	if body := decodeBody(t, resp); body["suggestion"] != services.NoExtractableTextMessage {
		t.Fatalf("suggestion = %v", body["suggestion"])
	}
	if ts.chat.calls != 0 {
		t.Fatalf("model called %d times for a blank document", ts.chat.calls)
	}
	ts.assertNoTempFiles(t)
}

func TestAnalyzePortfolioCorruptUpload(t *testing.T) {
	ts := newTestServer(t, "sk-test")
	data := []byte("PK\x03\x04 definitely a zip, not a pdf")

	resp := ts.upload(t, "/api/analyze-portfolio", "portfolio.pdf", data)

	assertStatus(t, resp, http.StatusInternalServerError)
	body := decodeBody(t, resp)
	detail, _ := body["detail"].(string)

	probe := filepath.Join(t.TempDir(), "probe.pdf")
	if err := os.WriteFile(probe, data, 0o600); err != nil {
		t.Fatalf("write probe: %v", err)
	}
	f, _, cause := pdf.Open(probe)
	if f != nil {
		f.Close()
	}
	if cause == nil || !strings.Contains(detail, cause.Error()) {
		t.Fatalf("detail %q does not include parser cause %v", detail, cause)
	}
	if ts.chat.calls != 0 {
		t.Fatal("model should not be called after an extraction failure")
	}
	ts.assertNoTempFiles(t)
}

func TestAnalyzePortfolioMissingCredentialIsSoftFailure(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.upload(t, "/api/analyze-portfolio", "portfolio.pdf", pdftest.Build("Design system audit"))

	assertStatus(t, resp, http.StatusOK)
	suggestion, _ := decodeBody(t, resp)["suggestion"].(string)
	if !strings.Contains(suggestion, "OPENAI_API_KEY") {
		t.Fatalf("suggestion should describe the missing credential, got %q", suggestion)
	}
	if ts.chat.calls != 0 {
		t.Fatal("model should not be called without a credential")
	}
	if ts.recorder.outcomes[0] != "portfolio:"+metrics.OutcomeDegraded {
		t.Fatalf("outcomes = %v", ts.recorder.outcomes)
	}
	ts.assertNoTempFiles(t)
}

func TestAnalyzeMissingFileField(t *testing.T) {
	ts := newTestServer(t, "sk-test")

	for _, path := range []string{"/api/analyze-portfolio", "/api/analyze-audio"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(""))
		resp, err := ts.app.Test(req, -1)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		assertStatus(t, resp, http.StatusUnprocessableEntity)
		if body := decodeBody(t, resp); body["detail"] != "file is required" {
			t.Fatalf("body = %v", body)
		}
	}
}

func TestAnalyzeAudioSupportedContainers(t *testing.T) {
	for _, name := range []string{"answer.mp3", "answer.wav", "answer.m4a"} {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, "sk-test")
			ts.transcriber.text = ""

			resp := ts.upload(t, "/api/analyze-audio", name, []byte("silence"))

			assertStatus(t, resp, http.StatusOK)
			body := decodeBody(t, resp)
			for _, key := range []string{"asr_text", "suggestion"} {
				if _, ok := body[key]; !ok {
					t.Fatalf("response missing %q: %v", key, body)
				}
			}
			if ts.chat.calls != 1 {
				t.Fatalf("empty transcript should still be forwarded, calls = %d", ts.chat.calls)
			}
			ts.assertNoTempFiles(t)
		})
	}
}

func TestAnalyzeAudioReturnsTranscriptAndFeedback(t *testing.T) {
	ts := newTestServer(t, "sk-test")

	resp := ts.upload(t, "/api/analyze-audio", "interview.mp3", []byte("ID3"))

	assertStatus(t, resp, http.StatusOK)
	var body models.AudioResponse
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ASRText != ts.transcriber.text {
		t.Fatalf("asr_text = %q", body.ASRText)
	}
	if body.Suggestion != ts.chat.reply {
		t.Fatalf("suggestion = %q", body.Suggestion)
	}
}

func TestAnalyzeAudioTranscriptionFailureIsHard(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		setup    func(ts *testServer)
		contains string
	}{
		{
			name:     "speech-to-text error",
			file:     "answer.m4a",
			setup:    func(ts *testServer) { ts.transcriber.err = errors.New("status code: 503") },
			contains: "speech-to-text failed",
		},
		{
			name:     "decode error",
			file:     "answer.mp3",
			setup:    func(ts *testServer) { ts.transcoder.err = errors.New("ffmpeg: Invalid data found") },
			contains: "audio decode failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, "sk-test")
			tt.setup(ts)

			resp := ts.upload(t, "/api/analyze-audio", tt.file, []byte("noise"))

			assertStatus(t, resp, http.StatusInternalServerError)
			detail, _ := decodeBody(t, resp)["detail"].(string)
			if !strings.Contains(detail, tt.contains) {
				t.Fatalf("detail %q does not contain %q", detail, tt.contains)
			}
			if ts.chat.calls != 0 {
				t.Fatal("model should not be called after a transcription failure")
			}
			ts.assertNoTempFiles(t)
		})
	}
}

func TestAnalyzeAudioMissingCredentialIsHard(t *testing.T) {
	ts := newTestServer(t, "")

	resp := ts.upload(t, "/api/analyze-audio", "answer.wav", []byte("RIFF"))

	assertStatus(t, resp, http.StatusInternalServerError)
	detail, _ := decodeBody(t, resp)["detail"].(string)
	if !strings.Contains(detail, "OPENAI_API_KEY") {
		t.Fatalf("detail = %q", detail)
	}
	ts.assertNoTempFiles(t)
}

func TestAnalyzeAudioFeedbackFailureIsSoft(t *testing.T) {
	ts := newTestServer(t, "sk-test")
	ts.chat.err = errors.New("error, status code: 429, status: 429 Too Many Requests")

	resp := ts.upload(t, "/api/analyze-audio", "answer.wav", []byte("RIFF"))

	assertStatus(t, resp, http.StatusOK)
	body := decodeBody(t, resp)
	if body["asr_text"] != ts.transcriber.text {
		t.Fatalf("transcript should survive a feedback failure: %v", body)
	}
	suggestion, _ := body["suggestion"].(string)
	if !strings.Contains(suggestion, "rate limit") {
		t.Fatalf("suggestion = %q", suggestion)
	}
}

func TestErrorHandlerRendersDetail(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/teapot", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assertStatus(t, resp, fiber.StatusTeapot)
	if body := decodeBody(t, resp); body["detail"] != "short and stout" {
		t.Fatalf("body = %v", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/plain", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	assertStatus(t, resp, fiber.StatusInternalServerError)
	if body := decodeBody(t, resp); body["detail"] != "boom" {
		t.Fatalf("body = %v", body)
	}
}
