package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"

	"github.com/voicetranslator/api/internal/auth"
	"github.com/voicetranslator/api/internal/client"
	"github.com/voicetranslator/api/internal/handler"
	"github.com/voicetranslator/api/internal/middleware"
	"github.com/voicetranslator/api/internal/service"
	"github.com/voicetranslator/api/internal/store"
	"github.com/voicetranslator/api/internal/worker"
	ws "github.com/voicetranslator/api/internal/websocket"
)

const testJWTSecret = "test-secret-for-e2e"

// testApp holds all components needed for testing
type testApp struct {
	app     *fiber.App
	store   store.JobStore
	storage *client.MockStorage
}

// inlineEnqueuer runs the pipeline worker synchronously instead of queueing,
// so a trigger has reached its terminal state by the time the POST returns.
type inlineEnqueuer struct {
	worker *worker.PipelineWorker
}

func (e *inlineEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if err := e.worker.ProcessTask(context.Background(), task); err != nil {
		return nil, err
	}
	return &asynq.TaskInfo{}, nil
}

// setupApp creates a Fiber app wired like main.go but on in-memory storage
// and mock upstream clients, with the pipeline executed inline.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	jobStore := store.NewMemoryStore()
	storage := client.NewMockStorage("test-bucket")
	storage.Put("recordings/clip.wav", []byte("RIFF fake audio"))

	inference := client.NewMockInference()
	translator := client.MockTranslator{}
	synthesizer := client.MockSynthesizer{}

	synth := worker.NewTranslateSynthesizer(translator, synthesizer, storage)
	pipelineWorker := worker.NewPipelineWorker(jobStore, hub, inference, synth, time.Millisecond, 5*time.Second)
	enqueuer := &inlineEnqueuer{worker: pipelineWorker}

	translationService := service.NewTranslationService(jobStore, enqueuer, storage, hub, 5*time.Second, time.Hour)

	translationHandler := handler.NewTranslationHandler(translationService, validate)
	uploadHandler := handler.NewUploadHandler(translationService, validate)

	// Auth middleware — legacy HMAC only. No rate limiter: it needs Redis,
	// and these tests must run without one.
	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)

	app := fiber.New(fiber.Config{
		BodyLimit: 50 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": time.Now().Unix()})
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"redis":     false,
				"whisper":   false,
				"translate": false,
				"speech":    false,
				"storage":   false,
				"auth":      true,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/languages", translationHandler.Languages)

	translations := api.Group("/translations")
	translations.Post("/", translationHandler.Start)
	translations.Get("/", translationHandler.List)
	translations.Get("/:jobId", translationHandler.Get)

	uploads := api.Group("/uploads")
	uploads.Post("/", uploadHandler.Create)

	return &testApp{app: app, store: jobStore, storage: storage}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T) string {
	t.Helper()
	signed, err := auth.SignToken("test-user-123", "test@example.com", testJWTSecret)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request.
func doAuthRequest(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}
