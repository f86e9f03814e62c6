package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicetranslator/api/internal/config"
)

// Translator defines the interface for text translation.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// TranslateClient implements Translator against the translation service.
type TranslateClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewTranslateClient creates a new translation client.
func NewTranslateClient(cfg *config.TranslateConfig) *TranslateClient {
	return &TranslateClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    cfg.EndpointURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true if the translation endpoint is set.
func (c *TranslateClient) IsConfigured() bool {
	return c.baseURL != ""
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate sends text to the translation service and returns the translated
// text. Failures are terminal for the calling job; no retries here.
func (c *TranslateClient) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Text:           text,
		TargetLanguage: targetLanguage,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}

	if res.StatusCode >= 400 {
		ue := &UpstreamError{Service: "translate", Status: res.StatusCode}
		if err := json.Unmarshal(resBody, ue); err != nil || ue.Message == "" {
			ue.Message = string(resBody)
		}
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, ue)
	}

	var resp translateResponse
	if err := json.Unmarshal(resBody, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}

	return resp.TranslatedText, nil
}
