package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voicetranslator/api/internal/config"
)

// SpeechSynthesizer defines the interface for text-to-speech.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, language string) (*SynthesizedAudio, error)
}

// SynthesizedAudio is one rendered clip.
type SynthesizedAudio struct {
	Audio       []byte
	ContentType string
}

// voiceTable maps target languages to synthesis voices.
var voiceTable = map[string]string{
	"en": "Joanna",
	"es": "Lucia",
	"fr": "Lea",
	"de": "Vicki",
	"it": "Bianca",
	"pt": "Camila",
	"ja": "Takumi",
	"ko": "Seoyeon",
	"zh": "Zhiyu",
	"ar": "Zeina",
	"hi": "Aditi",
	"tr": "Filiz",
}

// SpeechClient implements SpeechSynthesizer against the synthesis service.
type SpeechClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewSpeechClient creates a new speech synthesis client.
func NewSpeechClient(cfg *config.SpeechConfig) *SpeechClient {
	return &SpeechClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.EndpointURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true if the synthesis endpoint is set.
func (c *SpeechClient) IsConfigured() bool {
	return c.baseURL != ""
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Voice    string `json:"voice,omitempty"`
}

type synthesizeResponse struct {
	Audio       string `json:"audio"` // base64
	ContentType string `json:"contentType"`
}

// Synthesize renders text to speech in the given language. Failures are
// terminal for the calling job; no retries here.
func (c *SpeechClient) Synthesize(ctx context.Context, text, language string) (*SynthesizedAudio, error) {
	body, err := json.Marshal(synthesizeRequest{
		Text:     text,
		Language: language,
		Voice:    voiceTable[language],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	if res.StatusCode >= 400 {
		ue := &UpstreamError{Service: "speech", Status: res.StatusCode}
		if err := json.Unmarshal(resBody, ue); err != nil || ue.Message == "" {
			ue.Message = string(resBody)
		}
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, ue)
	}

	var resp synthesizeResponse
	if err := json.Unmarshal(resBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, fmt.Errorf("%w: bad audio encoding: %v", ErrSynthesisFailed, err)
	}
	contentType := resp.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}

	return &SynthesizedAudio{Audio: audio, ContentType: contentType}, nil
}
