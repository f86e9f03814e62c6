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

// InferenceInvoker submits audio to the speech-to-text capability and reads
// back asynchronous job state. Implementations never retry; retry policy
// belongs to the pipeline's poll loop alone.
type InferenceInvoker interface {
	// SubmitTranscription sends the referenced audio for transcription. The
	// capability may answer inline (small clips) or hand back a job handle to
	// be polled. No local state is mutated.
	SubmitTranscription(ctx context.Context, audioRef string) (*TranscriptionSubmission, error)
	// GetTranscriptionJob performs exactly one idempotent status read for an
	// async handle, with no side effects on the remote job.
	GetTranscriptionJob(ctx context.Context, handle string) (*TranscriptionJobStatus, error)
}

// TranscriptionSubmission is the outcome of a submit: either an inline
// transcript or an async job handle.
type TranscriptionSubmission struct {
	Transcript string
	JobHandle  string
}

// Inline reports whether the capability answered synchronously.
func (s *TranscriptionSubmission) Inline() bool { return s.JobHandle == "" }

// TranscriptionJobState is the tri-state result of a status poll.
type TranscriptionJobState string

const (
	TranscriptionPending   TranscriptionJobState = "PENDING"
	TranscriptionSucceeded TranscriptionJobState = "SUCCEEDED"
	TranscriptionFailed    TranscriptionJobState = "FAILED"
)

// TranscriptionJobStatus is one observation of an async transcription job.
type TranscriptionJobStatus struct {
	State      TranscriptionJobState
	Transcript string
	Reason     string
}

// WhisperClient implements InferenceInvoker against an HTTP-fronted Whisper
// inference endpoint. The audio object is fetched from storage and shipped
// base64-encoded in the request body.
type WhisperClient struct {
	httpClient *http.Client
	storage    StorageClient
	baseURL    string
	apiKey     string
}

// NewWhisperClient creates a new transcription client.
func NewWhisperClient(cfg *config.WhisperConfig, storage StorageClient) *WhisperClient {
	return &WhisperClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		storage:    storage,
		baseURL:    cfg.EndpointURL,
		apiKey:     cfg.APIKey,
	}
}

// IsConfigured returns true if the inference endpoint is set.
func (c *WhisperClient) IsConfigured() bool {
	return c.baseURL != ""
}

type transcribeRequest struct {
	Audio string `json:"audio"`
}

type transcribeResponse struct {
	Transcription string `json:"transcription,omitempty"`
	JobID         string `json:"jobId,omitempty"`
	Status        string `json:"status,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// SubmitTranscription resolves the source audio and posts it to the
// inference endpoint. Fails with ErrAudioNotFound when the reference does not
// resolve to a non-empty object, ErrInvalidPayload when the capability cannot
// decode the audio, and ErrUpstreamUnavailable when it cannot be reached.
func (c *WhisperClient) SubmitTranscription(ctx context.Context, audioRef string) (*TranscriptionSubmission, error) {
	key, err := ResolveAudioKey(c.storage, audioRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAudioNotFound, err)
	}

	size, err := c.storage.Size(ctx, key)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrAudioNotFound, audioRef)
	}

	audio, err := c.storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(transcribeRequest{
		Audio: base64.StdEncoding.EncodeToString(audio),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transcription request: %w", err)
	}

	var resp transcribeResponse
	if err := c.do(ctx, http.MethodPost, "/transcriptions", bytes.NewReader(body), &resp); err != nil {
		var ue *UpstreamError
		if asUpstream(err, &ue) {
			if ue.Status == http.StatusBadRequest || ue.Status == http.StatusUnsupportedMediaType {
				return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, ue.Message)
			}
		}
		return nil, err
	}

	return &TranscriptionSubmission{
		Transcript: resp.Transcription,
		JobHandle:  resp.JobID,
	}, nil
}

// GetTranscriptionJob reads the state of an async transcription job once.
func (c *WhisperClient) GetTranscriptionJob(ctx context.Context, handle string) (*TranscriptionJobStatus, error) {
	var resp transcribeResponse
	if err := c.do(ctx, http.MethodGet, "/transcriptions/"+handle, nil, &resp); err != nil {
		var ue *UpstreamError
		if asUpstream(err, &ue) && ue.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnknownJob, handle)
		}
		return nil, err
	}

	switch resp.Status {
	case "COMPLETED", "SUCCEEDED":
		return &TranscriptionJobStatus{
			State:      TranscriptionSucceeded,
			Transcript: resp.Transcription,
		}, nil
	case "FAILED", "ERROR":
		return &TranscriptionJobStatus{
			State:  TranscriptionFailed,
			Reason: resp.Reason,
		}, nil
	default:
		return &TranscriptionJobStatus{State: TranscriptionPending}, nil
	}
}

func (c *WhisperClient) do(ctx context.Context, method, path string, body io.Reader, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	if res.StatusCode >= 400 {
		ue := &UpstreamError{Service: "whisper", Status: res.StatusCode}
		if err := json.Unmarshal(resBody, ue); err != nil || ue.Message == "" {
			ue.Message = string(resBody)
		}
		if ue.Transient() {
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, ue)
		}
		return ue
	}

	if v != nil {
		return json.Unmarshal(resBody, v)
	}
	return nil
}
