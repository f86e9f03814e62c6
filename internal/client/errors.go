package client

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the external-capability clients. The pipeline
// worker maps them onto job failure kinds; none of the clients retry.
var (
	// ErrAudioNotFound means the source audio reference did not resolve to a
	// non-empty object.
	ErrAudioNotFound = errors.New("source audio not found")
	// ErrUpstreamUnavailable means the remote capability could not be reached.
	// It is transient; only the poll loop may retry on it.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvalidPayload means the remote capability rejected the audio payload.
	ErrInvalidPayload = errors.New("invalid audio payload")
	// ErrUnknownJob means the transcription job handle is not recognized.
	ErrUnknownJob = errors.New("unknown transcription job")
	// ErrUnsupportedLanguage is returned before any remote call is made.
	ErrUnsupportedLanguage = errors.New("unsupported target language")
	// ErrTranslationFailed wraps a terminal translation-stage failure.
	ErrTranslationFailed = errors.New("translation failed")
	// ErrSynthesisFailed wraps a terminal synthesis-stage failure.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
	// ErrStorageWriteFailed wraps a failure persisting the synthesized audio.
	ErrStorageWriteFailed = errors.New("storage write failed")
)

// UpstreamError is a structured non-2xx response from a remote capability.
type UpstreamError struct {
	Service   string `json:"-"`
	Status    int    `json:"status"`
	Reference string `json:"reference,omitempty"`
	Message   string `json:"message"`
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status=%d %s: %s", e.Service, e.Status, e.Reference, e.Message)
}

// Transient reports whether the error indicates a retryable upstream
// condition (5xx or unreachable).
func (e *UpstreamError) Transient() bool {
	return e.Status >= 500
}

func asUpstream(err error, target **UpstreamError) bool {
	return errors.As(err, target)
}
