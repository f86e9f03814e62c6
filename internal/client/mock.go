package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Mock implementations used when the external endpoints are not configured,
// so the full pipeline can run in development without network access.

// MockInference returns a canned transcript after simulating an async job
// that stays pending for a fixed number of polls.
type MockInference struct {
	PendingPolls int

	mu    sync.Mutex
	polls map[string]int
}

func NewMockInference() *MockInference {
	return &MockInference{
		PendingPolls: 2,
		polls:        make(map[string]int),
	}
}

func (m *MockInference) SubmitTranscription(ctx context.Context, audioRef string) (*TranscriptionSubmission, error) {
	return &TranscriptionSubmission{JobHandle: "mock-" + audioRef}, nil
}

func (m *MockInference) GetTranscriptionJob(ctx context.Context, handle string) (*TranscriptionJobStatus, error) {
	m.mu.Lock()
	m.polls[handle]++
	seen := m.polls[handle]
	m.mu.Unlock()

	if seen <= m.PendingPolls {
		return &TranscriptionJobStatus{State: TranscriptionPending}, nil
	}
	return &TranscriptionJobStatus{
		State:      TranscriptionSucceeded,
		Transcript: "this is a mock transcription of your recording",
	}, nil
}

// MockTranslator tags the text with the target language.
type MockTranslator struct{}

func (MockTranslator) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	return fmt.Sprintf("[%s] %s", targetLanguage, text), nil
}

// MockSynthesizer returns a tiny silent clip.
type MockSynthesizer struct{}

func (MockSynthesizer) Synthesize(ctx context.Context, text, language string) (*SynthesizedAudio, error) {
	return &SynthesizedAudio{
		Audio:       []byte("RIFF mock audio"),
		ContentType: "audio/wav",
	}, nil
}

// MockStorage keeps objects in memory. It backs development mode and tests.
type MockStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	bucket  string
}

func NewMockStorage(bucket string) *MockStorage {
	if bucket == "" {
		bucket = "mock-bucket"
	}
	return &MockStorage{
		objects: make(map[string][]byte),
		bucket:  bucket,
	}
}

// Put seeds an object, for tests and local development.
func (m *MockStorage) Put(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
}

func (m *MockStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.Put(key, data)
	return m.Ref(key), nil
}

func (m *MockStorage) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrAudioNotFound
	}
	return data, nil
}

func (m *MockStorage) Size(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return 0, ErrAudioNotFound
	}
	return int64(len(data)), nil
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MockStorage) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.mock.local/%s?expires=%d", m.bucket, key, int(expiry.Seconds())), nil
}

func (m *MockStorage) GetSignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.mock.local/%s?upload=1&expires=%d", m.bucket, key, int(expiry.Seconds())), nil
}

func (m *MockStorage) Ref(key string) string {
	return fmt.Sprintf("s3://%s/%s", m.bucket, key)
}

func (m *MockStorage) Bucket() string {
	return m.bucket
}
