package client

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voicetranslator/api/internal/config"
)

func TestResolveAudioKey(t *testing.T) {
	storage := NewMockStorage("own-bucket")

	key, err := ResolveAudioKey(storage, "s3://own-bucket/recordings/a.wav")
	if err != nil {
		t.Fatalf("own-bucket ref: %v", err)
	}
	if key != "recordings/a.wav" {
		t.Errorf("key %q", key)
	}

	// Bare keys and empty-bucket refs resolve against the client's bucket.
	for _, ref := range []string{"recordings/a.wav", "s3:///recordings/a.wav"} {
		key, err := ResolveAudioKey(storage, ref)
		if err != nil || key != "recordings/a.wav" {
			t.Errorf("ResolveAudioKey(%q) = %q, %v", ref, key, err)
		}
	}

	if _, err := ResolveAudioKey(storage, "s3://other-bucket/recordings/a.wav"); err == nil {
		t.Error("expected a foreign-bucket ref to be rejected")
	}
}

func TestS3GetSignedURL_PublicDomain(t *testing.T) {
	s3client, err := NewS3Client(&config.StorageConfig{
		Region:          "auto",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		BucketName:      "clips",
		PublicURL:       "https://clips.example.com/",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	url, err := s3client.GetSignedURL(context.Background(), "results/j1.mp3", time.Hour)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	if url != "https://clips.example.com/results/j1.mp3" {
		t.Errorf("expected the public domain URL, got %q", url)
	}
}

func TestMockStorageRoundTrip(t *testing.T) {
	storage := NewMockStorage("bucket")
	storage.Put("a.wav", []byte("RIFF data"))

	data, err := storage.Download(context.Background(), "a.wav")
	if err != nil || string(data) != "RIFF data" {
		t.Fatalf("download = %q, %v", data, err)
	}

	if err := storage.Delete(context.Background(), "a.wav"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := storage.Download(context.Background(), "a.wav"); !errors.Is(err, ErrAudioNotFound) {
		t.Fatalf("expected ErrAudioNotFound after delete, got %v", err)
	}
}
