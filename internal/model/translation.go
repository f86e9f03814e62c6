package model

import "time"

// TranslationStartRequest is the trigger payload for a new pipeline run.
type TranslationStartRequest struct {
	SourceAudioRef string `json:"sourceAudioRef" validate:"required"`
	TargetLanguage string `json:"targetLanguage" validate:"required"`
}

// TranslationStartResponse is returned immediately; the pipeline runs
// asynchronously.
type TranslationStartResponse struct {
	JobID       string    `json:"jobId"`
	ExecutionID string    `json:"executionId"`
	Status      JobStatus `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TranslationResponse is a Job snapshot as served over the API, optionally
// carrying a time-limited playback URL for the synthesized audio.
type TranslationResponse struct {
	Job
	ResultAudioURL string `json:"resultAudioUrl,omitempty"`
}

// TranslationListResponse is one page of jobs ordered by createdAt descending.
type TranslationListResponse struct {
	Items      []TranslationResponse `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

// UploadRequest asks for a presigned URL to upload a source clip.
type UploadRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType,omitempty"`
}

// UploadResponse carries the presigned PUT URL and the storage ref to pass to
// the trigger endpoint afterwards.
type UploadResponse struct {
	UploadURL      string    `json:"uploadUrl"`
	SourceAudioRef string    `json:"sourceAudioRef"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

// LanguagesResponse lists the supported target languages.
type LanguagesResponse struct {
	Languages []Language `json:"languages"`
}
