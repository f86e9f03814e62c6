package model

import "time"

// Job represents one end-to-end translation pipeline run.
//
// SourceAudioRef and TargetLanguage are set at trigger time and never change.
// TranscriptText appears once the job reaches TRANSCRIBED, TranslatedText and
// ResultAudioRef only on SUCCEEDED, ErrorInfo only on FAILED. ResultAudioRef
// and ErrorInfo are mutually exclusive. Once a job is SUCCEEDED or FAILED no
// field changes again.
type Job struct {
	ID             string     `json:"jobId"`
	Status         JobStatus  `json:"status"`
	SourceAudioRef string     `json:"sourceAudioRef"`
	TargetLanguage Language   `json:"targetLanguage"`
	TranscriptText string     `json:"transcriptText,omitempty"`
	TranslatedText string     `json:"translatedText,omitempty"`
	ResultAudioRef string     `json:"resultAudioRef,omitempty"`
	ErrorInfo      *ErrorInfo `json:"errorInfo,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ErrorInfo carries the failure kind and human-readable cause for a FAILED job.
type ErrorInfo struct {
	Kind  ErrorKind `json:"kind"`
	Cause string    `json:"cause"`
}
