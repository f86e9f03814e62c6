package store

import (
	"context"
	"errors"
	"time"

	"github.com/voicetranslator/api/internal/model"
)

var (
	// ErrAlreadyExists means Create was called with a jobId already present.
	ErrAlreadyExists = errors.New("job already exists")
	// ErrNotFound means the jobId is not in the store.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidTransition means the requested status change violates the
	// monotonic-forward rule or targets a terminal job.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict is the compare-and-swap rejection: the job's status no
	// longer matches what the caller observed. The caller must re-read and
	// retry the intended transition, never blind-overwrite.
	ErrConflict = errors.New("status conflict")
)

// Mutation describes one checked status transition plus the fields that
// become set at that transition. Status is the target status and is always
// required.
type Mutation struct {
	Status         model.JobStatus
	TranscriptText string
	TranslatedText string
	ResultAudioRef string
	ErrorInfo      *model.ErrorInfo
}

// ListFilter narrows a List call. Zero value means no filtering.
type ListFilter struct {
	Status model.JobStatus
}

// Page controls cursor pagination for List. Cursor is the NextCursor of the
// previous page; empty starts from the newest job.
type Page struct {
	Cursor string
	Size   int
}

const DefaultPageSize = 20

// JobStore is durable keyed storage for job records.
//
// Updates use compare-and-swap semantics keyed on the caller's observed
// status: two concurrent writers racing on the same job see exactly one
// winner per round, the loser gets ErrConflict. Jobs for different IDs never
// conflict.
type JobStore interface {
	// Create persists a new job, failing with ErrAlreadyExists on ID reuse.
	Create(ctx context.Context, job *model.Job) error
	// UpdateStatus applies mut if and only if the stored status still equals
	// expected. Returns the updated job snapshot.
	UpdateStatus(ctx context.Context, jobID string, expected model.JobStatus, mut Mutation) (*model.Job, error)
	// Get is a point lookup, ErrNotFound if absent.
	Get(ctx context.Context, jobID string) (*model.Job, error)
	// List returns jobs ordered by createdAt descending. The status filter is
	// applied after the index scan, so a filtered page may hold fewer than
	// Size items while NextCursor still advances.
	List(ctx context.Context, filter ListFilter, page Page) ([]*model.Job, string, error)
}

// applyMutation validates a checked transition against the stored job and
// returns the updated copy. Shared by the Redis and in-memory stores so both
// enforce identical semantics.
func applyMutation(job *model.Job, expected model.JobStatus, mut Mutation, now time.Time) (*model.Job, error) {
	if job.Status != expected {
		return nil, ErrConflict
	}
	if !mut.Status.IsValid() || !model.CanTransition(job.Status, mut.Status) {
		return nil, ErrInvalidTransition
	}
	// resultAudioRef and errorInfo are mutually exclusive and bound to their
	// terminal statuses.
	if mut.ResultAudioRef != "" && mut.Status != model.JobStatusSucceeded {
		return nil, ErrInvalidTransition
	}
	if mut.ErrorInfo != nil && mut.Status != model.JobStatusFailed {
		return nil, ErrInvalidTransition
	}

	updated := *job
	updated.Status = mut.Status
	if mut.TranscriptText != "" && updated.TranscriptText == "" {
		updated.TranscriptText = mut.TranscriptText
	}
	if mut.TranslatedText != "" && updated.TranslatedText == "" {
		updated.TranslatedText = mut.TranslatedText
	}
	if mut.ResultAudioRef != "" {
		updated.ResultAudioRef = mut.ResultAudioRef
	}
	if mut.ErrorInfo != nil {
		updated.ErrorInfo = mut.ErrorInfo
	}
	updated.UpdatedAt = now
	return &updated, nil
}
