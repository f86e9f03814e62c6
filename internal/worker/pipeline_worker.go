package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/voicetranslator/api/internal/client"
	"github.com/voicetranslator/api/internal/model"
	"github.com/voicetranslator/api/internal/store"
)

// TaskTypePipeline is the asynq task type for one pipeline execution.
const TaskTypePipeline = "pipeline:process"

// PipelineTaskPayload identifies the job a task executes.
type PipelineTaskPayload struct {
	JobID       string `json:"jobId"`
	ExecutionID string `json:"executionId"`
}

// NewPipelineTask builds the asynq task for a job.
func NewPipelineTask(jobID, executionID string) (*asynq.Task, error) {
	data, err := json.Marshal(PipelineTaskPayload{
		JobID:       jobID,
		ExecutionID: executionID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePipeline, data), nil
}

// Publisher pushes job snapshots to subscribers.
type Publisher interface {
	PublishJob(job *model.Job)
}

// errHandedOff signals that another writer already advanced the job past the
// transition this execution wanted; the execution stops without failing the
// job.
var errHandedOff = errors.New("job advanced by another writer")

// PipelineWorker drives one job through the pipeline state machine:
// transcribe (submit, then poll until terminal), translate, synthesize,
// finalize. Each transition is a checked store write followed by a publish,
// in that order, so a reader who saw the notification never reads stale
// state. Stage failures are never rethrown out of the worker: every path
// lands the job on SUCCEEDED or FAILED.
type PipelineWorker struct {
	store     store.JobStore
	publisher Publisher
	inference client.InferenceInvoker
	synth     *TranslateSynthesizer

	pollInterval   time.Duration
	overallTimeout time.Duration

	// sleep waits between polls; replaced in tests for deterministic runs.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipelineWorker creates the orchestrator worker.
func NewPipelineWorker(jobStore store.JobStore, publisher Publisher, inference client.InferenceInvoker, synth *TranslateSynthesizer, pollInterval, overallTimeout time.Duration) *PipelineWorker {
	return &PipelineWorker{
		store:          jobStore,
		publisher:      publisher,
		inference:      inference,
		synth:          synth,
		pollInterval:   pollInterval,
		overallTimeout: overallTimeout,
		sleep:          sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ProcessTask handles one pipeline execution.
func (w *PipelineWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload PipelineTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := payload.JobID
	log.Printf("Starting pipeline execution %s for job %s", payload.ExecutionID, jobID)

	job, err := w.store.Get(ctx, jobID)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Job %s no longer exists, dropping task", jobID)
		return nil
	}
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		// Redelivered task for a finished job.
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.overallTimeout)
	defer cancel()

	if err := w.run(ctx, job); err != nil {
		if errors.Is(err, errHandedOff) {
			log.Printf("Pipeline for job %s handed off: %v", jobID, err)
			return nil
		}
		kind, cause := classifyFailure(err)
		w.failJob(ctx, jobID, kind, cause)
		return err
	}

	log.Printf("Pipeline for job %s completed", jobID)
	return nil
}

// run executes the stages; any returned error is mapped to a FAILED terminal
// write by the caller.
func (w *PipelineWorker) run(ctx context.Context, job *model.Job) error {
	jobID := job.ID

	job, err := w.transition(ctx, jobID, job.Status, store.Mutation{Status: model.JobStatusTranscribing})
	if err != nil {
		return err
	}

	submission, err := w.inference.SubmitTranscription(ctx, job.SourceAudioRef)
	if err != nil {
		return err
	}

	transcript := submission.Transcript
	if !submission.Inline() {
		transcript, err = w.pollTranscription(ctx, submission.JobHandle)
		if err != nil {
			return err
		}
	}
	if transcript == "" {
		return fmt.Errorf("transcription produced no text")
	}

	job, err = w.transition(ctx, jobID, model.JobStatusTranscribing, store.Mutation{
		Status:         model.JobStatusTranscribed,
		TranscriptText: transcript,
	})
	if err != nil {
		return err
	}

	job, err = w.transition(ctx, jobID, model.JobStatusTranscribed, store.Mutation{Status: model.JobStatusTranslating})
	if err != nil {
		return err
	}

	// The translated text is not persisted yet: if synthesis fails it is
	// discarded with the stage, so only SUCCEEDED records carry it.
	result, err := w.synth.Run(ctx, jobID, transcript, job.TargetLanguage, func(string) error {
		_, err := w.transition(ctx, jobID, model.JobStatusTranslating, store.Mutation{
			Status: model.JobStatusSynthesizing,
		})
		return err
	})
	if err != nil {
		return err
	}

	_, err = w.transition(ctx, jobID, model.JobStatusSynthesizing, store.Mutation{
		Status:         model.JobStatusSucceeded,
		TranslatedText: result.TranslatedText,
		ResultAudioRef: result.ResultAudioRef,
	})
	return err
}

// pollTranscription repeatedly reads the async transcription job until it is
// terminal. Transient upstream errors are retried here and nowhere else; the
// loop is bounded by the execution's overall deadline.
func (w *PipelineWorker) pollTranscription(ctx context.Context, handle string) (string, error) {
	for {
		status, err := w.inference.GetTranscriptionJob(ctx, handle)
		switch {
		case err == nil:
			switch status.State {
			case client.TranscriptionSucceeded:
				return status.Transcript, nil
			case client.TranscriptionFailed:
				return "", fmt.Errorf("transcription failed: %s", status.Reason)
			}
		case errors.Is(err, client.ErrUpstreamUnavailable):
			log.Printf("Transcription poll for %s: upstream unavailable, retrying: %v", handle, err)
		default:
			return "", err
		}

		if err := w.sleep(ctx, w.pollInterval); err != nil {
			return "", err
		}
	}
}

// transition performs one checked store write, then publishes the fresh
// snapshot. On a CAS conflict the job is re-read: if another writer already
// applied this same transition the fresh snapshot is used, otherwise the
// execution stops with errHandedOff.
func (w *PipelineWorker) transition(ctx context.Context, jobID string, expected model.JobStatus, mut store.Mutation) (*model.Job, error) {
	job, err := w.store.UpdateStatus(ctx, jobID, expected, mut)
	if errors.Is(err, store.ErrConflict) {
		current, getErr := w.store.Get(ctx, jobID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status == mut.Status {
			return current, nil
		}
		return nil, fmt.Errorf("%w: wanted %s→%s, found %s", errHandedOff, expected, mut.Status, current.Status)
	}
	if err != nil {
		return nil, err
	}

	w.publisher.PublishJob(job)
	return job, nil
}

// failJob records a terminal FAILED status. It runs on a fresh deadline so a
// timed-out execution can still write its terminal state, and it retries CAS
// conflicts by re-reading, since FAILED is reachable from any non-terminal
// status.
func (w *PipelineWorker) failJob(ctx context.Context, jobID string, kind model.ErrorKind, cause string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	for attempt := 0; attempt < 3; attempt++ {
		job, err := w.store.Get(ctx, jobID)
		if err != nil {
			log.Printf("Failed to load job %s for failure record: %v", jobID, err)
			return
		}
		if job.Status.IsTerminal() {
			return
		}

		updated, err := w.store.UpdateStatus(ctx, jobID, job.Status, store.Mutation{
			Status:    model.JobStatusFailed,
			ErrorInfo: &model.ErrorInfo{Kind: kind, Cause: cause},
		})
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			log.Printf("Failed to mark job %s as failed: %v", jobID, err)
			return
		}

		w.publisher.PublishJob(updated)
		return
	}
	log.Printf("Gave up recording failure for job %s after repeated conflicts", jobID)
}

// classifyFailure maps a stage error onto the recorded failure kind.
func classifyFailure(err error) (model.ErrorKind, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return model.ErrorKindTimeout, "pipeline timed out: " + err.Error()
	case errors.Is(err, client.ErrUnsupportedLanguage):
		return model.ErrorKindValidation, err.Error()
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrInvalidTransition):
		return model.ErrorKindStorageConflict, err.Error()
	case errors.Is(err, client.ErrUpstreamUnavailable):
		// Transient upstream condition outside the poll loop is terminal for
		// the job; keep its kind so the cause is diagnosable.
		return model.ErrorKindUpstreamTransient, err.Error()
	default:
		return model.ErrorKindUpstreamTerminal, err.Error()
	}
}
