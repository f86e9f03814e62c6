package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/voicetranslator/api/internal/client"
	"github.com/voicetranslator/api/internal/model"
	"github.com/voicetranslator/api/internal/store"
	"github.com/voicetranslator/api/internal/worker"
)

const (
	QueuePipeline = "pipeline"

	resultURLExpiry = time.Hour
	uploadURLExpiry = 15 * time.Minute
)

// TaskEnqueuer queues pipeline executions. *asynq.Client satisfies it.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TranslationService triggers pipeline executions and serves job reads.
//
// Start validates the request fully before any record exists: a rejected
// trigger leaves no trace in the store.
type TranslationService struct {
	store       store.JobStore
	asynqClient TaskEnqueuer
	storage     client.StorageClient
	publisher   worker.Publisher

	overallTimeout time.Duration
	retention      time.Duration
}

// NewTranslationService creates the trigger/read service.
func NewTranslationService(jobStore store.JobStore, asynqClient TaskEnqueuer, storage client.StorageClient, publisher worker.Publisher, overallTimeout, retention time.Duration) *TranslationService {
	return &TranslationService{
		store:          jobStore,
		asynqClient:    asynqClient,
		storage:        storage,
		publisher:      publisher,
		overallTimeout: overallTimeout,
		retention:      retention,
	}
}

// Start validates the trigger request, creates the job record (STARTED) and
// launches an asynchronous pipeline execution. It returns the job and
// execution identifiers immediately without waiting for the pipeline.
func (s *TranslationService) Start(ctx context.Context, req *model.TranslationStartRequest) (*model.TranslationStartResponse, error) {
	if !model.IsSupportedLanguage(req.TargetLanguage) {
		return nil, fmt.Errorf("%w: %q", client.ErrUnsupportedLanguage, req.TargetLanguage)
	}

	key, err := client.ResolveAudioKey(s.storage, req.SourceAudioRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", client.ErrAudioNotFound, err)
	}
	size, err := s.storage.Size(ctx, key)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, fmt.Errorf("%w: %s is empty", client.ErrAudioNotFound, req.SourceAudioRef)
	}

	jobID := uuid.New().String()
	executionID := uuid.New().String()
	now := time.Now().UTC()

	job := &model.Job{
		ID:             jobID,
		Status:         model.JobStatusStarted,
		SourceAudioRef: req.SourceAudioRef,
		TargetLanguage: model.Language(req.TargetLanguage),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	s.publisher.PublishJob(job)

	task, err := worker.NewPipelineTask(jobID, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// Stage failures are handled inside the orchestrator; the task itself is
	// never auto-retried.
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue(QueuePipeline),
		asynq.TaskID(executionID),
		asynq.MaxRetry(0),
		asynq.Timeout(s.overallTimeout+time.Minute),
		asynq.Retention(s.retention),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.TranslationStartResponse{
		JobID:       jobID,
		ExecutionID: executionID,
		Status:      model.JobStatusStarted,
		CreatedAt:   now,
	}, nil
}

// Get returns a job snapshot with a time-limited playback URL when the
// synthesized clip exists.
func (s *TranslationService) Get(ctx context.Context, jobID string) (*model.TranslationResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, job), nil
}

// List returns a page of jobs, newest first.
func (s *TranslationService) List(ctx context.Context, status, cursor string, pageSize int) (*model.TranslationListResponse, error) {
	filter := store.ListFilter{}
	if status != "" {
		st := model.JobStatus(status)
		if !st.IsValid() {
			return nil, fmt.Errorf("unknown status filter %q", status)
		}
		filter.Status = st
	}

	jobs, nextCursor, err := s.store.List(ctx, filter, store.Page{Cursor: cursor, Size: pageSize})
	if err != nil {
		return nil, err
	}

	items := make([]model.TranslationResponse, 0, len(jobs))
	for _, job := range jobs {
		items = append(items, *s.toResponse(ctx, job))
	}

	return &model.TranslationListResponse{
		Items:      items,
		NextCursor: nextCursor,
	}, nil
}

// CreateUpload hands out a presigned PUT URL for a new source clip.
func (s *TranslationService) CreateUpload(ctx context.Context, req *model.UploadRequest) (*model.UploadResponse, error) {
	ext := strings.ToLower(path.Ext(req.FileName))
	if ext == "" {
		ext = ".wav"
	}
	key := fmt.Sprintf("recordings/%s%s", uuid.New().String(), ext)

	uploadURL, err := s.storage.GetSignedUploadURL(ctx, key, uploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload URL: %w", err)
	}

	return &model.UploadResponse{
		UploadURL:      uploadURL,
		SourceAudioRef: s.storage.Ref(key),
		ExpiresAt:      time.Now().UTC().Add(uploadURLExpiry),
	}, nil
}

// Languages returns the supported target language catalog.
func (s *TranslationService) Languages() *model.LanguagesResponse {
	return &model.LanguagesResponse{Languages: model.SupportedLanguages}
}

func (s *TranslationService) toResponse(ctx context.Context, job *model.Job) *model.TranslationResponse {
	resp := &model.TranslationResponse{Job: *job}
	if job.ResultAudioRef != "" {
		if key, err := client.ResolveAudioKey(s.storage, job.ResultAudioRef); err == nil {
			if url, err := s.storage.GetSignedURL(ctx, key, resultURLExpiry); err == nil {
				resp.ResultAudioURL = url
			}
		}
	}
	return resp
}
