package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/voicetranslator/api/internal/model"
)

func newJob(id string, createdAt time.Time) *model.Job {
	return &model.Job{
		ID:             id,
		Status:         model.JobStatusStarted,
		SourceAudioRef: "s3://bucket/clip.wav",
		TargetLanguage: model.LanguageES,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestCreateThenGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("j1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	job, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if job.Status != model.JobStatusStarted {
		t.Errorf("expected STARTED, got %s", job.Status)
	}
	if job.ResultAudioRef != "" || job.ErrorInfo != nil {
		t.Error("fresh job must carry neither resultAudioRef nor errorInfo")
	}
}

func TestCreateDuplicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("j1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.Create(ctx, newJob("j1", time.Now())); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_CASLoserGetsConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("j1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Both writers observed STARTED; only one CAS round can win.
	if _, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusTranscribing}); err != nil {
		t.Fatalf("first update failed: %v", err)
	}
	_, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusFailed, ErrorInfo: &model.ErrorInfo{Kind: model.ErrorKindTimeout, Cause: "late"}})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for the loser, got %v", err)
	}

	// After re-reading, the loser may retry against the fresh status.
	job, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "j1", job.Status, Mutation{Status: model.JobStatusFailed, ErrorInfo: &model.ErrorInfo{Kind: model.ErrorKindTimeout, Cause: "late"}}); err != nil {
		t.Errorf("retry after re-read should succeed, got %v", err)
	}
}

func TestUpdateStatus_RejectsRegression(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("j1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusTranscribed, TranscriptText: "hi"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	_, err := s.UpdateStatus(ctx, "j1", model.JobStatusTranscribed, Mutation{Status: model.JobStatusTranscribing})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on regression, got %v", err)
	}
}

func TestUpdateStatus_TerminalIsFrozen(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("j1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusFailed, ErrorInfo: &model.ErrorInfo{Kind: model.ErrorKindTimeout, Cause: "t"}}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	_, err := s.UpdateStatus(ctx, "j1", model.JobStatusFailed, Mutation{Status: model.JobStatusSucceeded, ResultAudioRef: "s3://b/r.mp3"})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected terminal job to reject updates, got %v", err)
	}
}

func TestUpdateStatus_ResultAndErrorMutuallyExclusive(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("j1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// resultAudioRef may only appear on SUCCEEDED, errorInfo only on FAILED.
	if _, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusTranscribing, ResultAudioRef: "s3://b/r.mp3"}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected result ref outside SUCCEEDED to be rejected, got %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusTranscribing, ErrorInfo: &model.ErrorInfo{Kind: model.ErrorKindTimeout, Cause: "t"}}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected errorInfo outside FAILED to be rejected, got %v", err)
	}
}

func TestUpdateStatus_TranscriptImmutableOnceSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Create(ctx, newJob("j1", time.Now())); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if _, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusTranscribed, TranscriptText: "original"}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	job, err := s.UpdateStatus(ctx, "j1", model.JobStatusTranscribed, Mutation{Status: model.JobStatusTranslating, TranscriptText: "overwritten"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if job.TranscriptText != "original" {
		t.Errorf("transcript must be immutable once set, got %q", job.TranscriptText)
	}
}

func TestList_OrderAndPagination(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		job := newJob(fmt.Sprintf("j%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := s.Create(ctx, job); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	page1, cursor, err := s.List(ctx, ListFilter{}, Page{Size: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page1) != 3 {
		t.Fatalf("expected 3 items, got %d", len(page1))
	}
	if page1[0].ID != "j4" || page1[2].ID != "j2" {
		t.Errorf("expected newest-first ordering, got %s..%s", page1[0].ID, page1[2].ID)
	}
	if cursor == "" {
		t.Fatal("expected a next cursor")
	}

	page2, _, err := s.List(ctx, ListFilter{}, Page{Cursor: cursor, Size: 3})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page2) != 2 {
		t.Fatalf("expected 2 items on last page, got %d", len(page2))
	}
	if page2[0].ID != "j1" || page2[1].ID != "j0" {
		t.Errorf("unexpected second page: %s, %s", page2[0].ID, page2[1].ID)
	}
}

func TestList_StatusFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 3; i++ {
		if err := s.Create(ctx, newJob(fmt.Sprintf("j%d", i), now.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if _, err := s.UpdateStatus(ctx, "j1", model.JobStatusStarted, Mutation{Status: model.JobStatusFailed, ErrorInfo: &model.ErrorInfo{Kind: model.ErrorKindTimeout, Cause: "t"}}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	jobs, _, err := s.List(ctx, ListFilter{Status: model.JobStatusFailed}, Page{Size: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "j1" {
		t.Errorf("expected only j1, got %d items", len(jobs))
	}
}
