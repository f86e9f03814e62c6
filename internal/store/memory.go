package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/voicetranslator/api/internal/model"
)

// MemoryStore is an in-memory JobStore with the same CAS semantics as the
// Redis store. It backs unit tests and Redis-less development.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*model.Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*model.Job)}
}

func (s *MemoryStore) Create(ctx context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return ErrAlreadyExists
	}
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, jobID string, expected model.JobStatus, mut Mutation) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}

	updated, err := applyMutation(job, expected, mut, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.jobs[jobID] = updated
	snapshot := *updated
	return &snapshot, nil
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter, page Page) ([]*model.Job, string, error) {
	size := page.Size
	if size <= 0 {
		size = DefaultPageSize
	}

	var maxScore int64 = 1<<63 - 1
	if page.Cursor != "" {
		parsed, err := strconv.ParseInt(page.Cursor, 10, 64)
		if err != nil {
			return nil, "", err
		}
		maxScore = parsed - 1
	}

	s.mu.Lock()
	all := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if job.CreatedAt.UnixNano() > maxScore {
			continue
		}
		snapshot := *job
		all = append(all, &snapshot)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if len(all) > size {
		all = all[:size]
	}

	jobs := make([]*model.Job, 0, len(all))
	for _, job := range all {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobs = append(jobs, job)
	}

	nextCursor := ""
	if len(all) == size {
		nextCursor = strconv.FormatInt(all[len(all)-1].CreatedAt.UnixNano(), 10)
	}
	return jobs, nextCursor, nil
}
