package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/voicetranslator/api/internal/model"
)

const jobIndexKey = "jobs:index"

// RedisStore implements JobStore on Redis. Job records live as JSON under
// job:<id> with a retention TTL; jobs:index is a sorted set scored by
// createdAt UnixNano backing the createdAt-descending list.
type RedisStore struct {
	redis     *redis.Client
	retention time.Duration
}

// NewRedisStore creates a Redis-backed job store. retention <= 0 keeps
// records forever.
func NewRedisStore(redisClient *redis.Client, retention time.Duration) *RedisStore {
	return &RedisStore{
		redis:     redisClient,
		retention: retention,
	}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ok, err := s.redis.SetNX(ctx, jobKey(job.ID), data, s.retention).Result()
	if err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}
	if !ok {
		return ErrAlreadyExists
	}

	return s.redis.ZAdd(ctx, jobIndexKey, redis.Z{
		Score:  float64(job.CreatedAt.UnixNano()),
		Member: job.ID,
	}).Err()
}

// UpdateStatus runs the checked transition inside an optimistic WATCH
// transaction so concurrent writers on the same job serialize: the loser of
// a race observes ErrConflict and must re-read before retrying.
func (s *RedisStore) UpdateStatus(ctx context.Context, jobID string, expected model.JobStatus, mut Mutation) (*model.Job, error) {
	key := jobKey(jobID)
	var updated *model.Job

	err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var job model.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return err
		}

		next, err := applyMutation(&job, expected, mut, time.Now().UTC())
		if err != nil {
			return err
		}

		b, err := json.Marshal(next)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, s.retention)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *RedisStore) List(ctx context.Context, filter ListFilter, page Page) ([]*model.Job, string, error) {
	size := page.Size
	if size <= 0 {
		size = DefaultPageSize
	}

	// The cursor is "<score>:<consumed>": the sorted-set score of the last
	// entry scanned, plus how many entries with exactly that score earlier
	// pages already returned. Scores are float64, so createdAt UnixNano values
	// lose their low bits and distinct jobs can share one score; resuming with
	// an inclusive bound and skipping the consumed ties never drops an entry,
	// where an exclusive bound would skip every score-equal neighbor.
	max := "+inf"
	var cursorScore float64
	var skip int64
	if page.Cursor != "" {
		scorePart, skipPart, ok := strings.Cut(page.Cursor, ":")
		score, err := strconv.ParseFloat(scorePart, 64)
		if err != nil {
			return nil, "", fmt.Errorf("malformed cursor %q", page.Cursor)
		}
		if ok {
			skip, err = strconv.ParseInt(skipPart, 10, 64)
			if err != nil || skip < 0 {
				return nil, "", fmt.Errorf("malformed cursor %q", page.Cursor)
			}
		}
		cursorScore = score
		max = strconv.FormatFloat(score, 'f', -1, 64)
	}

	entries, err := s.redis.ZRevRangeByScoreWithScores(ctx, jobIndexKey, &redis.ZRangeBy{
		Min:    "-inf",
		Max:    max,
		Offset: skip,
		Count:  int64(size),
	}).Result()
	if err != nil {
		return nil, "", err
	}
	if len(entries) == 0 {
		return nil, "", nil
	}

	jobs := make([]*model.Job, 0, len(entries))
	for _, entry := range entries {
		jobID, _ := entry.Member.(string)
		job, err := s.Get(ctx, jobID)
		if errors.Is(err, ErrNotFound) {
			// Record expired; drop the stale index entry lazily.
			s.redis.ZRem(ctx, jobIndexKey, jobID)
			continue
		}
		if err != nil {
			return nil, "", err
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobs = append(jobs, job)
	}

	nextCursor := ""
	if len(entries) == size {
		lastScore := entries[size-1].Score
		var ties int64
		for i := size - 1; i >= 0 && entries[i].Score == lastScore; i-- {
			ties++
		}
		if page.Cursor != "" && lastScore == cursorScore {
			ties += skip
		}
		nextCursor = strconv.FormatFloat(lastScore, 'f', -1, 64) + ":" + strconv.FormatInt(ties, 10)
	}
	return jobs, nextCursor, nil
}
