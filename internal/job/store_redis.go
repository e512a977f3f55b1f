package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deedscope/deedscope/internal/model"
)

const (
	redisJobPrefix = "deedscope:job:"
	redisRecentKey = "deedscope:jobs:recent"

	// jobTTL bounds how long finished jobs linger
	jobTTL = 7 * 24 * time.Hour
)

// RedisStore persists jobs in Redis so they survive restarts and are
// shared across replicas. Each job is one JSON value; a sorted set keyed
// by update time drives the recency listing.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects and verifies the Redis backend.
func NewRedisStore(ctx context.Context, cfg model.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Create(ctx context.Context, job *model.Job) error {
	return s.write(ctx, job)
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.Job, error) {
	raw, err := s.client.Get(ctx, redisJobPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// Update is read-modify-write. Jobs have a single writer (their
// orchestrator task) plus the cancel endpoint, so a transactional watch
// guards the rare concurrent cancel.
func (s *RedisStore) Update(ctx context.Context, id string, mutate func(*model.Job) error) (*model.Job, error) {
	key := redisJobPrefix + id
	var updated *model.Job

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get job: %w", err)
		}

		var job model.Job
		if err := json.Unmarshal(raw, &job); err != nil {
			return fmt.Errorf("decode job: %w", err)
		}
		if err := mutate(&job); err != nil {
			return err
		}

		encoded, err := json.Marshal(&job)
		if err != nil {
			return fmt.Errorf("encode job: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, jobTTL)
			pipe.ZAdd(ctx, redisRecentKey, redis.Z{
				Score:  float64(job.UpdatedAt.UnixMilli()),
				Member: job.ID,
			})
			return nil
		})
		if err != nil {
			return err
		}
		updated = &job
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *RedisStore) List(ctx context.Context, limit int) ([]model.JobSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	ids, err := s.client.ZRevRange(ctx, redisRecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	summaries := make([]model.JobSummary, 0, len(ids))
	for _, id := range ids {
		job, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Expired body with a lingering index entry
			continue
		}
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, job.Summary())
	}
	return summaries, nil
}

func (s *RedisStore) write(ctx context.Context, job *model.Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisJobPrefix+job.ID, encoded, jobTTL)
	pipe.ZAdd(ctx, redisRecentKey, redis.Z{
		Score:  float64(job.UpdatedAt.UnixMilli()),
		Member: job.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store job: %w", err)
	}
	return nil
}
