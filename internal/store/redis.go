package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kiranshivaraju/lookscore/internal/cache"
	"github.com/kiranshivaraju/lookscore/pkg/models"
)

// expiryGrace keeps Redis records a little past the job TTL so the service,
// not Redis, decides when a job is gone.
const expiryGrace = time.Minute

// RedisStore keeps jobs as JSON documents under job:<id>, shared by every
// server instance pointed at the same Redis.
type RedisStore struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewRedisStore(c cache.Cache, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

func (s *RedisStore) Create(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	ok, err := s.cache.SetIfAbsent(ctx, cache.JobKey(job.ID), data, s.ttl+expiryGrace)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	if !ok {
		return ErrDuplicateKey
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.get(ctx, cache.JobKey(id))
}

func (s *RedisStore) get(ctx context.Context, key string) (*models.Job, error) {
	data, found, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	var j models.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", key, err)
	}
	return &j, nil
}

// Set checks the transition against the stored record, then overwrites it only
// if the key still exists. The read and write are not atomic; the single
// writer per job makes that safe.
func (s *RedisStore) Set(ctx context.Context, job *models.Job) error {
	current, err := s.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := checkTransition(current.Status, job.Status); err != nil {
		return err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	ok, err := s.cache.SetIfExists(ctx, cache.JobKey(job.ID), data, cache.KeepTTL)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, cache.JobKey(id)); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*models.Job, error) {
	keys, err := s.cache.Keys(ctx, cache.JobKeyPattern)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	jobs := make([]*models.Job, 0, len(keys))
	for _, key := range keys {
		j, err := s.get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			// expired between SCAN and GET
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

var _ JobStore = (*RedisStore)(nil)
