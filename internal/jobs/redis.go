package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"recipe-ingest/internal/apperr"
	"recipe-ingest/internal/models"
)

const (
	jobKeyPrefix = "ingest:job:"
	startIndex   = "ingest:jobs:by_start"
)

// RedisStore keeps job state in Redis so multiple API instances can serve
// progress polls for the same job. Each job is a JSON blob under its own
// key plus a start-time ZSET entry that drives the sweep. The cancellation
// flag lives in a sibling key so the runner's read-modify-write updates can
// never clobber a cancel that landed in between.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl bounds how long a job key may
// outlive the sweep cycle; zero disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func jobKey(id string) string    { return jobKeyPrefix + id }
func cancelKey(id string) string { return jobKeyPrefix + id + ":cancelled" }

func (s *RedisStore) Create(ctx context.Context, kind models.JobKind, initial models.Stage, message string) (models.IngestionJob, error) {
	job := models.IngestionJob{
		ID:        models.NewJobID(kind),
		Kind:      kind,
		Stage:     initial,
		Message:   message,
		StartTime: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return models.IngestionJob{}, fmt.Errorf("marshal job: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), raw, s.ttl)
	pipe.ZAdd(ctx, startIndex, redis.Z{Score: float64(job.StartTime.UnixMilli()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return models.IngestionJob{}, fmt.Errorf("store job: %w", err)
	}
	return job, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (models.IngestionJob, error) {
	raw, err := s.client.Get(ctx, jobKey(id)).Result()
	if err == redis.Nil {
		return models.IngestionJob{}, apperr.Newf(apperr.KindNotFound, "job %s not found", id)
	}
	if err != nil {
		return models.IngestionJob{}, fmt.Errorf("get job: %w", err)
	}
	var job models.IngestionJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return models.IngestionJob{}, fmt.Errorf("unmarshal job: %w", err)
	}
	if n, err := s.client.Exists(ctx, cancelKey(id)).Result(); err == nil && n > 0 {
		job.Cancelled = true
	}
	return job, nil
}

// Update is a read-modify-write; the single-writer-per-job invariant makes
// that safe without optimistic locking.
func (s *RedisStore) Update(ctx context.Context, id string, upd models.JobUpdate) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	applyUpdate(&job, upd)
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	return s.client.Set(ctx, jobKey(id), raw, s.ttl).Err()
}

func (s *RedisStore) Cancel(ctx context.Context, id string) (bool, error) {
	ttlMillis := s.ttl.Milliseconds()
	res, err := cancelScript.Run(ctx, s.client, []string{jobKey(id), cancelKey(id)}, ttlMillis).Result()
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	n, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected type from cancel script: %T", res)
	}
	return n == 1, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, jobKey(id), cancelKey(id))
	pipe.ZRem(ctx, startIndex, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if del.Val() == 0 {
		return apperr.Newf(apperr.KindNotFound, "job %s not found", id)
	}
	return nil
}

func (s *RedisStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge).UnixMilli()
	ids, err := s.client.ZRangeByScore(ctx, startIndex, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scan start index: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	pipe := s.client.TxPipeline()
	for _, id := range ids {
		pipe.Del(ctx, jobKey(id), cancelKey(id))
		pipe.ZRem(ctx, startIndex, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("sweep jobs: %w", err)
	}
	return len(ids), nil
}

// cancelScript refuses to flag absent or terminal jobs, atomically with the
// stage read.
var cancelScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return 0 end
local job = cjson.decode(raw)
if job.stage == 'complete' or job.stage == 'error' then return 0 end
if tonumber(ARGV[1]) > 0 then
  redis.call('SET', KEYS[2], '1', 'PX', ARGV[1])
else
  redis.call('SET', KEYS[2], '1')
end
return 1
`)
