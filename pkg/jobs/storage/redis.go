package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"mercator-hq/saturn/pkg/jobs"
)

// releaseScript deletes a subject claim only if the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the expiry of a subject claim only if the caller still
// holds it. A ttl of zero removes the expiry.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[2]) > 0 then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return redis.call("PERSIST", KEYS[1])
`)

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// Prefix namespaces every key. Default: "saturn".
	Prefix string

	// IndexTTL is applied to the per-tenant index sets on every write, so an
	// idle tenant's indexes expire after its records do. Zero keeps them.
	IndexTTL time.Duration
}

// Redis is a jobs.Backend on Redis. Expiry is native, so Cleanup has
// nothing to do; stale index members are pruned on ListJobs.
//
// Key layout:
//
//	<prefix>:job:<tenant>:<job>          job JSON
//	<prefix>:jobs:<tenant>               set of job ids
//	<prefix>:batch:<tenant>:<batch>      batch JSON
//	<prefix>:batches:<tenant>            set of batch ids
//	<prefix>:subject:<tenant>:<subject>  id of the job holding the subject
type Redis struct {
	client   redis.UniversalClient
	prefix   string
	indexTTL time.Duration
}

// NewRedis creates a backend over client. Close closes the client.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	prefix := strings.TrimSuffix(cfg.Prefix, ":")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, indexTTL: cfg.IndexTTL}
}

// Name implements jobs.Backend.
func (r *Redis) Name() string { return BackendRedis }

func (r *Redis) jobKey(tenantID, jobID string) string {
	return r.prefix + ":job:" + tenantID + ":" + jobID
}

func (r *Redis) jobIndexKey(tenantID string) string {
	return r.prefix + ":jobs:" + tenantID
}

func (r *Redis) batchKey(tenantID, batchID string) string {
	return r.prefix + ":batch:" + tenantID + ":" + batchID
}

func (r *Redis) batchIndexKey(tenantID string) string {
	return r.prefix + ":batches:" + tenantID
}

func (r *Redis) subjectKey(tenantID, subjectID string) string {
	return r.prefix + ":subject:" + tenantID + ":" + subjectID
}

// InsertJob implements jobs.Backend.
func (r *Redis) InsertJob(ctx context.Context, job *jobs.Job, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return false, fmt.Errorf("failed to marshal job: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.jobKey(job.TenantID, job.ID), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to insert job: %w", err)
	}
	if !ok {
		return false, nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, r.jobIndexKey(job.TenantID), job.ID)
		if r.indexTTL > 0 {
			pipe.Expire(ctx, r.jobIndexKey(job.TenantID), r.indexTTL)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to index job: %w", err)
	}
	return true, nil
}

// PutJob implements jobs.Backend.
func (r *Redis) PutJob(ctx context.Context, job *jobs.Job, ttl time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.jobKey(job.TenantID, job.ID), data, ttl)
		pipe.SAdd(ctx, r.jobIndexKey(job.TenantID), job.ID)
		if r.indexTTL > 0 {
			pipe.Expire(ctx, r.jobIndexKey(job.TenantID), r.indexTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store job: %w", err)
	}
	return nil
}

// GetJob implements jobs.Backend.
func (r *Redis) GetJob(ctx context.Context, tenantID, jobID string) (*jobs.Job, error) {
	data, err := r.client.Get(ctx, r.jobKey(tenantID, jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}

	var j jobs.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &j, nil
}

// DeleteJob implements jobs.Backend.
func (r *Redis) DeleteJob(ctx context.Context, tenantID, jobID string) (bool, error) {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, r.jobKey(tenantID, jobID))
		pipe.SRem(ctx, r.jobIndexKey(tenantID), jobID)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete job: %w", err)
	}
	return del.Val() > 0, nil
}

// ListJobs implements jobs.Backend.
func (r *Redis) ListJobs(ctx context.Context, tenantID string) ([]*jobs.Job, error) {
	ids, err := r.client.SMembers(ctx, r.jobIndexKey(tenantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.jobKey(tenantID, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	out := make([]*jobs.Job, 0, len(values))
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var j jobs.Job
		if err := json.Unmarshal([]byte(s), &j); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job %s: %w", ids[i], err)
		}
		out = append(out, &j)
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.jobIndexKey(tenantID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune job index: %w", err)
		}
	}
	return out, nil
}

// PutBatch implements jobs.Backend.
func (r *Redis) PutBatch(ctx context.Context, batch *jobs.Batch, ttl time.Duration) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.batchKey(batch.TenantID, batch.ID), data, ttl)
		pipe.SAdd(ctx, r.batchIndexKey(batch.TenantID), batch.ID)
		if r.indexTTL > 0 {
			pipe.Expire(ctx, r.batchIndexKey(batch.TenantID), r.indexTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store batch: %w", err)
	}
	return nil
}

// GetBatch implements jobs.Backend.
func (r *Redis) GetBatch(ctx context.Context, tenantID, batchID string) (*jobs.Batch, error) {
	data, err := r.client.Get(ctx, r.batchKey(tenantID, batchID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load batch: %w", err)
	}

	var b jobs.Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return &b, nil
}

// ListBatches implements jobs.Backend.
func (r *Redis) ListBatches(ctx context.Context, tenantID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.batchIndexKey(tenantID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read batch index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	live := ids[:0]
	var stale []any
	for _, id := range ids {
		n, err := r.client.Exists(ctx, r.batchKey(tenantID, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to check batch %s: %w", id, err)
		}
		if n == 0 {
			stale = append(stale, id)
			continue
		}
		live = append(live, id)
	}
	if len(stale) > 0 {
		if err := r.client.SRem(ctx, r.batchIndexKey(tenantID), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune batch index: %w", err)
		}
	}
	return live, nil
}

// ClaimSubject implements jobs.Backend.
func (r *Redis) ClaimSubject(ctx context.Context, tenantID, subjectID, jobID string, ttl time.Duration) (string, bool, error) {
	key := r.subjectKey(tenantID, subjectID)
	ok, err := r.client.SetNX(ctx, key, jobID, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to claim subject: %w", err)
	}
	if ok {
		return jobID, true, nil
	}

	holder, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Released between SETNX and GET; report no holder so the caller
		// retries.
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read subject holder: %w", err)
	}
	if holder != jobID {
		return holder, false, nil
	}

	err = extendScript.Run(ctx, r.client, []string{key}, jobID, ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", false, fmt.Errorf("failed to extend claim: %w", err)
	}
	return holder, true, nil
}

// SubjectHolder implements jobs.Backend.
func (r *Redis) SubjectHolder(ctx context.Context, tenantID, subjectID string) (string, error) {
	holder, err := r.client.Get(ctx, r.subjectKey(tenantID, subjectID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read subject holder: %w", err)
	}
	return holder, nil
}

// ReleaseSubject implements jobs.Backend.
func (r *Redis) ReleaseSubject(ctx context.Context, tenantID, subjectID, jobID string) error {
	err := releaseScript.Run(ctx, r.client, []string{r.subjectKey(tenantID, subjectID)}, jobID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to release subject: %w", err)
	}
	return nil
}

// Cleanup implements jobs.Backend. Redis expires records itself.
func (r *Redis) Cleanup(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

// Ping implements jobs.Backend.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close implements jobs.Backend.
func (r *Redis) Close() error {
	return r.client.Close()
}
