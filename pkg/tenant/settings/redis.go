package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"mercator-hq/saturn/pkg/tenant"
)

// RedisStore keeps each tenant's settings as a JSON value with no expiry.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisStore returns a store under keys "<prefix>:<tenant>".
func NewRedisStore(client redis.Cmdable, prefix string, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisStore{
		client: client,
		prefix: strings.TrimSuffix(prefix, ":"),
		logger: logger.With("component", "tenant.settings", "store", "redis"),
		now:    time.Now,
	}
}

func (r *RedisStore) key(tenantID string) string {
	return r.prefix + ":" + tenantID
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, tenantID string) (*Settings, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("no tenant settings found", "tenant_id", tenantID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings for tenant %s: %w", tenantID, err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode settings for tenant %s: %w", tenantID, err)
	}
	s.TenantID = tenantID
	return &s, nil
}

// Put implements Store.
func (r *RedisStore) Put(ctx context.Context, s *Settings) error {
	if s == nil || s.TenantID == "" {
		return ErrMissingTenantID
	}
	if err := tenant.ValidateID(s.TenantID); err != nil {
		return err
	}

	existing, err := r.Get(ctx, s.TenantID)
	if err != nil {
		return err
	}
	stamp(s, existing, r.now())

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings for tenant %s: %w", s.TenantID, err)
	}
	if err := r.client.Set(ctx, r.key(s.TenantID), data, 0).Err(); err != nil {
		return fmt.Errorf("store settings for tenant %s: %w", s.TenantID, err)
	}

	r.logger.Info("tenant settings saved", "tenant_id", s.TenantID)
	return nil
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, tenantID string) (bool, error) {
	if err := tenant.ValidateID(tenantID); err != nil {
		return false, err
	}

	n, err := r.client.Del(ctx, r.key(tenantID)).Result()
	if err != nil {
		return false, fmt.Errorf("delete settings for tenant %s: %w", tenantID, err)
	}
	if n == 0 {
		r.logger.Warn("tenant settings not found", "tenant_id", tenantID)
		return false, nil
	}

	r.logger.Info("tenant settings deleted", "tenant_id", tenantID)
	return true, nil
}

// List implements Store. It scans the key space incrementally.
func (r *RedisStore) List(ctx context.Context) ([]string, error) {
	var (
		ids    []string
		cursor uint64
	)
	match := r.prefix + ":*"
	for {
		keys, next, err := r.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan tenant settings: %w", err)
		}
		for _, k := range keys {
			id := strings.TrimPrefix(k, r.prefix+":")
			if tenant.ValidateID(id) == nil {
				ids = append(ids, id)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	sort.Strings(ids)
	return ids, nil
}
