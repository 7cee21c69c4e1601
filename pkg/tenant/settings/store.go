package settings

import (
	"context"
	"errors"
	"time"
)

// ErrMissingTenantID is returned by Put when the settings' TenantID is empty.
var ErrMissingTenantID = errors.New("settings tenant id is required")

// Store persists tenant settings.
type Store interface {
	// Get returns the tenant's settings, or (nil, nil) if none exist.
	Get(ctx context.Context, tenantID string) (*Settings, error)

	// Put creates or replaces the tenant's settings, stamping CreatedAt on
	// first write and UpdatedAt on every write.
	Put(ctx context.Context, s *Settings) error

	// Delete removes the tenant's settings and reports whether they existed.
	Delete(ctx context.Context, tenantID string) (bool, error)

	// List returns the ids of all tenants with settings.
	List(ctx context.Context) ([]string, error)
}

// stamp sets write timestamps on s, keeping an existing CreatedAt.
func stamp(s *Settings, existing *Settings, now time.Time) {
	s.UpdatedAt = now.UTC()
	switch {
	case existing != nil && !existing.CreatedAt.IsZero():
		s.CreatedAt = existing.CreatedAt
	case s.CreatedAt.IsZero():
		s.CreatedAt = s.UpdatedAt
	}
}
