package tenant

import (
	"errors"
	"fmt"
)

// ErrInvalidTenant matches every InvalidTenantError.
var ErrInvalidTenant = errors.New("invalid tenant id")

// InvalidTenantError describes why a tenant id was rejected.
type InvalidTenantError struct {
	TenantID string
	Reason   string
}

// Error implements error.
func (e *InvalidTenantError) Error() string {
	return fmt.Sprintf("invalid tenant id %q: %s", e.TenantID, e.Reason)
}

// Is reports whether target is ErrInvalidTenant.
func (e *InvalidTenantError) Is(target error) bool {
	return target == ErrInvalidTenant
}
