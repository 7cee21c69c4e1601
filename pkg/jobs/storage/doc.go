// Package storage provides jobs.Backend implementations and the retention
// scheduler that removes expired records.
//
// Three backends are available:
//
//   - memory: in-process maps, lost on restart. Suitable for a single node
//     and for tests.
//   - redis: native key expiry, shared between nodes.
//   - sqlite: a durable single-node file in WAL mode.
//
// Open selects a backend from configuration. If the configured backend
// cannot be reached it logs an error and falls back to memory, so job
// tracking keeps working with reduced durability. OpenStrict returns the
// error instead.
package storage

import "errors"

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// DefaultKeyPrefix namespaces redis keys when none is configured.
const DefaultKeyPrefix = "saturn"

// ErrBackendUnavailable is returned by OpenStrict when the configured
// backend cannot be opened.
var ErrBackendUnavailable = errors.New("job backend unavailable")
