package limits

import (
	"time"

	"mercator-hq/saturn/pkg/limits/ratelimit"
)

// ServiceLimits are the effective limits of one upstream service, after any
// tenant overrides have been merged.
type ServiceLimits struct {
	// RPM is the requests-per-minute limit. Zero means unlimited.
	RPM int

	// TPM is the tokens-per-minute limit. Zero means unlimited.
	TPM int

	// MaxConcurrent is an explicit concurrency override.
	MaxConcurrent *int

	// DefaultConcurrent is the operator default concurrency.
	DefaultConcurrent *int

	// AvgTokensPerRequest feeds the auto-computed concurrency.
	AvgTokensPerRequest int

	// AvgRequestDuration feeds the auto-computed concurrency.
	AvgRequestDuration time.Duration
}

// GateKey identifies a memoized gate.
type GateKey struct {
	Service     string
	RPM         int
	TPM         int
	Concurrency int
}

// GateStatus is a point-in-time snapshot of a Gate.
type GateStatus struct {
	Service    string          `json:"service"`
	RPM        ratelimit.Usage `json:"rpm"`
	TPM        ratelimit.Usage `json:"tpm"`
	Concurrent ratelimit.Usage `json:"concurrent"`
}

// Observer receives admission events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// ObserveAdmission is called once per Admit with the total wait and the
	// admission error, if any.
	ObserveAdmission(service string, wait time.Duration, err error)

	// ObserveInFlight reports the in-flight count after it changes.
	ObserveInFlight(service string, inFlight int64)
}

// Option configures a Gate or Registry.
type Option func(*options)
