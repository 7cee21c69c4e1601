package ratelimit

// Usage is the current consumption of one limiter dimension.
type Usage struct {
	// Current is the amount granted within the trailing window.
	Current int64 `json:"current"`

	// Limit is the configured ceiling. Zero means unlimited.
	Limit int64 `json:"limit"`

	// Available is Limit-Current, floored at zero. -1 when unlimited.
	Available int64 `json:"available"`

	// Utilization is Current/Limit as a percentage. Zero when unlimited.
	Utilization float64 `json:"utilization"`
}

// Status is a point-in-time snapshot of a SlidingWindowLimiter.
type Status struct {
	Service string `json:"service"`
	RPM     Usage  `json:"rpm"`
	TPM     Usage  `json:"tpm"`
}

// NewUsage builds a Usage from a current amount and a limit.
func NewUsage(current, limit int64) Usage {
	u := Usage{Current: current, Limit: limit, Available: -1}
	if limit > 0 {
		u.Utilization = float64(current) / float64(limit) * 100
		u.Available = max(0, limit-current)
	}
	return u
}
