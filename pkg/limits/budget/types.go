package budget

import "time"

// DefaultFloor is the minimum concurrency a computed budget is clamped to.
const DefaultFloor = 2

// UnlimitedConcurrency is used when neither RPM nor TPM bounds the service.
const UnlimitedConcurrency = 16

// Params describes the quota and call profile of one upstream service.
type Params struct {
	// RPM is the requests-per-minute limit. Zero or less means unlimited.
	RPM int

	// TPM is the tokens-per-minute limit. Zero or less means unlimited.
	TPM int

	// AvgTokensPerRequest is the typical token cost of one call.
	AvgTokensPerRequest int

	// AvgRequestDuration is the typical wall time of one call.
	AvgRequestDuration time.Duration
}

// Result is the outcome of Compute.
type Result struct {
	// Value is the concurrency budget, never below the floor.
	Value int

	// ByRPM is the RPM bound, or -1 when RPM is unlimited.
	ByRPM int

	// ByTPM is the TPM bound, or -1 when TPM is unlimited.
	ByTPM int

	// Floor is the floor that was applied.
	Floor int

	// Clamped is true when the raw bound was below Floor.
	Clamped bool
}

// Source names where a resolved concurrency value came from.
type Source string

const (
	// SourceOverride is an explicit max_concurrent value.
	SourceOverride Source = "override"

	// SourceDefault is an operator default_concurrent value.
	SourceDefault Source = "default"

	// SourceAuto is the value derived by Compute.
	SourceAuto Source = "auto"
)

// Inputs are the candidates Resolve chooses between.
type Inputs struct {
	// Override is the explicit concurrency, if configured.
	Override *int

	// OperatorDefault is the operator's default for the upstream, if configured.
	OperatorDefault *int

	// Params feed the auto-computed value.
	Params Params
}

// Decision is the resolved concurrency for one service.
type Decision struct {
	Service string
	Value   int
	Source  Source

	// Computed is populated when Source is SourceAuto.
	Computed *Result
}
