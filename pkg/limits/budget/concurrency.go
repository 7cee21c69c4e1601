package budget

import (
	"log/slog"
	"time"
)

// Compute returns the concurrency budget for the given parameters.
//
// A floor below DefaultFloor is raised to DefaultFloor. RPM and TPM of zero
// or less are unlimited; when both are unlimited the result is
// max(floor, UnlimitedConcurrency). A non-positive AvgTokensPerRequest is
// treated as 1 and a non-positive AvgRequestDuration as one second.
//
// The result is monotonically non-decreasing in RPM and TPM.
func Compute(p Params, floor int) Result {
	if floor < DefaultFloor {
		floor = DefaultFloor
	}

	res := Result{ByRPM: -1, ByTPM: -1, Floor: floor}

	if p.RPM > 0 {
		res.ByRPM = p.RPM
	}
	if p.TPM > 0 {
		res.ByTPM = concurrencyByTPM(p)
	}

	var raw int
	switch {
	case res.ByRPM < 0 && res.ByTPM < 0:
		raw = UnlimitedConcurrency
	case res.ByRPM < 0:
		raw = res.ByTPM
	case res.ByTPM < 0:
		raw = res.ByRPM
	default:
		raw = min(res.ByRPM, res.ByTPM)
	}

	res.Value = raw
	if raw < floor {
		res.Value = floor
		res.Clamped = true
	}
	return res
}

// concurrencyByTPM computes floor(tpm * duration / 60s / avgTokens) in
// integer milliseconds so the result is exact.
func concurrencyByTPM(p Params) int {
	avgTokens := int64(p.AvgTokensPerRequest)
	if avgTokens <= 0 {
		avgTokens = 1
	}
	duration := p.AvgRequestDuration
	if duration <= 0 {
		duration = time.Second
	}

	durationMs := duration.Milliseconds()
	if durationMs <= 0 {
		durationMs = 1
	}

	return int(int64(p.TPM) * durationMs / (int64(time.Minute/time.Millisecond) * avgTokens))
}

// Resolve applies the configuration precedence for one service and logs the
// outcome. A clamped auto-computed value is logged as a warning.
//
// Override and OperatorDefault values below one are ignored.
func Resolve(service string, in Inputs, floor int, logger *slog.Logger) Decision {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "limits.budget", "service", service)

	if in.Override != nil && *in.Override > 0 {
		return Decision{Service: service, Value: *in.Override, Source: SourceOverride}
	}
	if in.OperatorDefault != nil && *in.OperatorDefault > 0 {
		return Decision{Service: service, Value: *in.OperatorDefault, Source: SourceDefault}
	}

	res := Compute(in.Params, floor)
	if res.Clamped {
		logger.Warn("computed concurrency below floor, clamping; check rpm/tpm against call profile",
			"rpm", in.Params.RPM,
			"tpm", in.Params.TPM,
			"avg_tokens_per_request", in.Params.AvgTokensPerRequest,
			"avg_request_duration", in.Params.AvgRequestDuration,
			"by_rpm", res.ByRPM,
			"by_tpm", res.ByTPM,
			"floor", res.Floor,
		)
	} else {
		logger.Debug("computed concurrency",
			"value", res.Value,
			"by_rpm", res.ByRPM,
			"by_tpm", res.ByTPM,
		)
	}

	return Decision{Service: service, Value: res.Value, Source: SourceAuto, Computed: &res}
}
