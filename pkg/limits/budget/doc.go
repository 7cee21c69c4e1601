// Package budget derives the concurrency budget for an upstream service.
//
// # Overview
//
// The naive bound min(rpm, tpm/avgTokens) assumes every concurrent worker
// fires at the same instant. With short calls and high concurrency that
// empties the token window in a burst. The safe bound instead asks how many
// tokens the window affords during one call's lifetime:
//
//	byTPM = floor(tpm * avgDuration / 60s / avgTokens)
//	value = max(floor, min(rpm, byTPM))
//
// A value raised to the floor is reported as clamped and logged as a
// warning. That usually means the configured quotas are too tight for the
// declared call profile.
//
// # Precedence
//
// Resolve picks the first value present:
//
//  1. explicit override (max_concurrent)
//  2. operator default for the upstream (default_concurrent)
//  3. the auto-computed value
//
// # Usage
//
//	decision := budget.Resolve("llm", budget.Inputs{
//	    Params: budget.Params{
//	        RPM:                 800,
//	        TPM:                 40000,
//	        AvgTokensPerRequest: 3500,
//	        AvgRequestDuration:  20 * time.Second,
//	    },
//	}, budget.DefaultFloor, logger)
//	slots := decision.Value
package budget
