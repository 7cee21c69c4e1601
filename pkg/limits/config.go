package limits

import "mercator-hq/saturn/pkg/config"

// FromUpstream converts a defaulted upstream configuration into the limits
// its gate enforces. A negative rpm or tpm in configuration disables that
// dimension.
func FromUpstream(u *config.UpstreamConfig) ServiceLimits {
	sl := ServiceLimits{
		RPM:                 max(u.RequestsPerMinute, 0),
		TPM:                 max(u.TokensPerMinute, 0),
		AvgTokensPerRequest: u.AvgTokensPerRequest,
		AvgRequestDuration:  u.AvgRequestDuration,
	}
	if u.MaxConcurrent != nil {
		v := *u.MaxConcurrent
		sl.MaxConcurrent = &v
	}
	if u.DefaultConcurrent != nil {
		v := *u.DefaultConcurrent
		sl.DefaultConcurrent = &v
	}
	return sl
}

// RegistryConfigFrom builds a RegistryConfig from the limits section.
func RegistryConfigFrom(c *config.LimitsConfig) RegistryConfig {
	return RegistryConfig{
		Floor:            c.ConcurrencyFloor,
		AdmissionTimeout: c.AdmissionTimeout,
		Window:           c.Window,
	}
}
