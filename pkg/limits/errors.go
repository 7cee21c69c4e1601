package limits

import "errors"

// ErrAdmissionTimeout is returned when admission did not complete within the
// gate's admission timeout. The returned error also wraps the context error.
var ErrAdmissionTimeout = errors.New("admission timeout")
