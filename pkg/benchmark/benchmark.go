// Package benchmark measures the selective-disclosure schemes side by
// side and records the results as CSV, one file per metric with one
// column per scheme.
package benchmark

import (
	"time"

	"github.com/pkg/errors"
)

// Metric file names. Presentation metrics are prefixed with the claim
// count they were measured at, e.g. "20_vp_issuance_duration".
const (
	MetricInitialization = "initialization_duration"
	MetricKeypairLength  = "issuer_keypair_length"
	MetricVCIssuance     = "vc_issuance_duration"
	MetricVCVerification = "vc_verification_duration"
	MetricVCLength       = "vc_jwt_length"
	MetricVPIssuance     = "vp_issuance_duration"
	MetricVPVerification = "vp_verification_duration"
	MetricVPLength       = "vp_jwt_length"
)

// Time runs fn the given number of iterations and returns the average
// duration of one call. The first error aborts the measurement.
func Time(iterations int, fn func() error) (time.Duration, error) {
	if iterations <= 0 {
		return 0, errors.New("iterations must be positive")
	}
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := fn(); err != nil {
			return 0, err
		}
	}
	return time.Since(start) / time.Duration(iterations), nil
}
