package qc

import "math"

// QC outcomes. There is no pending state: unevaluable input fails.
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// DefaultTolerance is the recovery tolerance in percent when none is
// configured on the control spec.
const DefaultTolerance = 10.0

// Round2 quantizes to two decimals, rounding halves up.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Evaluate applies the QC acceptance rules to a measured value.
//
// Fixed-value mode: with an expected value, recovery is measured/expected*100
// and the check passes when |recovery - 100| is within the tolerance
// (DefaultTolerance when unset). Range mode: with min and max but no expected
// value, the check passes when measured lies inside the range and no recovery
// is computed. Anything else is unevaluable and fails closed with a nil
// recovery.
func Evaluate(measured, expected, tolerancePct, minAcceptable, maxAcceptable *float64) (string, *float64) {
	if measured == nil {
		return StatusFail, nil
	}
	m := Round2(*measured)

	if expected != nil {
		tolerance := DefaultTolerance
		if tolerancePct != nil {
			tolerance = *tolerancePct
		}
		recovery := Round2(m / *expected * 100)
		if math.Abs(recovery-100) <= tolerance {
			return StatusPass, &recovery
		}
		return StatusFail, &recovery
	}

	if minAcceptable != nil && maxAcceptable != nil {
		if *minAcceptable <= m && m <= *maxAcceptable {
			return StatusPass, nil
		}
		return StatusFail, nil
	}

	return StatusFail, nil
}
