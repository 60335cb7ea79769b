package shared

import "math"

// Amounts are stored with two decimal places. The balance check compares sums
// at that precision; Tolerance is the larger residual the Fix routine will
// still try to absorb.
const (
	// Decimals is the monetary precision used across the ledger.
	Decimals = 2
	// Tolerance is the maximum residual the repair pass absorbs.
	Tolerance = 0.01
)

// Round truncates v to the ledger's monetary precision.
func Round(v float64) float64 {
	shift := math.Pow(10, float64(Decimals))
	return math.Round(v*shift) / shift
}

// Balanced reports whether debit and credit sums are equal at the ledger's
// monetary precision.
func Balanced(debit, credit float64) bool {
	return math.Abs(Round(debit)-Round(credit)) < 0.005
}

// WithinTolerance reports whether residual fits tol, with a small slack for
// binary float representation of two-decimal values.
func WithinTolerance(residual, tol float64) bool {
	return math.Abs(residual) <= tol+1e-9
}
