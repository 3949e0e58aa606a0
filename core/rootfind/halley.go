// Package rootfind provides derivative-aware bracketed root finding for
// scalar functions.
//
// Halley iterates with second-order steps inside a bracket that always
// contains a sign change. A step that leaves the bracket or does not shrink it
// fast enough is replaced by bisection, so convergence never depends on a good
// starting point.
package rootfind

import (
	"math"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

// Func evaluates f, f' and f'' at x.
type Func func(x float64) (f, df, d2f float64)

// Settings controls the iteration.
type Settings struct {
	// MaxIterations caps the number of function evaluations after the bracket
	// endpoints have been checked.
	MaxIterations int

	// Tolerance is the relative step size below which the iterate is accepted.
	Tolerance float64
}

// DefaultSettings returns the settings used by the implicit update.
func DefaultSettings() Settings {
	return Settings{
		MaxIterations: 100,
		Tolerance:     1e-12,
	}
}

// Result describes a successful solve.
type Result struct {
	Root       float64
	Iterations int
}

// Halley finds a root of fn in [lower, upper] starting from guess.
//
// fn(lower) and fn(upper) must have opposite signs (or one of them must be
// zero), otherwise errors.ErrNoRootBracketed is returned. Infinite endpoint
// values are fine, NaN is not. When the iteration cap is reached
// errors.ErrRootFindingDidNotConverge is returned.
func Halley(fn Func, guess, lower, upper float64, s Settings) (Result, error) {
	if lower > upper {
		lower, upper = upper, lower
	}
	if s.MaxIterations <= 0 {
		s.MaxIterations = DefaultSettings().MaxIterations
	}
	if s.Tolerance <= 0 {
		s.Tolerance = DefaultSettings().Tolerance
	}

	fLower, _, _ := fn(lower)
	if fLower == 0 {
		return Result{Root: lower}, nil
	}
	fUpper, _, _ := fn(upper)
	if fUpper == 0 {
		return Result{Root: upper}, nil
	}
	// an infinite endpoint still carries a sign
	if math.IsNaN(fLower) || math.IsNaN(fUpper) || math.Signbit(fLower) == math.Signbit(fUpper) {
		return Result{}, errors.NewRootFindingError(errors.ErrNoRootBracketed, lower, upper, fLower, fUpper, 0)
	}

	x := guess
	if !(x > lower && x < upper) {
		x = lower + (upper-lower)/2
	}
	lowerSign := math.Signbit(fLower)
	dxOld := upper - lower
	dx := dxOld

	for i := 1; i <= s.MaxIterations; i++ {
		f, df, d2f := fn(x)
		if f == 0 {
			return Result{Root: x, Iterations: i}, nil
		}

		// keep the sign change inside [lower, upper]
		if math.Signbit(f) == lowerSign {
			lower = x
		} else {
			upper = x
		}

		step := halleyStep(f, df, d2f)
		next := x - step
		if !errors.IsFinite(next) || next <= lower || next >= upper || math.Abs(step) > 0.5*math.Abs(dxOld) {
			// out of bracket or not shrinking fast enough: bisect
			dxOld = dx
			dx = 0.5 * (upper - lower)
			next = lower + dx
		} else {
			dxOld = dx
			dx = step
		}

		delta := math.Abs(next - x)
		x = next
		if delta <= s.Tolerance*math.Max(1, math.Abs(x)) {
			return Result{Root: x, Iterations: i}, nil
		}
	}

	fLower, _, _ = fn(lower)
	fUpper, _, _ = fn(upper)
	return Result{}, errors.NewRootFindingError(errors.ErrRootFindingDidNotConverge, lower, upper, fLower, fUpper, s.MaxIterations)
}

// halleyStep returns the Halley correction, falling back to Newton when the
// second-order denominator degenerates.
func halleyStep(f, df, d2f float64) float64 {
	if df == 0 {
		return math.NaN()
	}
	newton := f / df
	denom := 1 - 0.5*newton*d2f/df
	if denom == 0 || !errors.IsFinite(denom) {
		return newton
	}
	step := newton / denom
	if math.Signbit(step) != math.Signbit(newton) {
		return newton
	}
	return step
}
