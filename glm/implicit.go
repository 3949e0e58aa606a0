package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/core/rootfind"
	"github.com/YuminosukeSato/isgd/pkg/errors"
	"github.com/YuminosukeSato/isgd/pkg/log"
)

// ScoreCoefficient is the scalar residual along the update direction,
//
//	g(ξ) = y - h(xᵀθ_old + normx·ξ + offset),
//
// together with its first two derivatives in ξ.
type ScoreCoefficient struct {
	transfer Transfer
	y        float64
	eta      float64 // xᵀθ_old + offset
	normx    float64
}

// NewScoreCoefficient fixes θ_old, the observation and normx.
func NewScoreCoefficient(tr Transfer, thetaOld *mat.VecDense, dp DataPoint, normx, offset float64) *ScoreCoefficient {
	return &ScoreCoefficient{
		transfer: tr,
		y:        dp.Y,
		eta:      mat.Dot(thetaOld, dp.X) + offset,
		normx:    normx,
	}
}

// Value evaluates g(ξ).
func (g *ScoreCoefficient) Value(ksi float64) float64 {
	return g.y - g.transfer.Transfer(g.eta+g.normx*ksi)
}

// FirstDerivative evaluates g'(ξ) = -h'(·)·normx.
func (g *ScoreCoefficient) FirstDerivative(ksi float64) float64 {
	return -g.transfer.FirstDerivative(g.eta+g.normx*ksi) * g.normx
}

// SecondDerivative evaluates g''(ξ) = -h''(·)·normx².
func (g *ScoreCoefficient) SecondDerivative(ksi float64) float64 {
	return -g.transfer.SecondDerivative(g.eta+g.normx*ksi) * g.normx * g.normx
}

// ImplicitFunction is F(ξ) = ξ - at·g(ξ). Its root is the step length of the
// implicit update.
type ImplicitFunction struct {
	At float64
	G  *ScoreCoefficient
}

// Eval returns F(ξ), F'(ξ) and F''(ξ).
func (f ImplicitFunction) Eval(ksi float64) (value, first, second float64) {
	value = ksi - f.At*f.G.Value(ksi)
	first = 1 - f.At*f.G.FirstDerivative(ksi)
	second = -f.At * f.G.SecondDerivative(ksi)
	return value, first, second
}

// SolveImplicit returns the root ξ* of F(ξ) = ξ - at·g(ξ).
//
// The root lies between 0 and at·g(0) whenever h is non-decreasing. When
// at·g(0) is zero the root is 0. A bracket without a sign change returns
// errors.ErrNoRootBracketed and hitting the iteration cap returns
// errors.ErrRootFindingDidNotConverge.
func (e *Experiment) SolveImplicit(at float64, thetaOld *mat.VecDense, dp DataPoint, normx, offset float64) (float64, error) {
	g := NewScoreCoefficient(e.transfer, thetaOld, dp, normx, offset)
	f := ImplicitFunction{At: at, G: g}

	r := at * g.Value(0)
	if r == 0 {
		return 0, nil
	}
	if !errors.IsFinite(r) {
		return 0, errors.NewRootFindingError(errors.ErrNoRootBracketed, 0, r, math.NaN(), math.NaN(), 0)
	}

	lower, upper := math.Min(0, r), math.Max(0, r)
	res, err := rootfind.Halley(f.Eval, r/2, lower, upper, e.rootSettings)
	if err != nil {
		return 0, err
	}
	return res.Root, nil
}

// Update performs one implicit SGD step
//
//	θ_t = θ_old + A_t·x·(y - h(xᵀθ_t + offset))
//
// where A_t is the diagonal learning rate for step t.
func (e *Experiment) Update(thetaOld *mat.VecDense, dp DataPoint, offset float64, t int) (*mat.VecDense, error) {
	if err := e.checkPoint("Experiment.Update", thetaOld, dp); err != nil {
		return nil, err
	}
	rate, err := e.LearningRate(thetaOld, dp, offset, t)
	if err != nil {
		return nil, err
	}
	return e.ImplicitStep(thetaOld, dp, offset, t, rate)
}

// ImplicitStep performs the implicit update with an already computed rate.
// With ξ the scalar residual at θ_t the update is θ_old + ξ·A_t·x, and ξ is
// found with SolveImplicit. A uniform diagonal a·I is solved with at = a and
// normx = ‖x‖²; a general diagonal with at = 1 and normx = xᵀA_t·x.
func (e *Experiment) ImplicitStep(thetaOld *mat.VecDense, dp DataPoint, offset float64, t int, rate *mat.DiagDense) (*mat.VecDense, error) {
	if err := e.checkPoint("Experiment.ImplicitStep", thetaOld, dp); err != nil {
		return nil, err
	}
	if err := e.checkRate("Experiment.ImplicitStep", rate); err != nil {
		return nil, err
	}

	dir := mat.NewVecDense(e.P, nil)
	var at, normx float64
	if a, ok := uniformDiag(rate); ok {
		at = a
		normx = mat.Dot(dp.X, dp.X)
		dir.CopyVec(dp.X)
	} else {
		at = 1
		dir.MulVec(rate, dp.X)
		normx = mat.Dot(dp.X, dir)
	}

	ksi, err := e.SolveImplicit(at, thetaOld, dp, normx, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "implicit update at iteration %d", t)
	}
	e.logger.Debug("implicit step",
		log.KsiKey, ksi,
		log.LearningRateKey, at,
		log.IterationKey, t,
	)

	theta := mat.NewVecDense(e.P, nil)
	theta.AddScaledVec(thetaOld, ksi, dir)
	if err := errors.CheckVector("implicit_update", theta, t); err != nil {
		return nil, err
	}
	return theta, nil
}

// ExplicitUpdate performs one classical SGD step
//
//	θ_t = θ_old + A_t·x·(y - h(xᵀθ_old + offset)).
func (e *Experiment) ExplicitUpdate(thetaOld *mat.VecDense, dp DataPoint, offset float64, t int) (*mat.VecDense, error) {
	if err := e.checkPoint("Experiment.ExplicitUpdate", thetaOld, dp); err != nil {
		return nil, err
	}
	rate, err := e.LearningRate(thetaOld, dp, offset, t)
	if err != nil {
		return nil, err
	}
	return e.ExplicitStep(thetaOld, dp, offset, t, rate)
}

// ExplicitStep performs the explicit update with an already computed rate.
func (e *Experiment) ExplicitStep(thetaOld *mat.VecDense, dp DataPoint, offset float64, t int, rate *mat.DiagDense) (*mat.VecDense, error) {
	if err := e.checkPoint("Experiment.ExplicitStep", thetaOld, dp); err != nil {
		return nil, err
	}
	if err := e.checkRate("Experiment.ExplicitStep", rate); err != nil {
		return nil, err
	}

	step := mat.NewVecDense(e.P, nil)
	step.MulVec(rate, e.ScoreFunction(thetaOld, dp, offset))

	theta := mat.NewVecDense(e.P, nil)
	theta.AddVec(thetaOld, step)
	if err := errors.CheckVector("explicit_update", theta, t); err != nil {
		return nil, err
	}
	return theta, nil
}

func (e *Experiment) checkPoint(op string, thetaOld *mat.VecDense, dp DataPoint) error {
	if thetaOld == nil || dp.X == nil {
		return errors.NewValueError(op, "theta and x must not be nil")
	}
	if thetaOld.Len() != e.P {
		return errors.NewDimensionError(op, e.P, thetaOld.Len(), 1)
	}
	if dp.X.Len() != e.P {
		return errors.NewDimensionError(op, e.P, dp.X.Len(), 1)
	}
	return nil
}

func (e *Experiment) checkRate(op string, rate *mat.DiagDense) error {
	if rate == nil {
		return errors.NewValueError(op, "learning rate must not be nil")
	}
	if n := rate.Diag(); n != e.P {
		return errors.NewDimensionError(op, e.P, n, 0)
	}
	return nil
}

// uniformDiag reports whether every diagonal entry of d is the same value.
func uniformDiag(d *mat.DiagDense) (float64, bool) {
	n, _ := d.Dims()
	a := d.At(0, 0)
	for i := 1; i < n; i++ {
		if d.At(i, i) != a {
			return 0, false
		}
	}
	return a, true
}
