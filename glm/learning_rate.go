package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

const (
	uniDimLRType = "Uni-dimension learning rate"
	pxDimLRType  = "Px-dimension learning rate"

	// pxDimThreshold is the smallest accumulated magnitude that is inverted.
	pxDimThreshold = 1e-8
)

// LearningRate is a step-size schedule a_t. Rate returns a p×p diagonal
// matrix. The score function is passed in by the caller, so schedules that
// depend on the gradient never hold a reference to the Experiment.
type LearningRate interface {
	Rate(thetaOld *mat.VecDense, dp DataPoint, offset float64, t, p int, score ScoreFunc) (*mat.DiagDense, error)

	// Reinit resets any accumulated state for a new run of dimension p.
	Reinit(p int)

	// Name returns the label used in experiment summaries.
	Name() string
}

// LearningRateType identifies one of the built-in schedules.
type LearningRateType uint8

// UniDimLearningRateType, etc. indicate the built-in schedules.
const (
	UniDimLearningRateType LearningRateType = iota
	PxDimLearningRateType
)

var learningRateNames = []string{"uni-dim", "px-dim"}

// String returns the identifier of the schedule type.
func (l LearningRateType) String() string {
	if int(l) < len(learningRateNames) {
		return learningRateNames[l]
	}
	return "unknown"
}

// ParseLearningRate returns the schedule type named by name.
func ParseLearningRate(name string) (LearningRateType, error) {
	for i, n := range learningRateNames {
		if n == name {
			return LearningRateType(i), nil
		}
	}
	return 0, errors.NewUnknownOptionError("learning_rate", name, learningRateNames, errors.ErrUnknownLearningRate)
}

// UniDimLearningRate is the scalar decaying schedule
//
//	a_t = Scale·Gamma·(1 + Alpha·Gamma·t)^(-C)
//
// applied to every coordinate. It is stateless.
type UniDimLearningRate struct {
	Gamma float64
	Alpha float64
	C     float64
	Scale float64
}

// At returns the scalar rate for step t.
func (lr *UniDimLearningRate) At(t int) float64 {
	return lr.Scale * lr.Gamma * math.Pow(1+lr.Alpha*lr.Gamma*float64(t), -lr.C)
}

// Rate implements LearningRate.
func (lr *UniDimLearningRate) Rate(_ *mat.VecDense, _ DataPoint, _ float64, t, p int, _ ScoreFunc) (*mat.DiagDense, error) {
	if p <= 0 {
		return nil, errors.NewValueError("UniDimLearningRate.Rate", "dimension must be positive")
	}
	a := lr.At(t)
	diag := make([]float64, p)
	for i := range diag {
		diag[i] = a
	}
	return mat.NewDiagDense(p, diag), nil
}

// Reinit implements LearningRate. The schedule has no state.
func (lr *UniDimLearningRate) Reinit(int) {}

// Name implements LearningRate.
func (lr *UniDimLearningRate) Name() string { return uniDimLRType }

// PxDimLearningRate is a per-coordinate adaptive schedule. Every call adds
// the squared score of the observation to a running accumulator and returns
// its elementwise inverse. Entries whose magnitude is at most 1e-8 are
// returned as they are.
//
// The accumulator belongs to one fitting run; call Reinit before reusing the
// schedule.
type PxDimLearningRate struct {
	idiag []float64
}

// NewPxDimLearningRate returns a schedule with a zeroed accumulator of
// dimension p. A zero p defers sizing to the first call of Rate.
func NewPxDimLearningRate(p int) *PxDimLearningRate {
	lr := &PxDimLearningRate{}
	lr.Reinit(p)
	return lr
}

// Rate implements LearningRate.
func (lr *PxDimLearningRate) Rate(thetaOld *mat.VecDense, dp DataPoint, offset float64, t, p int, score ScoreFunc) (*mat.DiagDense, error) {
	if p <= 0 {
		return nil, errors.NewValueError("PxDimLearningRate.Rate", "dimension must be positive")
	}
	if score == nil {
		return nil, errors.NewValueError("PxDimLearningRate.Rate", "score function is required")
	}
	if len(lr.idiag) == 0 {
		lr.idiag = make([]float64, p)
	}
	if len(lr.idiag) != p {
		return nil, errors.NewDimensionError("PxDimLearningRate.Rate", len(lr.idiag), p, 1)
	}

	g := score(thetaOld, dp, offset)
	if g.Len() != p {
		return nil, errors.NewDimensionError("PxDimLearningRate.Rate", p, g.Len(), 1)
	}

	inv := make([]float64, p)
	for i := range lr.idiag {
		gi := g.AtVec(i)
		lr.idiag[i] += gi * gi
		inv[i] = lr.idiag[i]
		if math.Abs(inv[i]) > pxDimThreshold {
			inv[i] = 1 / inv[i]
		}
	}
	return mat.NewDiagDense(p, inv), nil
}

// Reinit implements LearningRate. The accumulator is reset to zeros.
func (lr *PxDimLearningRate) Reinit(p int) {
	if p <= 0 {
		lr.idiag = nil
		return
	}
	lr.idiag = make([]float64, p)
}

// Accumulator returns a copy of the accumulated squared scores.
func (lr *PxDimLearningRate) Accumulator() []float64 {
	out := make([]float64, len(lr.idiag))
	copy(out, lr.idiag)
	return out
}

// Name implements LearningRate.
func (lr *PxDimLearningRate) Name() string { return pxDimLRType }
