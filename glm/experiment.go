package glm

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/core/rootfind"
	"github.com/YuminosukeSato/isgd/pkg/errors"
	"github.com/YuminosukeSato/isgd/pkg/log"
)

// DefaultEpsilon is the convergence tolerance used when none is given.
const DefaultEpsilon = 1e-5

// Experiment is the configuration of one GLM fitting run. It binds a family,
// a transfer and a learning-rate schedule and owns the schedule's state.
//
// An Experiment is not safe for concurrent use. Independent runs need
// independent Experiments.
type Experiment struct {
	P            int    // dimension of θ
	NIters       int    // number of observations of the run, 0 if unknown
	ModelName    string // family identifier
	TransferName string // transfer identifier
	LRType       string // schedule label, set by the Init*LearningRate methods

	Offset  *mat.VecDense // per-observation offsets, nil for none
	Weights *mat.VecDense // deviance weights, nil for unit weights
	Start   *mat.VecDense // starting estimate

	Epsilon     float64 // convergence tolerance on the mean absolute coefficient change
	Trace       bool    // log the deviance at every validity check
	Dev         bool    // require a finite deviance at every validity check
	Convergence bool    // stop a pass early once the estimates settle

	family       Family
	transfer     Transfer
	lr           LearningRate
	score        ScoreFunc
	rootSettings rootfind.Settings
	logger       log.Logger
}

// ExperimentOption configures an Experiment.
type ExperimentOption func(*Experiment)

// WithDimension sets the number of coefficients.
func WithDimension(p int) ExperimentOption {
	return func(e *Experiment) {
		e.P = p
	}
}

// WithIterations records the number of observations of the run.
func WithIterations(n int) ExperimentOption {
	return func(e *Experiment) {
		e.NIters = n
	}
}

// WithOffset sets per-observation offsets added to the linear predictor.
func WithOffset(offset mat.Vector) ExperimentOption {
	return func(e *Experiment) {
		if offset == nil {
			e.Offset = nil
			return
		}
		e.Offset = mat.VecDenseCopyOf(offset)
	}
}

// WithWeights sets the weights used for the deviance.
func WithWeights(wt mat.Vector) ExperimentOption {
	return func(e *Experiment) {
		if wt == nil {
			e.Weights = nil
			return
		}
		e.Weights = mat.VecDenseCopyOf(wt)
	}
}

// WithStart sets the starting estimate. The default is the zero vector.
func WithStart(start mat.Vector) ExperimentOption {
	return func(e *Experiment) {
		if start == nil {
			e.Start = nil
			return
		}
		e.Start = mat.VecDenseCopyOf(start)
	}
}

// WithEpsilon sets the convergence tolerance.
func WithEpsilon(eps float64) ExperimentOption {
	return func(e *Experiment) {
		e.Epsilon = eps
	}
}

// WithTrace enables deviance logging during validity checks.
func WithTrace(trace bool) ExperimentOption {
	return func(e *Experiment) {
		e.Trace = trace
	}
}

// WithDeviance enables the finite-deviance validity check.
func WithDeviance(dev bool) ExperimentOption {
	return func(e *Experiment) {
		e.Dev = dev
	}
}

// WithConvergence enables early stopping on small coefficient changes.
func WithConvergence(convergence bool) ExperimentOption {
	return func(e *Experiment) {
		e.Convergence = convergence
	}
}

// WithRootFinding sets the iteration cap and tolerance of the implicit solve.
func WithRootFinding(s rootfind.Settings) ExperimentOption {
	return func(e *Experiment) {
		e.rootSettings = s
	}
}

// WithLogger sets the logger used for trace output.
func WithLogger(logger log.Logger) ExperimentOption {
	return func(e *Experiment) {
		e.logger = logger
	}
}

// NewExperiment binds the family and transfer named by family and transfer.
// Unknown names return errors.ErrUnknownFamily or errors.ErrUnknownTransfer.
// No learning rate is bound until InitUniDimLearningRate or
// InitPxDimLearningRate is called.
func NewExperiment(family, transfer string, opts ...ExperimentOption) (*Experiment, error) {
	ft, err := ParseFamily(family)
	if err != nil {
		return nil, err
	}
	tt, err := ParseTransfer(transfer)
	if err != nil {
		return nil, err
	}
	fam, err := NewFamily(ft)
	if err != nil {
		return nil, err
	}
	tr, err := NewTransfer(tt)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		ModelName:    family,
		TransferName: transfer,
		Epsilon:      DefaultEpsilon,
		family:       fam,
		transfer:     tr,
		score:        NewScoreFunc(tr),
		rootSettings: rootfind.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.P < 0 {
		return nil, errors.NewValueError("NewExperiment", fmt.Sprintf("dimension must be non-negative, got %d", e.P))
	}
	if e.Start == nil && e.P > 0 {
		e.Start = mat.NewVecDense(e.P, nil)
	}
	if e.Start != nil && e.Start.Len() != e.P {
		return nil, errors.NewDimensionError("NewExperiment", e.P, e.Start.Len(), 1)
	}
	if e.logger == nil {
		e.logger = log.GetLoggerWithName("glm")
	}
	e.logger = e.logger.With(
		log.FamilyKey, family,
		log.TransferKey, transfer,
	)
	return e, nil
}

// InitUniDimLearningRate binds the scalar decaying schedule
// scale·γ·(1+αγt)^(-c).
func (e *Experiment) InitUniDimLearningRate(gamma, alpha, c, scale float64) {
	e.InitLearningRate(&UniDimLearningRate{Gamma: gamma, Alpha: alpha, C: c, Scale: scale})
}

// InitPxDimLearningRate binds a fresh per-coordinate adaptive schedule.
func (e *Experiment) InitPxDimLearningRate() {
	e.InitLearningRate(NewPxDimLearningRate(e.P))
}

// InitLearningRate binds lr, resetting its state for dimension P.
func (e *Experiment) InitLearningRate(lr LearningRate) {
	lr.Reinit(e.P)
	e.lr = lr
	e.LRType = lr.Name()
}

// LearningRate returns the diagonal rate for step t. It fails when no
// schedule has been bound.
func (e *Experiment) LearningRate(thetaOld *mat.VecDense, dp DataPoint, offset float64, t int) (*mat.DiagDense, error) {
	if e.lr == nil {
		return nil, errors.NewValueError("Experiment.LearningRate", "no learning rate initialized")
	}
	return e.lr.Rate(thetaOld, dp, offset, t, e.P, e.score)
}

// Schedule returns the bound learning-rate schedule, or nil.
func (e *Experiment) Schedule() LearningRate { return e.lr }

// Family returns the bound family.
func (e *Experiment) Family() Family { return e.family }

// Transfer returns the bound transfer.
func (e *Experiment) Transfer() Transfer { return e.transfer }

// Logger returns the logger used by the experiment.
func (e *Experiment) Logger() log.Logger { return e.logger }

// ScoreFunction evaluates (y - h(xᵀθ + offset))·x.
func (e *Experiment) ScoreFunction(theta *mat.VecDense, dp DataPoint, offset float64) *mat.VecDense {
	return e.score(theta, dp, offset)
}

// HTransfer evaluates h(u).
func (e *Experiment) HTransfer(u float64) float64 { return e.transfer.Transfer(u) }

// HTransferMatrix applies h elementwise to u.
func (e *Experiment) HTransferMatrix(u mat.Matrix) *mat.Dense { return TransferMatrix(e.transfer, u) }

// HFirstDerivative evaluates h'(u).
func (e *Experiment) HFirstDerivative(u float64) float64 { return e.transfer.FirstDerivative(u) }

// HSecondDerivative evaluates h''(u).
func (e *Experiment) HSecondDerivative(u float64) float64 { return e.transfer.SecondDerivative(u) }

// Variance evaluates the family variance function at mu.
func (e *Experiment) Variance(mu float64) float64 { return e.family.Variance(mu) }

// Deviance evaluates the family deviance.
func (e *Experiment) Deviance(y, mu, wt mat.Vector) float64 { return e.family.Deviance(y, mu, wt) }

// ValidEta reports whether eta is in the domain of the transfer.
func (e *Experiment) ValidEta(eta float64) bool { return e.transfer.ValidEta(eta) }

// OffsetAt returns the offset of observation i, or 0 when no offsets are set.
func (e *Experiment) OffsetAt(i int) float64 {
	if e.Offset == nil || i >= e.Offset.Len() {
		return 0
	}
	return e.Offset.AtVec(i)
}

func (e *Experiment) String() string {
	var b strings.Builder
	b.WriteString("  Experiment:\n")
	fmt.Fprintf(&b, "    Family: %s\n", e.ModelName)
	fmt.Fprintf(&b, "    Transfer function: %s\n", e.TransferName)
	fmt.Fprintf(&b, "    Learning rate: %s\n\n", e.LRType)
	fmt.Fprintf(&b, "    Trace: %s\n", onOff(e.Trace))
	fmt.Fprintf(&b, "    Deviance: %s\n", onOff(e.Dev))
	fmt.Fprintf(&b, "    Convergence: %s\n", onOff(e.Convergence))
	fmt.Fprintf(&b, "    Epsilon: %g\n", e.Epsilon)
	return b.String()
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}
