package glm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/core/rootfind"
	"github.com/YuminosukeSato/isgd/pkg/errors"
	"github.com/YuminosukeSato/isgd/pkg/log"
)

func newTestExperiment(t *testing.T, family, transfer string, opts ...ExperimentOption) *Experiment {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelWarn)
	opts = append([]ExperimentOption{WithLogger(logger)}, opts...)
	e, err := NewExperiment(family, transfer, opts...)
	require.NoError(t, err)
	return e
}

func randVec(rng *rand.Rand, n int) *mat.VecDense {
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, rng.NormFloat64())
	}
	return v
}

func TestSolveImplicitGaussianIdentityRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 7))
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(5))

	for i := 0; i < 1000; i++ {
		p := 1 + rng.IntN(5)
		theta := randVec(rng, p)
		dp := NewDataPoint(randVec(rng, p), 3*rng.NormFloat64())
		offset := rng.NormFloat64()
		at := 0.5 * rng.Float64()
		normx := mat.Dot(dp.X, dp.X)

		ksi, err := e.SolveImplicit(at, theta, dp, normx, offset)
		require.NoError(t, err, "sample %d", i)

		f := ImplicitFunction{At: at, G: NewScoreCoefficient(e.Transfer(), theta, dp, normx, offset)}
		value, _, _ := f.Eval(ksi)
		assert.InDelta(t, 0, value, 1e-9*(1+math.Abs(ksi)), "sample %d", i)

		// closed form for the identity transfer
		g0 := dp.Y - mat.Dot(theta, dp.X) - offset
		assert.InDelta(t, at*g0/(1+at*normx), ksi, 1e-9*(1+math.Abs(ksi)), "sample %d", i)
	}
}

func TestImplicitFunctionDerivatives(t *testing.T) {
	settings := &fd.Settings{Formula: fd.Central, Step: 1e-6}
	theta := vec(0.2, -0.1)
	dp := NewDataPoint(vec(1, 0.5), 2)

	for _, tr := range allTransfers {
		g := NewScoreCoefficient(tr, theta, dp, 1.25, 0.1)
		f := ImplicitFunction{At: 0.3, G: g}

		val := func(x float64) float64 { v, _, _ := f.Eval(x); return v }
		first := func(x float64) float64 { _, d, _ := f.Eval(x); return d }

		for _, ksi := range []float64{-0.5, 0, 0.4} {
			_, d1, d2 := f.Eval(ksi)
			assert.InDelta(t, fd.Derivative(val, ksi, settings), d1, 1e-6, "%s F' at %v", tr.Name(), ksi)
			assert.InDelta(t, fd.Derivative(first, ksi, settings), d2, 1e-5, "%s F'' at %v", tr.Name(), ksi)
		}
	}
}

func TestExplicitUpdateSingleStep(t *testing.T) {
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(1))
	e.InitUniDimLearningRate(1, 1, 1, 1)

	rate, err := e.LearningRate(vec(0), NewDataPoint(vec(1), 5), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, rate.At(0, 0))

	theta, err := e.ExplicitUpdate(vec(0), NewDataPoint(vec(1), 5), 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 2.5, theta.AtVec(0))
}

func TestImplicitUpdateSingleStep(t *testing.T) {
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(1))
	e.InitUniDimLearningRate(1, 1, 1, 1)

	// θ = 0.5·(5 - θ)
	theta, err := e.Update(vec(0), NewDataPoint(vec(1), 5), 0, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/3.0, theta.AtVec(0), 1e-12)
}

// implicitResidual returns θ_new - θ_old - A·x·(y - h(xᵀθ_new + offset)).
func implicitResidual(e *Experiment, rate *mat.DiagDense, thetaOld, thetaNew *mat.VecDense, dp DataPoint, offset float64) []float64 {
	resid := dp.Y - e.HTransfer(mat.Dot(dp.X, thetaNew)+offset)
	step := mat.NewVecDense(e.P, nil)
	step.MulVec(rate, dp.X)
	step.ScaleVec(resid, step)

	out := mat.NewVecDense(e.P, nil)
	out.SubVec(thetaNew, thetaOld)
	out.SubVec(out, step)
	return out.RawVector().Data
}

func TestImplicitUpdateSatisfiesImplicitEquation(t *testing.T) {
	tests := []struct {
		family, transfer string
		pxdim            bool
	}{
		{"poisson", "exp", false},
		{"poisson", "exp", true},
		{"binomial", "logistic", false},
		{"binomial", "logistic", true},
		{"gaussian", "identity", true},
	}

	for _, tt := range tests {
		name := tt.family + "/" + tt.transfer
		if tt.pxdim {
			name += "/px-dim"
		}
		t.Run(name, func(t *testing.T) {
			rng := rand.New(rand.NewPCG(5, 9))
			p := 3
			e := newTestExperiment(t, tt.family, tt.transfer, WithDimension(p))
			if tt.pxdim {
				e.InitPxDimLearningRate()
			} else {
				e.InitUniDimLearningRate(0.5, 1, 0.6, 1)
			}

			theta := mat.NewVecDense(p, nil)
			for step := 1; step <= 50; step++ {
				x := mat.NewVecDense(p, nil)
				for i := 0; i < p; i++ {
					v := 0.25 + 0.5*rng.Float64()
					if rng.IntN(2) == 0 {
						v = -v
					}
					x.SetVec(i, v)
				}
				y := float64(rng.IntN(2))
				dp := NewDataPoint(x, y)

				// rates are recomputed on a copy so the schedule state matches
				before := e.Schedule()
				var rate *mat.DiagDense
				if px, ok := before.(*PxDimLearningRate); ok {
					probe := &PxDimLearningRate{idiag: px.Accumulator()}
					var err error
					rate, err = probe.Rate(theta, dp, 0, step, p, e.ScoreFunction)
					require.NoError(t, err)
				} else {
					var err error
					rate, err = before.Rate(theta, dp, 0, step, p, nil)
					require.NoError(t, err)
				}

				next, err := e.Update(theta, dp, 0, step)
				require.NoError(t, err, "step %d", step)

				r := implicitResidual(e, rate, theta, next, dp, 0)
				assert.True(t, floats.EqualApprox(r, make([]float64, p), 1e-9), "step %d residual %v", step, r)
				theta = next
			}
		})
	}
}

func TestUpdateRequiresLearningRate(t *testing.T) {
	e := newTestExperiment(t, "poisson", "exp", WithDimension(2))

	_, err := e.LearningRate(vec(0, 0), NewDataPoint(vec(1, 1), 1), 0, 1)
	require.Error(t, err)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	_, err = e.Update(vec(0, 0), NewDataPoint(vec(1, 1), 1), 0, 1)
	assert.True(t, errors.As(err, &ve))
}

func TestUpdateDimensionMismatch(t *testing.T) {
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(2))
	e.InitUniDimLearningRate(1, 1, 1, 1)

	_, err := e.Update(vec(0, 0, 0), NewDataPoint(vec(1, 1), 1), 0, 1)
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))

	_, err = e.ExplicitUpdate(vec(0, 0), NewDataPoint(vec(1), 1), 0, 1)
	require.True(t, errors.As(err, &de))
}

func TestSolveImplicitFailures(t *testing.T) {
	t.Run("non-finite residual", func(t *testing.T) {
		e := newTestExperiment(t, "poisson", "exp", WithDimension(1))
		_, err := e.SolveImplicit(0.1, vec(1000), NewDataPoint(vec(1), 1), 1, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNoRootBracketed))
	})

	t.Run("overflowing upper end", func(t *testing.T) {
		e := newTestExperiment(t, "poisson", "exp", WithDimension(1))
		ksi, err := e.SolveImplicit(1, vec(0), NewDataPoint(vec(1), 1000), 1, 0)
		require.NoError(t, err)
		// ξ + exp(ξ) = 1000
		assert.InDelta(t, 1000, ksi+math.Exp(ksi), 1e-8)
		assert.InDelta(t, 6.9, ksi, 0.1)
	})

	t.Run("iteration cap", func(t *testing.T) {
		e := newTestExperiment(t, "poisson", "exp", WithDimension(2),
			WithRootFinding(rootfind.Settings{MaxIterations: 1, Tolerance: 1e-300}))
		e.InitUniDimLearningRate(1, 0, 0, 1)

		_, err := e.Update(vec(0.3, -0.2), NewDataPoint(vec(1.5, 2), 7), 0.1, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrRootFindingDidNotConverge))
		assert.True(t, errors.IsRootFindingFailure(err))
	})

	t.Run("zero residual", func(t *testing.T) {
		e := newTestExperiment(t, "gaussian", "identity", WithDimension(1))
		ksi, err := e.SolveImplicit(0.5, vec(2), NewDataPoint(vec(1), 2), 1, 0)
		require.NoError(t, err)
		assert.Equal(t, 0.0, ksi)
	})
}

func TestStepsWithGivenRate(t *testing.T) {
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(1))
	rate := mat.NewDiagDense(1, []float64{0.5})
	dp := NewDataPoint(vec(1), 5)

	theta, err := e.ImplicitStep(vec(0), dp, 0, 1, rate)
	require.NoError(t, err)
	assert.InDelta(t, 5.0/3.0, theta.AtVec(0), 1e-12)

	theta, err = e.ExplicitStep(vec(0), dp, 0, 1, rate)
	require.NoError(t, err)
	assert.Equal(t, 2.5, theta.AtVec(0))

	assert.Nil(t, e.Schedule())

	_, err = e.ImplicitStep(vec(0), dp, 0, 1, mat.NewDiagDense(2, []float64{1, 1}))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = e.ExplicitStep(vec(0), dp, 0, 1, nil)
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}
