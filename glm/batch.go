package glm

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

// BatchFit returns the full-data solution of the estimating equation the SGD
// updates target,
//
//	Σ_i (y_i - h(x_iᵀθ + offset_i))·x_i = 0,
//
// by minimizing Σ_i B(x_iᵀθ + offset_i) - y_i·(x_iᵀθ + offset_i) where B' = h.
// For canonical family/transfer pairs this is the maximum likelihood
// estimate. The search starts at e.Start and uses BFGS unless method is
// non-nil.
func (e *Experiment) BatchFit(ds *Dataset, method optimize.Method) (*mat.VecDense, error) {
	cum, err := cumulant(e.transfer)
	if err != nil {
		return nil, err
	}
	size := ds.Size()
	if size.P != e.P {
		return nil, errors.NewDimensionError("Experiment.BatchFit", e.P, size.P, 1)
	}

	eta := make([]float64, size.NSamples)
	linear := func(x []float64) {
		for i := range eta {
			eta[i] = floats.Dot(ds.X.RawRowView(i), x) + e.OffsetAt(i)
		}
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			linear(x)
			var f float64
			for i, u := range eta {
				f += cum(u) - ds.Y.AtVec(i)*u
			}
			return f
		},
		Grad: func(grad, x []float64) {
			linear(x)
			for j := range grad {
				grad[j] = 0
			}
			for i, u := range eta {
				floats.AddScaled(grad, e.transfer.Transfer(u)-ds.Y.AtVec(i), ds.X.RawRowView(i))
			}
		},
	}

	settings := &optimize.Settings{GradientThreshold: 1e-8}
	if method == nil {
		method = &optimize.BFGS{}
	}
	start := mat.Col(nil, 0, e.Start)
	result, err := optimize.Minimize(problem, start, settings, method)
	if err != nil {
		return nil, errors.Wrap(err, "batch fit")
	}
	if err := result.Status.Err(); err != nil {
		return nil, errors.Wrap(err, "batch fit")
	}
	theta := mat.NewVecDense(e.P, result.X)
	if err := errors.CheckVector("batch_fit", theta, result.Stats.MajorIterations); err != nil {
		return nil, err
	}
	return theta, nil
}

// cumulant returns B with B' = h for the built-in transfers.
func cumulant(tr Transfer) (func(float64) float64, error) {
	switch tr.(type) {
	case IdentityTransfer:
		return func(u float64) float64 { return u * u / 2 }, nil
	case ExpTransfer:
		return math.Exp, nil
	case LogisticTransfer:
		// log(1 + e^u) without overflow
		return func(u float64) float64 {
			if u > 0 {
				return u + math.Log1p(math.Exp(-u))
			}
			return math.Log1p(math.Exp(u))
		}, nil
	}
	return nil, errors.NewUnknownOptionError("transfer", tr.Name(), transferNames, errors.ErrUnknownTransfer)
}
