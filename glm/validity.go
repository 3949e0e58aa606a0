package glm

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
	"github.com/YuminosukeSato/isgd/pkg/log"
)

// CheckValidity checks the estimate theta obtained after step t (1-based).
//
// The linear predictor of observation t must be accepted by the transfer and
// the variance at its mean must be finite. With Dev set the deviance over the
// whole dataset must be finite as well. With Trace set the deviance is logged.
func (e *Experiment) CheckValidity(ds *Dataset, theta *mat.VecDense, t int) error {
	if t < 1 || t > ds.Size().NSamples {
		return errors.NewValueError("Experiment.CheckValidity", "iteration out of range")
	}
	dp := ds.Row(t - 1)
	eta := mat.Dot(dp.X, theta) + e.OffsetAt(t-1)
	if !e.ValidEta(eta) {
		return errors.NewValidityError(errors.ErrInvalidEta, t, eta, eta)
	}

	muVar := e.Variance(e.HTransfer(eta))
	if !errors.IsFinite(muVar) {
		return errors.NewValidityError(errors.ErrNonFiniteVariance, t, eta, muVar)
	}

	trace := e.Trace && e.logger.Enabled(context.Background(), log.LevelInfo)
	if !e.Dev && !trace {
		return nil
	}

	dev := e.DatasetDeviance(ds, theta)
	if e.Dev && !errors.IsFinite(dev) {
		return errors.NewValidityError(errors.ErrNonFiniteDeviance, t, eta, dev)
	}
	if trace {
		e.logger.Info("deviance",
			log.DevianceKey, dev,
			log.IterationKey, t,
		)
	}
	return nil
}

// DatasetDeviance returns the deviance of theta over the whole dataset,
// using the experiment offsets and weights.
func (e *Experiment) DatasetDeviance(ds *Dataset, theta *mat.VecDense) float64 {
	n := ds.Size().NSamples
	eta := mat.NewVecDense(n, nil)
	eta.MulVec(ds.X, theta)
	if e.Offset != nil && e.Offset.Len() == n {
		eta.AddVec(eta, e.Offset)
	}
	mu := e.HTransferMatrix(eta).ColView(0)

	var wt mat.Vector
	if e.Weights != nil && e.Weights.Len() == n {
		wt = e.Weights
	}
	return e.Deviance(ds.Y, mu, wt)
}
