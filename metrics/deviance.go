package metrics

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/isgd/glm"
	"github.com/YuminosukeSato/isgd/pkg/errors"
)

// MeanDeviance returns the family deviance of the fitted means divided by
// the number of observations. wt may be nil.
func MeanDeviance(fam glm.Family, yTrue, mu *mat.VecDense, wt mat.Vector) (float64, error) {
	if err := checkPair("MeanDeviance", yTrue, mu); err != nil {
		return 0, err
	}
	dev := fam.Deviance(yTrue, mu, wt)
	if err := errors.CheckScalar("MeanDeviance", dev, 0); err != nil {
		return 0, err
	}
	return dev / float64(yTrue.Len()), nil
}

// DevianceExplained returns D² = 1 - D(y, mu) / D(y, ȳ), the fraction of the
// null deviance explained by the fitted means. For the gaussian family this
// equals R².
func DevianceExplained(fam glm.Family, yTrue, mu *mat.VecDense, wt mat.Vector) (float64, error) {
	if err := checkPair("DevianceExplained", yTrue, mu); err != nil {
		return 0, err
	}

	var w []float64
	if v, ok := wt.(*mat.VecDense); wt != nil && !(ok && v == nil) {
		w = mat.Col(nil, 0, wt)
	}
	mean := stat.Mean(mat.Col(nil, 0, yTrue), w)
	null := mat.NewVecDense(yTrue.Len(), nil)
	for i := 0; i < null.Len(); i++ {
		null.SetVec(i, mean)
	}

	nullDev := fam.Deviance(yTrue, null, wt)
	if nullDev == 0 {
		return 0, errors.NewValueError("DevianceExplained", "null deviance is zero (no variation in yTrue)")
	}
	dev := fam.Deviance(yTrue, mu, wt)
	if err := errors.CheckScalar("DevianceExplained", dev, 0); err != nil {
		return 0, err
	}
	return 1 - dev/nullDev, nil
}
