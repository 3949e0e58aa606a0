package glm

import (
	"gonum.org/v1/gonum/mat"
)

// ScoreFunc evaluates the score (y - h(xᵀθ + offset))·x of one observation.
type ScoreFunc func(theta *mat.VecDense, dp DataPoint, offset float64) *mat.VecDense

// NewScoreFunc returns the score function of a GLM with transfer tr.
func NewScoreFunc(tr Transfer) ScoreFunc {
	return func(theta *mat.VecDense, dp DataPoint, offset float64) *mat.VecDense {
		eta := mat.Dot(dp.X, theta) + offset
		resid := dp.Y - tr.Transfer(eta)

		score := mat.NewVecDense(dp.X.Len(), nil)
		score.ScaleVec(resid, dp.X)
		return score
	}
}
