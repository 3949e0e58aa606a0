package glm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

// DataPoint is a single observation: a covariate vector and a response.
type DataPoint struct {
	X *mat.VecDense
	Y float64
}

// NewDataPoint copies x into a new DataPoint.
func NewDataPoint(x mat.Vector, y float64) DataPoint {
	return DataPoint{X: mat.VecDenseCopyOf(x), Y: y}
}

// Size describes the shape of a dataset.
type Size struct {
	NSamples int
	P        int
}

// Dataset holds the full design matrix (n×p) and the response vector (n).
type Dataset struct {
	X *mat.Dense
	Y *mat.VecDense
}

// NewDataset checks that X and Y agree on the number of observations.
func NewDataset(X *mat.Dense, Y *mat.VecDense) (*Dataset, error) {
	if X == nil || Y == nil || X.IsEmpty() || Y.IsEmpty() {
		return nil, errors.NewValueError("NewDataset", "X and Y must be non-empty")
	}
	n, _ := X.Dims()
	if Y.Len() != n {
		return nil, errors.NewDimensionError("NewDataset", n, Y.Len(), 0)
	}
	return &Dataset{X: X, Y: Y}, nil
}

// Row returns observation i as a DataPoint. The covariates are copied.
func (d *Dataset) Row(i int) DataPoint {
	return NewDataPoint(d.X.RowView(i), d.Y.AtVec(i))
}

// Covariance returns the p×p sample covariance of the columns of X.
func (d *Dataset) Covariance() *mat.SymDense {
	_, p := d.X.Dims()
	cov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(cov, d.X, nil)
	return cov
}

// Size returns the number of observations and features.
func (d *Dataset) Size() Size {
	n, p := d.X.Dims()
	return Size{NSamples: n, P: p}
}

func (d *Dataset) String() string {
	s := d.Size()
	return fmt.Sprintf("  Dataset:\n    X has %d features\n    Total of %d data points\n", s.P, s.NSamples)
}

// OnlineOutput records the coefficient path of one fitting run. Column t of
// Estimates is the estimate after the t-th processed observation.
type OnlineOutput struct {
	initial   *mat.VecDense
	estimates []*mat.VecDense
}

// NewOnlineOutput starts a path at initial. The vector is copied.
func NewOnlineOutput(initial mat.Vector) *OnlineOutput {
	return &OnlineOutput{initial: mat.VecDenseCopyOf(initial)}
}

// NewOnlineOutputWithCapacity is NewOnlineOutput with room reserved for n
// estimates.
func NewOnlineOutputWithCapacity(initial mat.Vector, n int) *OnlineOutput {
	out := NewOnlineOutput(initial)
	out.estimates = make([]*mat.VecDense, 0, n)
	return out
}

// Append copies theta as the next column of the path.
func (o *OnlineOutput) Append(theta mat.Vector) error {
	if theta.Len() != o.initial.Len() {
		return errors.NewDimensionError("OnlineOutput.Append", o.initial.Len(), theta.Len(), 0)
	}
	o.estimates = append(o.estimates, mat.VecDenseCopyOf(theta))
	return nil
}

// LastEstimate returns a copy of the most recent estimate, or of the initial
// vector when nothing has been appended.
func (o *OnlineOutput) LastEstimate() *mat.VecDense {
	if len(o.estimates) == 0 {
		return mat.VecDenseCopyOf(o.initial)
	}
	return mat.VecDenseCopyOf(o.estimates[len(o.estimates)-1])
}

// Estimate returns a copy of column t (0-based).
func (o *OnlineOutput) Estimate(t int) *mat.VecDense {
	return mat.VecDenseCopyOf(o.estimates[t])
}

// Initial returns a copy of the starting vector.
func (o *OnlineOutput) Initial() *mat.VecDense {
	return mat.VecDenseCopyOf(o.initial)
}

// Len returns the number of estimates appended so far.
func (o *OnlineOutput) Len() int {
	return len(o.estimates)
}

// P returns the dimension of the estimates.
func (o *OnlineOutput) P() int {
	return o.initial.Len()
}

// Estimates returns the p×k matrix of the path. An empty matrix is returned
// before the first Append.
func (o *OnlineOutput) Estimates() *mat.Dense {
	if len(o.estimates) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(o.initial.Len(), len(o.estimates), nil)
	for j, col := range o.estimates {
		out.SetCol(j, col.RawVector().Data)
	}
	return out
}
