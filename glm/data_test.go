package glm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

func TestOnlineOutputInvariants(t *testing.T) {
	start := vec(1, 2)
	out := NewOnlineOutput(start)
	start.SetVec(0, 99)

	assert.Equal(t, 0, out.Len())
	assert.Equal(t, 2, out.P())
	assert.True(t, out.Estimates().IsEmpty())
	assert.Equal(t, []float64{1, 2}, out.LastEstimate().RawVector().Data)
	assert.Equal(t, []float64{1, 2}, out.Initial().RawVector().Data)

	theta := vec(3, 4)
	require.NoError(t, out.Append(theta))
	theta.SetVec(0, -1)
	require.NoError(t, out.Append(theta))

	assert.Equal(t, 2, out.Len())
	r, c := out.Estimates().Dims()
	assert.Equal(t, 2, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []float64{3, 4}, out.Estimate(0).RawVector().Data)
	assert.Equal(t, []float64{-1, 4}, out.LastEstimate().RawVector().Data)
	assert.Equal(t, 3.0, out.Estimates().At(0, 0))
	assert.Equal(t, -1.0, out.Estimates().At(0, 1))

	last := out.LastEstimate()
	last.SetVec(1, 1000)
	assert.Equal(t, 4.0, out.LastEstimate().AtVec(1))
}

func TestOnlineOutputAppendDimension(t *testing.T) {
	out := NewOnlineOutputWithCapacity(vec(0, 0), 10)
	err := out.Append(vec(1, 2, 3))
	var de *errors.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 0, out.Len())
}

func TestDataset(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 2,
		2, 4,
		3, 6,
	})
	Y := vec(1, 0, 1)
	ds, err := NewDataset(X, Y)
	require.NoError(t, err)

	assert.Equal(t, Size{NSamples: 3, P: 2}, ds.Size())
	assert.Equal(t, "  Dataset:\n    X has 2 features\n    Total of 3 data points\n", ds.String())

	dp := ds.Row(1)
	assert.Equal(t, []float64{2, 4}, dp.X.RawVector().Data)
	assert.Equal(t, 0.0, dp.Y)
	dp.X.SetVec(0, 100)
	assert.Equal(t, 2.0, X.At(1, 0))

	cov := ds.Covariance()
	assert.InDelta(t, 1, cov.At(0, 0), 1e-12)
	assert.InDelta(t, 2, cov.At(0, 1), 1e-12)
	assert.InDelta(t, 4, cov.At(1, 1), 1e-12)
}

func TestNewDatasetErrors(t *testing.T) {
	_, err := NewDataset(mat.NewDense(3, 2, nil), vec(1, 2))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = NewDataset(nil, vec(1))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}
