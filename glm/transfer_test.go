package glm

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

var allTransfers = []Transfer{IdentityTransfer{}, ExpTransfer{}, LogisticTransfer{}}

func TestTransferMatrixMatchesScalar(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 17))
	shapes := [][2]int{{1, 1}, {5, 1}, {1, 6}, {3, 4}, {7, 2}}

	for _, tr := range allTransfers {
		for _, sh := range shapes {
			r, c := sh[0], sh[1]
			data := make([]float64, r*c)
			for i := range data {
				data[i] = 4 * (rng.Float64() - 0.5)
			}
			u := mat.NewDense(r, c, data)

			got := TransferMatrix(tr, u)
			gr, gc := got.Dims()
			require.Equal(t, r, gr, tr.Name())
			require.Equal(t, c, gc, tr.Name())
			for i := 0; i < r; i++ {
				for j := 0; j < c; j++ {
					assert.Equal(t, tr.Transfer(u.At(i, j)), got.At(i, j), "%s at (%d,%d)", tr.Name(), i, j)
				}
			}
		}
	}
}

func TestTransferMatrixAcceptsVectors(t *testing.T) {
	v := mat.NewVecDense(3, []float64{-1, 0, 2})
	got := TransferMatrix(ExpTransfer{}, v)

	r, c := got.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 1, c)
	assert.InDelta(t, math.Exp(2), got.At(2, 0), 1e-12)
}

func TestLogisticAtZero(t *testing.T) {
	tr := LogisticTransfer{}
	assert.Equal(t, 0.5, tr.Transfer(0))
	assert.Equal(t, 0.25, tr.FirstDerivative(0))
	assert.Equal(t, 0.0, tr.SecondDerivative(0))
}

func TestLogisticExtremes(t *testing.T) {
	tr := LogisticTransfer{}
	for _, u := range []float64{-800, -40, 40, 800} {
		assert.False(t, math.IsNaN(tr.Transfer(u)), "u=%v", u)
		assert.False(t, math.IsNaN(tr.FirstDerivative(u)), "u=%v", u)
		assert.False(t, math.IsNaN(tr.SecondDerivative(u)), "u=%v", u)
	}
	assert.InDelta(t, 0, tr.Transfer(-800), 1e-300)
	assert.Equal(t, 1.0, tr.Transfer(800))
}

func TestTransferDerivatives(t *testing.T) {
	settings := &fd.Settings{Formula: fd.Central, Step: 1e-5}
	points := []float64{-2, -0.5, 0, 0.3, 1.7}

	for _, tr := range allTransfers {
		for _, u := range points {
			d1 := fd.Derivative(tr.Transfer, u, settings)
			assert.InDelta(t, d1, tr.FirstDerivative(u), 1e-6*(1+math.Abs(d1)), "%s h' at %v", tr.Name(), u)

			d2 := fd.Derivative(tr.FirstDerivative, u, settings)
			assert.InDelta(t, d2, tr.SecondDerivative(u), 1e-6*(1+math.Abs(d2)), "%s h'' at %v", tr.Name(), u)
		}
	}
}

func TestTransferValidEta(t *testing.T) {
	for _, tr := range allTransfers {
		for _, eta := range []float64{-1e6, 0, 1e6} {
			assert.True(t, tr.ValidEta(eta), tr.Name())
		}
	}
}

func TestParseTransfer(t *testing.T) {
	tests := []struct {
		name string
		want TransferType
	}{
		{"identity", IdentityTransferType},
		{"exp", ExpTransferType},
		{"logistic", LogisticTransferType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTransfer(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.String())

			tr, err := NewTransfer(got)
			require.NoError(t, err)
			assert.Equal(t, tt.name, tr.Name())
		})
	}
}

func TestParseTransferUnknown(t *testing.T) {
	_, err := ParseTransfer("probit")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownTransfer))

	var uoe *errors.UnknownOptionError
	require.True(t, errors.As(err, &uoe))
	assert.Equal(t, "transfer", uoe.Option)
	assert.Equal(t, "probit", uoe.Name)
	assert.Equal(t, []string{"identity", "exp", "logistic"}, uoe.Choices)

	_, err = NewTransfer(TransferType(42))
	assert.True(t, errors.Is(err, errors.ErrUnknownTransfer))
}
