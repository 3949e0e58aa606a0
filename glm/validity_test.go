package glm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
	"github.com/YuminosukeSato/isgd/pkg/log"
)

// positiveEtaTransfer accepts only strictly positive linear predictors.
type positiveEtaTransfer struct{ IdentityTransfer }

func (positiveEtaTransfer) ValidEta(eta float64) bool { return eta > 0 }

func smallDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := NewDataset(
		mat.NewDense(3, 2, []float64{
			1, 0.5,
			1, -1,
			1, 2,
		}),
		vec(1, 0, 3),
	)
	require.NoError(t, err)
	return ds
}

func TestCheckValidityPasses(t *testing.T) {
	e := newTestExperiment(t, "poisson", "exp", WithDimension(2), WithDeviance(true))
	assert.NoError(t, e.CheckValidity(smallDataset(t), vec(0.1, 0.2), 2))
}

func TestCheckValidityInvalidEta(t *testing.T) {
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(2))
	e.transfer = positiveEtaTransfer{}

	err := e.CheckValidity(smallDataset(t), vec(0, 1), 2) // eta = -1
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidEta))

	var ve *errors.ValidityError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, 2, ve.Iteration)
	assert.Equal(t, -1.0, ve.Eta)
}

func TestCheckValidityNonFiniteVariance(t *testing.T) {
	e := newTestExperiment(t, "poisson", "exp", WithDimension(2))

	err := e.CheckValidity(smallDataset(t), vec(800, 0), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNonFiniteVariance))
}

func TestCheckValidityNonFiniteDeviance(t *testing.T) {
	ds := smallDataset(t)
	theta := vec(-1, 0) // negative means under the identity transfer

	e := newTestExperiment(t, "poisson", "identity", WithDimension(2))
	assert.NoError(t, e.CheckValidity(ds, theta, 1))

	e.Dev = true
	err := e.CheckValidity(ds, theta, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNonFiniteDeviance))

	var ve *errors.ValidityError
	require.True(t, errors.As(err, &ve))
	assert.True(t, math.IsNaN(ve.Value))
}

func TestCheckValidityTraceLogsDeviance(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	e, err := NewExperiment("gaussian", "identity", WithDimension(2), WithTrace(true), WithLogger(logger))
	require.NoError(t, err)

	require.NoError(t, e.CheckValidity(smallDataset(t), vec(0, 0), 3))

	entries := logger.EntriesWithMessage("deviance")
	require.Len(t, entries, 1)
	assert.Equal(t, 10.0, entries[0][log.DevianceKey]) // 1 + 0 + 9
	assert.Equal(t, 3.0, entries[0][log.IterationKey])
	assert.Equal(t, "gaussian", entries[0][log.FamilyKey])
}

func TestCheckValidityIterationRange(t *testing.T) {
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(2))
	assert.Error(t, e.CheckValidity(smallDataset(t), vec(0, 0), 0))
	assert.Error(t, e.CheckValidity(smallDataset(t), vec(0, 0), 4))
}

func TestDatasetDevianceUsesOffsetAndWeights(t *testing.T) {
	ds := smallDataset(t)
	e := newTestExperiment(t, "gaussian", "identity", WithDimension(2),
		WithOffset(vec(1, 0, 3)),
		WithWeights(vec(2, 2, 2)),
	)
	assert.Equal(t, 0.0, e.DatasetDeviance(ds, vec(0, 0)))

	e.Offset = nil
	assert.Equal(t, 20.0, e.DatasetDeviance(ds, vec(0, 0)))
}
