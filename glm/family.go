package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

// Family supplies the variance function and the deviance of a GLM.
type Family interface {
	// Name returns the identifier the family is selected with.
	Name() string

	// Variance evaluates the variance function V(mu).
	Variance(mu float64) float64

	// Deviance evaluates the deviance of the fitted means mu for the
	// responses y. The weights may be nil in which case all weights are
	// taken to be 1.
	Deviance(y, mu, wt mat.Vector) float64
}

// FamilyType identifies one of the built-in families.
type FamilyType uint8

// GaussianFamilyType, etc. indicate the built-in families.
const (
	GaussianFamilyType FamilyType = iota
	PoissonFamilyType
	BinomialFamilyType
)

var familyNames = []string{"gaussian", "poisson", "binomial"}

// String returns the identifier of the family type.
func (f FamilyType) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "unknown"
}

// ParseFamily returns the family type named by name.
func ParseFamily(name string) (FamilyType, error) {
	for i, n := range familyNames {
		if n == name {
			return FamilyType(i), nil
		}
	}
	return 0, errors.NewUnknownOptionError("family", name, familyNames, errors.ErrUnknownFamily)
}

// NewFamily returns the family implementation for f.
func NewFamily(f FamilyType) (Family, error) {
	switch f {
	case GaussianFamilyType:
		return GaussianFamily{}, nil
	case PoissonFamilyType:
		return PoissonFamily{}, nil
	case BinomialFamilyType:
		return BinomialFamily{}, nil
	default:
		return nil, errors.NewUnknownOptionError("family", f.String(), familyNames, errors.ErrUnknownFamily)
	}
}

// GaussianFamily has constant variance and squared-error deviance.
type GaussianFamily struct{}

func (GaussianFamily) Name() string { return "gaussian" }

func (GaussianFamily) Variance(mu float64) float64 { return 1 }

func (GaussianFamily) Deviance(y, mu, wt mat.Vector) float64 {
	var dev float64
	for i := 0; i < y.Len(); i++ {
		r := y.AtVec(i) - mu.AtVec(i)
		dev += weightAt(wt, i) * r * r
	}
	return dev
}

// PoissonFamily has variance equal to the mean.
type PoissonFamily struct{}

func (PoissonFamily) Name() string { return "poisson" }

func (PoissonFamily) Variance(mu float64) float64 { return mu }

func (PoissonFamily) Deviance(y, mu, wt mat.Vector) float64 {
	var dev float64
	for i := 0; i < y.Len(); i++ {
		yi, mi, w := y.AtVec(i), mu.AtVec(i), weightAt(wt, i)
		if yi == 0 {
			dev += w * mi
			continue
		}
		dev += w * (yi*math.Log(yi/mi) - (yi - mi))
	}
	return 2 * dev
}

// BinomialFamily models proportions in [0, 1].
type BinomialFamily struct{}

func (BinomialFamily) Name() string { return "binomial" }

func (BinomialFamily) Variance(mu float64) float64 { return mu * (1 - mu) }

func (BinomialFamily) Deviance(y, mu, wt mat.Vector) float64 {
	var dev float64
	for i := 0; i < y.Len(); i++ {
		yi, mi := y.AtVec(i), mu.AtVec(i)
		dev += 2 * weightAt(wt, i) * (ylogy(yi, mi) + ylogy(1-yi, 1-mi))
	}
	return dev
}

// ylogy returns y*log(y/mu), taking 0*log(0) as 0.
func ylogy(y, mu float64) float64 {
	if y == 0 {
		return 0
	}
	return y * math.Log(y/mu)
}

func weightAt(wt mat.Vector, i int) float64 {
	if v, ok := wt.(*mat.VecDense); wt == nil || (ok && v == nil) || wt.Len() == 0 {
		return 1
	}
	return wt.AtVec(i)
}
