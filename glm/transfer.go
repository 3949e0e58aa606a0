package glm

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/pkg/errors"
)

// Transfer is the inverse link h of a GLM, mapping the linear predictor to
// the mean response.
type Transfer interface {
	// Name returns the identifier the transfer is selected with.
	Name() string

	// Transfer evaluates h(u).
	Transfer(u float64) float64

	// FirstDerivative evaluates h'(u).
	FirstDerivative(u float64) float64

	// SecondDerivative evaluates h''(u).
	SecondDerivative(u float64) float64

	// ValidEta reports whether eta lies in the domain of h.
	ValidEta(eta float64) bool
}

// TransferType identifies one of the built-in transfers.
type TransferType uint8

// IdentityTransferType, etc. indicate the built-in transfer functions.
const (
	IdentityTransferType TransferType = iota
	ExpTransferType
	LogisticTransferType
)

var transferNames = []string{"identity", "exp", "logistic"}

// String returns the identifier of the transfer type.
func (t TransferType) String() string {
	if int(t) < len(transferNames) {
		return transferNames[t]
	}
	return "unknown"
}

// ParseTransfer returns the transfer type named by name.
func ParseTransfer(name string) (TransferType, error) {
	for i, n := range transferNames {
		if n == name {
			return TransferType(i), nil
		}
	}
	return 0, errors.NewUnknownOptionError("transfer", name, transferNames, errors.ErrUnknownTransfer)
}

// NewTransfer returns the transfer implementation for t.
func NewTransfer(t TransferType) (Transfer, error) {
	switch t {
	case IdentityTransferType:
		return IdentityTransfer{}, nil
	case ExpTransferType:
		return ExpTransfer{}, nil
	case LogisticTransferType:
		return LogisticTransfer{}, nil
	default:
		return nil, errors.NewUnknownOptionError("transfer", t.String(), transferNames, errors.ErrUnknownTransfer)
	}
}

// TransferMatrix applies tr elementwise to u. The result has the shape of u.
func TransferMatrix(tr Transfer, u mat.Matrix) *mat.Dense {
	r, c := u.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 {
		return tr.Transfer(v)
	}, u)
	return out
}

// IdentityTransfer is h(u) = u.
type IdentityTransfer struct{}

func (IdentityTransfer) Name() string                       { return "identity" }
func (IdentityTransfer) Transfer(u float64) float64         { return u }
func (IdentityTransfer) FirstDerivative(u float64) float64  { return 1 }
func (IdentityTransfer) SecondDerivative(u float64) float64 { return 0 }
func (IdentityTransfer) ValidEta(eta float64) bool          { return true }

// ExpTransfer is h(u) = exp(u), the inverse of the log link.
type ExpTransfer struct{}

func (ExpTransfer) Name() string                       { return "exp" }
func (ExpTransfer) Transfer(u float64) float64         { return math.Exp(u) }
func (ExpTransfer) FirstDerivative(u float64) float64  { return math.Exp(u) }
func (ExpTransfer) SecondDerivative(u float64) float64 { return math.Exp(u) }
func (ExpTransfer) ValidEta(eta float64) bool          { return true }

// LogisticTransfer is the sigmoid s(u) = 1/(1+exp(-u)).
type LogisticTransfer struct{}

func (LogisticTransfer) Name() string { return "logistic" }

func (LogisticTransfer) Transfer(u float64) float64 {
	return sigmoid(u)
}

func (LogisticTransfer) FirstDerivative(u float64) float64 {
	s := sigmoid(u)
	return s * (1 - s)
}

// SecondDerivative returns s(1-s)(1-2s) = 2s³ - 3s² + s.
func (LogisticTransfer) SecondDerivative(u float64) float64 {
	s := sigmoid(u)
	return 2*s*s*s - 3*s*s + s
}

func (LogisticTransfer) ValidEta(eta float64) bool { return true }

func sigmoid(u float64) float64 {
	if u >= 0 {
		return 1 / (1 + math.Exp(-u))
	}
	e := math.Exp(u)
	return e / (1 + e)
}
