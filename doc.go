// Package isgd provides online estimation of generalized linear models (GLMs)
// with stochastic gradient descent, including the implicit update that stays
// stable where the classical explicit step diverges.
//
// Observations are processed one at a time. For step t with learning rate
// A_t the implicit update solves
//
//	θ_t = θ_{t-1} + A_t·x_t·(y_t - h(x_tᵀθ_t))
//
// which reduces to a one-dimensional root-finding problem per observation.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/isgd/sklearn/linear_model"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3})
//	    y := mat.NewDense(4, 1, []float64{1, 2, 5, 11})
//
//	    model, err := linear_model.NewSGDGLM(
//	        linear_model.WithFamily("poisson"),
//	        linear_model.WithTransfer("exp"),
//	        linear_model.WithLearningRate("px-dim"),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := model.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println("θ:", mat.Formatted(model.Coef().T()))
//	}
//
// # Packages
//
//   - glm: families, transfers, learning-rate schedules, the implicit and
//     explicit updates, validity checks and coefficient-path plots
//   - sklearn/linear_model: SGDGLM, the Fit/PartialFit/FitStream estimator
//   - core/rootfind: bracketed Halley root finder
//   - core/model: estimator interfaces and fitted-state tracking
//   - core/parallel: row-parallel helpers
//   - metrics: MSE, RMSE, MAE, R² and deviance-based metrics
//   - pkg/errors: structured errors and warnings
//   - pkg/log: structured logging (zerolog and slog)
//
// # Families and transfers
//
// Supported families are "gaussian", "poisson" and "binomial"; transfers
// (inverse links) are "identity", "exp" and "logistic". Learning-rate
// schedules are "uni-dim", scale·γ·(1+αγt)^(-c), and "px-dim", the
// elementwise inverse of the accumulated squared scores.
package isgd
