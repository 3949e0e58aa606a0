// Package glm implements online estimation of generalized linear models with
// stochastic gradient descent.
//
// An Experiment binds three strategies chosen by name: a Family (variance and
// deviance), a Transfer (inverse link h and its derivatives) and a
// LearningRate schedule. Update performs one implicit SGD step
//
//	θ_t = θ_{t-1} + a_t (y_t - h(x_tᵀθ_t + offset)) x_t
//
// by reducing it to a scalar equation solved with a bracketed Halley
// iteration. ExplicitUpdate performs the classical step that evaluates the
// score at θ_{t-1}.
//
// Example:
//
//	exp, err := glm.NewExperiment("poisson", "exp", glm.WithDimension(3))
//	if err != nil {
//		return err
//	}
//	exp.InitUniDimLearningRate(1, 1, 0.67, 1)
//
//	out := glm.NewOnlineOutput(exp.Start)
//	for i := 0; i < ds.Size().NSamples; i++ {
//		theta, err := exp.Update(out.LastEstimate(), ds.Row(i), 0, i+1)
//		if err != nil {
//			return err
//		}
//		out.Append(theta)
//	}
package glm
