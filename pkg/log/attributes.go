// Package log defines standard attribute keys for estimation runs.
//
// Keys follow a hierarchical naming convention (e.g. "glm.family",
// "training.iteration") so that log output can be filtered by category.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type, e.g. "SGDGLM".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "partial_fit", "predict", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging, e.g. "glm".
	ComponentKey = "ml.component"
)

// GLM configuration
// These attributes describe the bound strategies of an Experiment.
const (
	// FamilyKey is the response distribution family ("gaussian", "poisson", "binomial").
	FamilyKey = "glm.family"

	// TransferKey is the transfer function ("identity", "exp", "logistic").
	TransferKey = "glm.transfer"

	// LearningRateTypeKey is the human readable schedule label.
	LearningRateTypeKey = "glm.learning_rate_type"

	// MethodKey is the update rule ("implicit", "explicit").
	MethodKey = "glm.method"
)

// Per-step quantities
const (
	// IterationKey records the observation index t of the online pass.
	IterationKey = "training.iteration"

	// DevianceKey records the full-data deviance at the current estimate.
	DevianceKey = "glm.deviance"

	// EtaKey records the linear predictor x·theta.
	EtaKey = "glm.eta"

	// KsiKey records the root of the implicit update equation.
	KsiKey = "glm.ksi"

	// LearningRateKey records the scalar step size used for a step.
	LearningRateKey = "hyperparams.learning_rate"

	// CoefChangeKey records the mean absolute coefficient change of a step.
	CoefChangeKey = "glm.coef_change"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// SuggestionKey provides hints for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit        = "fit"
	OperationPartialFit = "partial_fit"
	OperationPredict    = "predict"
	OperationScore      = "score"

	ErrorRootFinding = "ROOT_FINDING_FAILURE"
	ErrorValidity    = "VALIDITY_FAILURE"
	ErrorConvergence = "CONVERGENCE_FAILURE"
)
