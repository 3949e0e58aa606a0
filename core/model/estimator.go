package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Scorer はスコアを計算できるモデルのインターフェース
type Scorer interface {
	// Score は予測の決定係数（R²）を返す
	Score(X, y mat.Matrix) (float64, error)
}

// Estimator は学習と予測ができるモデル
type Estimator interface {
	Fitter
	Predictor
}

// IncrementalEstimator はオンライン学習（逐次学習）可能なモデルのインターフェース
// scikit-learnのpartial_fit APIと互換性を持つ
type IncrementalEstimator interface {
	Estimator

	// PartialFit はミニバッチでモデルを逐次的に学習させる
	// 回帰問題の場合 classes には nil を渡す
	PartialFit(X, y mat.Matrix, classes []int) error

	// NIterations は実行された学習イテレーション数を返す
	NIterations() int

	// IsWarmStart はウォームスタートが有効かどうかを返す
	// true の場合、Fit 呼び出し時に既存のパラメータから学習を継続
	IsWarmStart() bool

	// SetWarmStart はウォームスタートの有効/無効を設定
	SetWarmStart(warmStart bool)
}
