package linear_model

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/isgd/core/model"
	"github.com/YuminosukeSato/isgd/core/parallel"
	"github.com/YuminosukeSato/isgd/core/rootfind"
	"github.com/YuminosukeSato/isgd/glm"
	"github.com/YuminosukeSato/isgd/metrics"
	"github.com/YuminosukeSato/isgd/pkg/errors"
	"github.com/YuminosukeSato/isgd/pkg/log"
)

// predictParallelThreshold を超える行数の予測は行単位で並列化する
const predictParallelThreshold = 1024

// Method はパラメータ更新の方式
type Method int

const (
	// Implicit は陰的SGD: θ_t = θ_old + A_t·x·(y - h(xᵀθ_t))
	Implicit Method = iota
	// Explicit は古典的SGD: θ_t = θ_old + A_t·x·(y - h(xᵀθ_old))
	Explicit
)

var methodNames = []string{"implicit", "explicit"}

func (m Method) String() string {
	if int(m) < len(methodNames) {
		return methodNames[m]
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod は名前から更新方式を返す
func ParseMethod(name string) (Method, error) {
	for i, n := range methodNames {
		if n == name {
			return Method(i), nil
		}
	}
	return 0, errors.NewUnknownOptionError("method", name, methodNames, errors.ErrUnknownMethod)
}

// SGDGLM は一般化線形モデルを1観測ずつ確率的勾配法で推定するオンライン推定器
//
// 各観測 (x_t, y_t) に対して陰的更新（既定）または陽的更新を1回行い、
// 推定値の履歴を glm.OnlineOutput に記録する。
type SGDGLM struct {
	state *model.StateManager

	// ハイパーパラメータ
	family       string            // "gaussian", "poisson", "binomial"
	transfer     string            // "identity", "exp", "logistic"
	method       Method            // 更新方式
	lrType       string            // "uni-dim", "px-dim"
	gamma        float64           // uni-dim: 初期学習率
	alpha        float64           // uni-dim: 減衰の速さ
	c            float64           // uni-dim: 減衰の指数
	scale        float64           // uni-dim: 全体のスケール
	maxIter      int               // データ全体を走査する最大回数
	epsilon      float64           // 収束判定の許容誤差
	convergence  bool              // 係数の変化が epsilon 未満で打ち切る
	fallback     bool              // 根探索に失敗した観測で陽的更新を使う
	validity     bool              // 各ステップで妥当性検査を行う
	trace        bool              // 妥当性検査で逸脱度をログ出力する
	dev          bool              // 妥当性検査で逸脱度の有限性を要求する
	warmStart    bool              // 前回の学習から継続するか
	start        *mat.VecDense     // 初期推定値、nil ならゼロ
	offset       *mat.VecDense     // 学習データ各行のオフセット
	weights      *mat.VecDense     // 逸脱度の重み
	rootSettings rootfind.Settings // 陰的更新の根探索設定
	logger       log.Logger

	// 学習パラメータ
	exp    *glm.Experiment
	coef_  *mat.VecDense
	output *glm.OnlineOutput

	// 学習状態
	t_         int  // 総ステップ数
	nIter_     int  // 実行された走査回数
	converged_ bool // 収束フラグ
	fallbacks_ int  // 陽的更新にフォールバックした回数

	// 内部状態
	mu         sync.RWMutex
	nFeatures_ int
}

// SGDGLMOption は SGDGLM の設定オプション
type SGDGLMOption func(*SGDGLM)

// WithFamily はモデルファミリーを設定
func WithFamily(family string) SGDGLMOption {
	return func(m *SGDGLM) { m.family = family }
}

// WithTransfer は変換関数（逆リンク）を設定
func WithTransfer(transfer string) SGDGLMOption {
	return func(m *SGDGLM) { m.transfer = transfer }
}

// WithMethod は更新方式を設定
func WithMethod(method Method) SGDGLMOption {
	return func(m *SGDGLM) { m.method = method }
}

// WithLearningRate は学習率スケジュールの種類を設定（"uni-dim" または "px-dim"）
func WithLearningRate(name string) SGDGLMOption {
	return func(m *SGDGLM) { m.lrType = name }
}

// WithUniDimParams は uni-dim スケジュール scale·γ·(1+αγt)^(-c) のパラメータを設定
func WithUniDimParams(gamma, alpha, c, scale float64) SGDGLMOption {
	return func(m *SGDGLM) {
		m.gamma = gamma
		m.alpha = alpha
		m.c = c
		m.scale = scale
	}
}

// WithMaxIter はデータ全体を走査する最大回数を設定
func WithMaxIter(maxIter int) SGDGLMOption {
	return func(m *SGDGLM) { m.maxIter = maxIter }
}

// WithEpsilon は収束判定の許容誤差を設定
func WithEpsilon(eps float64) SGDGLMOption {
	return func(m *SGDGLM) { m.epsilon = eps }
}

// WithConvergence は収束による打ち切りの有無を設定
func WithConvergence(convergence bool) SGDGLMOption {
	return func(m *SGDGLM) { m.convergence = convergence }
}

// WithFallback は根探索失敗時の陽的更新へのフォールバックの有無を設定
func WithFallback(fallback bool) SGDGLMOption {
	return func(m *SGDGLM) { m.fallback = fallback }
}

// WithValidityCheck は各ステップの妥当性検査の有無を設定
func WithValidityCheck(validity bool) SGDGLMOption {
	return func(m *SGDGLM) { m.validity = validity }
}

// WithTrace は逸脱度のトレース出力を設定
func WithTrace(trace bool) SGDGLMOption {
	return func(m *SGDGLM) { m.trace = trace }
}

// WithDeviance は逸脱度の有限性検査を設定
func WithDeviance(dev bool) SGDGLMOption {
	return func(m *SGDGLM) { m.dev = dev }
}

// WithWarmStart はウォームスタートを設定
func WithWarmStart(warmStart bool) SGDGLMOption {
	return func(m *SGDGLM) { m.warmStart = warmStart }
}

// WithStart は初期推定値を設定
func WithStart(start mat.Vector) SGDGLMOption {
	return func(m *SGDGLM) {
		if start == nil {
			m.start = nil
			return
		}
		m.start = mat.VecDenseCopyOf(start)
	}
}

// WithOffset は学習データ各行のオフセットを設定
func WithOffset(offset mat.Vector) SGDGLMOption {
	return func(m *SGDGLM) {
		if offset == nil {
			m.offset = nil
			return
		}
		m.offset = mat.VecDenseCopyOf(offset)
	}
}

// WithWeights は逸脱度の重みを設定
func WithWeights(wt mat.Vector) SGDGLMOption {
	return func(m *SGDGLM) {
		if wt == nil {
			m.weights = nil
			return
		}
		m.weights = mat.VecDenseCopyOf(wt)
	}
}

// WithRootFinding は陰的更新の根探索設定を設定
func WithRootFinding(s rootfind.Settings) SGDGLMOption {
	return func(m *SGDGLM) { m.rootSettings = s }
}

// WithLogger はロガーを設定
func WithLogger(logger log.Logger) SGDGLMOption {
	return func(m *SGDGLM) { m.logger = logger }
}

// NewSGDGLM は新しい SGDGLM を作成する
//
// 既定はガウス族・恒等変換・陰的更新・uni-dim 学習率 (γ=1, α=1, c=1, scale=1)・
// 1回の走査。未知の識別子はここでエラーになる。
func NewSGDGLM(opts ...SGDGLMOption) (*SGDGLM, error) {
	m := &SGDGLM{
		state:        model.NewStateManager(),
		family:       "gaussian",
		transfer:     "identity",
		method:       Implicit,
		lrType:       "uni-dim",
		gamma:        1.0,
		alpha:        1.0,
		c:            1.0,
		scale:        1.0,
		maxIter:      1,
		epsilon:      glm.DefaultEpsilon,
		fallback:     true,
		validity:     true,
		rootSettings: rootfind.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if _, err := glm.ParseFamily(m.family); err != nil {
		return nil, err
	}
	if _, err := glm.ParseTransfer(m.transfer); err != nil {
		return nil, err
	}
	if _, err := glm.ParseLearningRate(m.lrType); err != nil {
		return nil, err
	}
	if m.method != Implicit && m.method != Explicit {
		return nil, errors.NewUnknownOptionError("method", m.method.String(), methodNames, errors.ErrUnknownMethod)
	}
	if m.maxIter < 1 {
		return nil, errors.NewValueError("NewSGDGLM", fmt.Sprintf("maxIter must be at least 1, got %d", m.maxIter))
	}
	if !(m.epsilon > 0) {
		return nil, errors.NewValueError("NewSGDGLM", fmt.Sprintf("epsilon must be positive, got %g", m.epsilon))
	}
	if m.logger == nil {
		m.logger = log.GetLoggerWithName("SGDGLM")
	}
	m.logger = m.logger.With(
		log.ModelNameKey, "SGDGLM",
		log.MethodKey, m.method.String(),
		log.LearningRateTypeKey, m.lrType,
	)
	return m, nil
}

// Fit は (X, y) をデータ全体として最大 maxIter 回走査して学習する
//
// ウォームスタートが無効なら毎回初期推定値から学習し直す。
func (m *SGDGLM) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SGDGLM.Fit")

	m.mu.Lock()
	defer m.mu.Unlock()

	ds, err := newDataset("SGDGLM.Fit", X, y)
	if err != nil {
		return err
	}
	size := ds.Size()

	if !m.warmStart || m.coef_ == nil {
		if err := m.reset(size.P, size.NSamples*m.maxIter); err != nil {
			return err
		}
	} else if size.P != m.nFeatures_ {
		return errors.NewDimensionError("SGDGLM.Fit", m.nFeatures_, size.P, 1)
	}

	m.converged_ = false
	var change float64
	for epoch := 0; epoch < m.maxIter; epoch++ {
		var converged bool
		converged, change, err = m.pass(ds, m.convergence)
		m.nIter_++
		if err != nil {
			return err
		}
		if m.convergence && converged {
			m.converged_ = true
			break
		}
	}

	if m.convergence && !m.converged_ {
		m.logger.Warn("not converged",
			log.ErrorCodeKey, log.ErrorConvergence,
			log.CoefChangeKey, change,
			log.SuggestionKey, "increase maxIter or epsilon",
		)
		errors.Warn(errors.NewConvergenceWarning("SGDGLM", m.nIter_,
			fmt.Sprintf("mean absolute coefficient change %.3g is above epsilon %g", change, m.epsilon)))
	}

	m.state.SetFitted()
	m.state.SetDimensions(size.P, size.NSamples)
	m.logger.Info("fit completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, size.NSamples,
		log.FeaturesKey, size.P,
		log.IterationKey, m.t_,
		"converged", m.converged_,
		"fallbacks", m.fallbacks_,
	)
	return nil
}

// PartialFit はミニバッチの各行で1回ずつ更新し、ステップ数と推定値を引き継ぐ
// 回帰問題なので classes は無視される
func (m *SGDGLM) PartialFit(X, y mat.Matrix, classes []int) (err error) {
	defer errors.Recover(&err, "SGDGLM.PartialFit")

	m.mu.Lock()
	defer m.mu.Unlock()

	ds, err := newDataset("SGDGLM.PartialFit", X, y)
	if err != nil {
		return err
	}
	size := ds.Size()

	if m.coef_ == nil {
		if err := m.reset(size.P, 0); err != nil {
			return err
		}
	}
	if size.P != m.nFeatures_ {
		return errors.NewDimensionError("SGDGLM.PartialFit", m.nFeatures_, size.P, 1)
	}

	converged, _, err := m.pass(ds, false)
	m.nIter_++
	if err != nil {
		return err
	}
	m.converged_ = converged

	m.state.SetFitted()
	if _, n := m.state.GetDimensions(); n == 0 {
		m.state.SetDimensions(size.P, 0)
	}
	m.state.AddSamples(size.NSamples)
	m.logger.Debug("partial fit",
		log.OperationKey, log.OperationPartialFit,
		log.SamplesKey, size.NSamples,
		log.IterationKey, m.t_,
	)
	return nil
}

// FitStream はチャネルから届くバッチで PartialFit を繰り返す
// コンテキストのキャンセルまたはチャネルのクローズで終了する
func (m *SGDGLM) FitStream(ctx context.Context, dataChan <-chan *model.Batch) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-dataChan:
			if !ok {
				return nil
			}
			if batch == nil || batch.X == nil || batch.Y == nil {
				return errors.NewValueError("SGDGLM.FitStream", "batch and its X, Y must not be nil")
			}
			if err := m.PartialFit(batch.X, batch.Y, nil); err != nil {
				return err
			}
		}
	}
}

// reset は Experiment と学習状態を初期化する
func (m *SGDGLM) reset(p, nIters int) error {
	start := m.start
	if start == nil {
		start = mat.NewVecDense(p, nil)
	}
	if start.Len() != p {
		return errors.NewDimensionError("SGDGLM.reset", p, start.Len(), 1)
	}

	opts := []glm.ExperimentOption{
		glm.WithDimension(p),
		glm.WithIterations(nIters),
		glm.WithStart(start),
		glm.WithEpsilon(m.epsilon),
		glm.WithTrace(m.trace),
		glm.WithDeviance(m.dev),
		glm.WithConvergence(m.convergence),
		glm.WithRootFinding(m.rootSettings),
		glm.WithLogger(m.logger),
	}
	if m.offset != nil {
		opts = append(opts, glm.WithOffset(m.offset))
	}
	if m.weights != nil {
		opts = append(opts, glm.WithWeights(m.weights))
	}
	exp, err := glm.NewExperiment(m.family, m.transfer, opts...)
	if err != nil {
		return err
	}

	lt, err := glm.ParseLearningRate(m.lrType)
	if err != nil {
		return err
	}
	switch lt {
	case glm.UniDimLearningRateType:
		exp.InitUniDimLearningRate(m.gamma, m.alpha, m.c, m.scale)
	case glm.PxDimLearningRateType:
		exp.InitPxDimLearningRate()
	}

	m.exp = exp
	m.coef_ = mat.VecDenseCopyOf(start)
	m.output = glm.NewOnlineOutputWithCapacity(start, nIters)
	m.nFeatures_ = p
	m.t_ = 0
	m.nIter_ = 0
	m.converged_ = false
	m.fallbacks_ = 0
	m.state.Reset()
	return nil
}

// pass はデータセットを1回走査する
// stopEarly が真なら係数の平均絶対変化が epsilon 未満になった時点で打ち切る
func (m *SGDGLM) pass(ds *glm.Dataset, stopEarly bool) (converged bool, change float64, err error) {
	n := ds.Size().NSamples
	p := float64(m.nFeatures_)

	for i := 0; i < n; i++ {
		dp := ds.Row(i)
		theta, err := m.step(dp, m.exp.OffsetAt(i))
		if err != nil {
			return false, change, err
		}

		if m.validity {
			if err := m.exp.CheckValidity(ds, theta, i+1); err != nil {
				eta := math.NaN()
				var ve *errors.ValidityError
				if errors.As(err, &ve) {
					eta = ve.Eta
				}
				m.logger.Error("validity check failed",
					err,
					log.ErrorCodeKey, log.ErrorValidity,
					log.IterationKey, m.t_,
					log.EtaKey, eta,
				)
				return false, change, errors.Wrapf(err, "SGDGLM step %d", m.t_)
			}
		}

		change = floats.Distance(theta.RawVector().Data, m.coef_.RawVector().Data, 1) / p
		m.coef_ = theta
		if err := m.output.Append(theta); err != nil {
			return false, change, err
		}

		converged = change < m.epsilon
		if stopEarly && converged {
			m.logger.Debug("converged",
				log.CoefChangeKey, change,
				log.IterationKey, m.t_,
			)
			return true, change, nil
		}
	}
	return converged, change, nil
}

// step は1観測分の更新を行う。学習率はステップごとに一度だけ計算する。
func (m *SGDGLM) step(dp glm.DataPoint, offset float64) (*mat.VecDense, error) {
	m.t_++
	t := m.t_

	rate, err := m.exp.LearningRate(m.coef_, dp, offset, t)
	if err != nil {
		return nil, err
	}
	if m.method == Explicit {
		return m.exp.ExplicitStep(m.coef_, dp, offset, t, rate)
	}

	theta, err := m.exp.ImplicitStep(m.coef_, dp, offset, t, rate)
	if err != nil && m.fallback && errors.IsRootFindingFailure(err) {
		m.fallbacks_++
		m.logger.Warn("implicit update failed, taking an explicit step",
			log.ErrorCodeKey, log.ErrorRootFinding,
			log.IterationKey, t,
			log.ErrAttrKey, err.Error(),
		)
		return m.exp.ExplicitStep(m.coef_, dp, offset, t, rate)
	}
	return theta, err
}

// newDataset は X と n×1 の y から glm.Dataset を作る
func newDataset(op string, X, y mat.Matrix) (*glm.Dataset, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError(op, "X and y must not be nil")
	}
	Y, err := metrics.ColumnVector(op, y)
	if err != nil {
		return nil, err
	}
	return glm.NewDataset(mat.DenseCopyOf(X), Y)
}

// DecisionFunction は線形予測子 Xθ を n×1 行列で返す
func (m *SGDGLM) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	eta, err := m.linearPredictor("DecisionFunction", X)
	if err != nil {
		return nil, err
	}
	return eta, nil
}

// Predict は平均の予測 h(Xθ) を n×1 行列で返す
// オフセットは学習データの行に対するものなので予測では使わない
func (m *SGDGLM) Predict(X mat.Matrix) (mat.Matrix, error) {
	eta, err := m.linearPredictor("Predict", X)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	rows, _ := eta.Dims()
	m.logger.Debug("predict",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, rows,
	)
	return m.exp.HTransferMatrix(eta), nil
}

func (m *SGDGLM) linearPredictor(method string, X mat.Matrix) (*mat.Dense, error) {
	if err := m.state.RequireFitted("SGDGLM", method); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, cols := X.Dims()
	if cols != m.nFeatures_ {
		return nil, errors.NewDimensionError("SGDGLM."+method, m.nFeatures_, cols, 1)
	}

	coef := m.coef_.RawVector().Data
	eta := make([]float64, rows)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(row, i, X)
			eta[i] = floats.Dot(row, coef)
		}
	})
	return mat.NewDense(rows, 1, eta), nil
}

// Score は予測の決定係数 R² を返す
func (m *SGDGLM) Score(X, y mat.Matrix) (float64, error) {
	yTrue, yPred, err := m.predictPair("Score", X, y)
	if err != nil {
		return 0, err
	}
	m.logger.Debug("score",
		log.OperationKey, log.OperationScore,
		log.SamplesKey, yTrue.Len(),
	)
	return metrics.R2Score(yTrue, yPred)
}

// Deviance はファミリーの平均逸脱度を返す
func (m *SGDGLM) Deviance(X, y mat.Matrix) (float64, error) {
	yTrue, mu, err := m.predictPair("Deviance", X, y)
	if err != nil {
		return 0, err
	}
	return metrics.MeanDeviance(m.exp.Family(), yTrue, mu, nil)
}

// DevianceExplained は逸脱度の説明率 D² を返す
func (m *SGDGLM) DevianceExplained(X, y mat.Matrix) (float64, error) {
	yTrue, mu, err := m.predictPair("DevianceExplained", X, y)
	if err != nil {
		return 0, err
	}
	return metrics.DevianceExplained(m.exp.Family(), yTrue, mu, nil)
}

func (m *SGDGLM) predictPair(method string, X, y mat.Matrix) (yTrue, yPred *mat.VecDense, err error) {
	pred, err := m.Predict(X)
	if err != nil {
		return nil, nil, err
	}
	op := "SGDGLM." + method
	if yTrue, err = metrics.ColumnVector(op, y); err != nil {
		return nil, nil, err
	}
	if yPred, err = metrics.ColumnVector(op, pred); err != nil {
		return nil, nil, err
	}
	return yTrue, yPred, nil
}

// Coef は現在の推定値のコピーを返す。未学習なら nil
func (m *SGDGLM) Coef() *mat.VecDense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.coef_ == nil {
		return nil
	}
	return mat.VecDenseCopyOf(m.coef_)
}

// Output は推定値の履歴を返す。学習中に読んではならない
func (m *SGDGLM) Output() *glm.OnlineOutput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.output
}

// Experiment は学習に使用している glm.Experiment を返す
func (m *SGDGLM) Experiment() *glm.Experiment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.exp
}

// NIterations は実行された走査回数を返す
func (m *SGDGLM) NIterations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.nIter_
}

// Steps は実行された更新の総数を返す
func (m *SGDGLM) Steps() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.t_
}

// Converged は最後の走査で係数の変化が epsilon 未満になったかを返す
func (m *SGDGLM) Converged() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.converged_
}

// Fallbacks は陽的更新にフォールバックした回数を返す
func (m *SGDGLM) Fallbacks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallbacks_
}

// IsWarmStart はウォームスタートが有効かどうかを返す
func (m *SGDGLM) IsWarmStart() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.warmStart
}

// SetWarmStart はウォームスタートの有効/無効を設定
func (m *SGDGLM) SetWarmStart(warmStart bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warmStart = warmStart
}

// IsFitted は学習済みかどうかを返す
func (m *SGDGLM) IsFitted() bool {
	return m.state.IsFitted()
}

func (m *SGDGLM) String() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.exp == nil {
		return fmt.Sprintf("SGDGLM(family=%s, transfer=%s, method=%s, learning_rate=%s)",
			m.family, m.transfer, m.method, m.lrType)
	}
	return m.exp.String()
}

var (
	_ model.StreamingEstimator = (*SGDGLM)(nil)
	_ model.Scorer             = (*SGDGLM)(nil)
)
