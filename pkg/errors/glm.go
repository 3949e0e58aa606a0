package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// GLM推定コアが返すエラー種別。型付きエラーはUnwrapでこれらに到達するため、
// 呼び出し側は errors.Is で種別を判定できます。
var (
	// ErrUnknownFamily は未知のファミリー名が指定された場合のエラーです。
	ErrUnknownFamily = New("unknown family")

	// ErrUnknownTransfer は未知の変換関数名が指定された場合のエラーです。
	ErrUnknownTransfer = New("unknown transfer")

	// ErrUnknownLearningRate は未知の学習率スケジュール名が指定された場合のエラーです。
	ErrUnknownLearningRate = New("unknown learning rate")

	// ErrUnknownMethod は未知の更新方式名が指定された場合のエラーです。
	ErrUnknownMethod = New("unknown method")

	// ErrInvalidEta は線形予測子が変換関数の定義域外にある場合のエラーです。
	ErrInvalidEta = New("invalid linear predictor")

	// ErrNonFiniteVariance は分散関数の値が有限でない場合のエラーです。
	ErrNonFiniteVariance = New("non-finite variance")

	// ErrNonFiniteDeviance は逸脱度が有限でない場合のエラーです。
	ErrNonFiniteDeviance = New("non-finite deviance")

	// ErrNoRootBracketed は探索区間の両端で関数の符号が変わらない場合のエラーです。
	ErrNoRootBracketed = New("no root bracketed")

	// ErrRootFindingDidNotConverge は根の探索が反復上限に達した場合のエラーです。
	ErrRootFindingDidNotConverge = New("root finding did not converge")
)

// UnknownOptionError は文字列識別子で戦略を選択する際に、識別子が既知の候補と
// 一致しなかった場合のエラーです。
type UnknownOptionError struct {
	Option  string   // "family", "transfer", "learning_rate", "method"
	Name    string   // 指定された識別子
	Choices []string // 有効な識別子
	Kind    error    // ErrUnknownFamily など
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("isgd: %s: %q is not one of [%s]", e.Kind, e.Name, strings.Join(e.Choices, ", "))
}

func (e *UnknownOptionError) Unwrap() error {
	return e.Kind
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *UnknownOptionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("option", e.Option).
		Str("name", e.Name).
		Strs("choices", e.Choices).
		Str("type", "UnknownOptionError")
}

// NewUnknownOptionError は新しいUnknownOptionErrorを作成し、スタックトレースを付与します。
func NewUnknownOptionError(option, name string, choices []string, kind error) error {
	err := &UnknownOptionError{Option: option, Name: name, Choices: choices, Kind: kind}
	return errors.WithStack(err)
}

// ValidityError は推定値の妥当性検査に失敗した場合のエラーです。
// Kind は ErrInvalidEta、ErrNonFiniteVariance、ErrNonFiniteDeviance のいずれかです。
type ValidityError struct {
	Iteration int
	Eta       float64
	Value     float64
	Kind      error
}

func (e *ValidityError) Error() string {
	return fmt.Sprintf("isgd: %s in iteration %d (eta=%.6g, value=%.6g)", e.Kind, e.Iteration, e.Eta, e.Value)
}

func (e *ValidityError) Unwrap() error {
	return e.Kind
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidityError) MarshalZerologObject(event *zerolog.Event) {
	event.Int("iteration", e.Iteration).
		Float64("eta", e.Eta).
		Float64("value", e.Value).
		Str("kind", e.Kind.Error()).
		Str("type", "ValidityError")
}

// NewValidityError は新しいValidityErrorを作成し、スタックトレースを付与します。
func NewValidityError(kind error, iteration int, eta, value float64) error {
	err := &ValidityError{Iteration: iteration, Eta: eta, Value: value, Kind: kind}
	return errors.WithStack(err)
}

// RootFindingError は一次元の根探索が失敗した場合のエラーです。
// Kind は ErrNoRootBracketed または ErrRootFindingDidNotConverge です。
type RootFindingError struct {
	Lower      float64
	Upper      float64
	FLower     float64
	FUpper     float64
	Iterations int
	Kind       error
}

func (e *RootFindingError) Error() string {
	return fmt.Sprintf("isgd: %s on [%.6g, %.6g] (f=[%.6g, %.6g]) after %d iterations",
		e.Kind, e.Lower, e.Upper, e.FLower, e.FUpper, e.Iterations)
}

func (e *RootFindingError) Unwrap() error {
	return e.Kind
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *RootFindingError) MarshalZerologObject(event *zerolog.Event) {
	event.Float64("lower", e.Lower).
		Float64("upper", e.Upper).
		Float64("f_lower", e.FLower).
		Float64("f_upper", e.FUpper).
		Int("iterations", e.Iterations).
		Str("kind", e.Kind.Error()).
		Str("type", "RootFindingError")
}

// NewRootFindingError は新しいRootFindingErrorを作成し、スタックトレースを付与します。
func NewRootFindingError(kind error, lower, upper, fLower, fUpper float64, iterations int) error {
	err := &RootFindingError{
		Lower:      lower,
		Upper:      upper,
		FLower:     fLower,
		FUpper:     fUpper,
		Iterations: iterations,
		Kind:       kind,
	}
	return errors.WithStack(err)
}

// IsRootFindingFailure は err が陰的更新の根探索失敗（区間なし・未収束）かどうかを返します。
// 呼び出し側は陽的更新へのフォールバックを判断するために使用します。
func IsRootFindingFailure(err error) bool {
	return errors.Is(err, ErrNoRootBracketed) || errors.Is(err, ErrRootFindingDidNotConverge)
}
