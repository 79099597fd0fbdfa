package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorKind はエラーの分類です。ログと終了処理で利用されます。
type ErrorKind string

const (
	// KindTransport は外部 API への接続失敗、タイムアウト、2xx 以外のステータスを表します。
	KindTransport ErrorKind = "TransportError"
	// KindFormat は JSON や CSV などの入力がパースできない、もしくは期待する形でないことを表します。
	KindFormat ErrorKind = "FormatError"
	// KindSchema は必須カラムが欠けていることを表します。
	KindSchema ErrorKind = "SchemaError"
	// KindParse は日付など個々の値が解釈できないことを表します。
	KindParse ErrorKind = "ParseError"
	// KindPersistence はデータベースへの接続や書き込みの失敗を表します。
	KindPersistence ErrorKind = "PersistenceError"
	// KindConfig は設定値の不足や不正を表します。
	KindConfig ErrorKind = "ConfigError"
	// KindInternal はフレームワーク内部のエラーです。
	KindInternal ErrorKind = "InternalError"
)

// BatchError はバッチ処理中に発生するカスタムエラー型です。
// エラーの発生元モジュール、分類、メッセージ、ラップされた元のエラーを保持します。
type BatchError struct {
	Module      string    // エラーが発生したモジュール (例: "extract", "transform", "load", "config")
	Kind        ErrorKind // エラーの分類
	Message     string    // エラーの簡潔な説明
	OriginalErr error     // ラップされた元のエラー
	StackTrace  string    // スタックトレース (デバッグ用)
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// NewBatchError は新しい BatchError のインスタンスを作成します。
func NewBatchError(module string, kind ErrorKind, message string, originalErr error) *BatchError {
	return &BatchError{
		Module:      module,
		Kind:        kind,
		Message:     message,
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf はフォーマット文字列を使用して新しい BatchError を作成します。
// 引数の最後が error の場合、それはメッセージには含めず OriginalErr として保持します。
func NewBatchErrorf(module string, kind ErrorKind, format string, a ...interface{}) *BatchError {
	var originalErr error
	if n := len(a); n > 0 {
		if err, ok := a[n-1].(error); ok {
			originalErr = err
			a = a[:n-1]
		}
	}
	return &BatchError{
		Module:      module,
		Kind:        kind,
		Message:     fmt.Sprintf(format, a...),
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

// Error は error インターフェースの実装です。
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Module, e.Kind, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Module, e.Kind, e.Message)
}

// Unwrap は errors.Unwrap のために元のエラーを返します。
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// KindOf はエラーチェーンの中で最も内側にある BatchError の分類を返します。
// フレームワーク層がドメインのエラーを包み直しても、元の分類が失われないようにします。
// BatchError が含まれていない場合は KindInternal と false を返します。
func KindOf(err error) (ErrorKind, bool) {
	var found *BatchError
	for err != nil {
		var be *BatchError
		if !errors.As(err, &be) {
			break
		}
		found = be
		err = be.OriginalErr
	}
	if found == nil {
		return KindInternal, false
	}
	return found.Kind, true
}

// IsKind はエラーチェーンに指定された分類の BatchError が含まれているかを判定します。
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		var be *BatchError
		if !errors.As(err, &be) {
			return false
		}
		if be.Kind == kind {
			return true
		}
		err = be.OriginalErr
	}
	return false
}
