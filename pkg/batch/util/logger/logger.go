package logger

import (
	"io"
	"log"
	"strings"
)

// LogLevel はログのレベルを表す型です。
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	logLevel = LevelInfo
	std      = log.New(log.Writer(), "", log.LstdFlags)
)

// String はログレベルの表示名を返します。
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel は文字列をログレベルに変換します。不明な値の場合は false を返します。
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel はログレベルを設定します。
func SetLogLevel(level string) {
	parsed, ok := ParseLevel(level)
	if !ok {
		std.Printf("[WARN] 不明なログレベル '%s' が指定されました。INFO レベルで続行します。", level)
	}
	logLevel = parsed
}

// Level は現在のログレベルを返します。
func Level() LogLevel {
	return logLevel
}

// SetOutput はログの出力先を差し替えます。
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// Debugf は DEBUG レベルのログを出力します。
func Debugf(format string, v ...interface{}) {
	if logLevel <= LevelDebug {
		std.Printf("[DEBUG] "+format, v...)
	}
}

// Infof は INFO レベルのログを出力します。
func Infof(format string, v ...interface{}) {
	if logLevel <= LevelInfo {
		std.Printf("[INFO] "+format, v...)
	}
}

// Warnf は WARN レベルのログを出力します。
func Warnf(format string, v ...interface{}) {
	if logLevel <= LevelWarn {
		std.Printf("[WARN] "+format, v...)
	}
}

// Errorf は ERROR レベルのログを出力します。
func Errorf(format string, v ...interface{}) {
	if logLevel <= LevelError {
		std.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf は FATAL レベルのログを出力し、プログラムを終了します。
func Fatalf(format string, v ...interface{}) {
	std.Fatalf("[FATAL] "+format, v...)
}
