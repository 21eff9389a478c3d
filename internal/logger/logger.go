package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

// Options はConfigureで組み立てるロガーの設定。
type Options struct {
	// Format は "json" または "text"。textの場合はtintによる色付きのコンソール出力になる。
	Format string
	// Level は "debug", "info", "warn", "error" のいずれか。不明な値はinfo扱い。
	Level string
	// Fluent が指定された場合、コンソール出力に加えてFluent Bitへもレコードを転送する。
	Fluent Poster
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 設定読み込み前のログを出すために起動直後に呼び出す。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w)
	slog.SetDefault(logger)
}

// Configure は設定に従ってslog.Loggerを生成し、グローバルロガーとして設定する。
func Configure(w io.Writer, opts Options) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	level := ParseLevel(opts.Level)

	var console slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		console = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05",
		})
	} else {
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	handler := console
	if opts.Fluent != nil {
		handler = newFanoutHandler(console, newFluentHandler(opts.Fluent, level))
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel はログレベル文字列をslog.Levelに変換する。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
