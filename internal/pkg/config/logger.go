package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LoggerOptions 日志初始化参数
type LoggerOptions struct {
	Level     string
	Path      string // 为空则只输出到 stdout
	Component string
}

var logLevel = new(slog.LevelVar)

// SetupLogger 设置默认 logger；返回的 Closer 负责关闭日志文件（可能为 nil）
func SetupLogger(opts LoggerOptions) (io.Closer, error) {
	logLevel.Set(ParseLevel(opts.Level))

	var (
		out    io.Writer = os.Stdout
		closer io.Closer
		setErr error
	)
	if p := strings.TrimSpace(opts.Path); p != "" {
		f, err := openLogFile(p)
		if err != nil {
			setErr = err
		} else {
			out = io.MultiWriter(os.Stdout, f)
			closer = f
		}
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	if opts.Component != "" {
		logger = logger.With("component", opts.Component)
	}
	slog.SetDefault(logger)

	if setErr != nil {
		slog.Warn("日志文件不可用，仅输出到 stdout", "path", opts.Path, "error", setErr)
	}
	return closer, setErr
}

// SetLogLevel 运行时调整日志级别（配置热更新）
func SetLogLevel(level string) {
	logLevel.Set(ParseLevel(level))
}

// ParseLevel 解析日志级别，无法识别时为 info
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %w", err)
	}
	return f, nil
}
