package log

import (
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logger = newLogger("huddle")

func newLogger(appName string) *log.Logger {
	// 使用 os.Stdout 而不是 os.Stderr，避免控制台把所有日志都显示为红色
	l := log.New(os.Stdout)
	l.SetPrefix(appName)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.DateTime)
	l.SetReportCaller(true)
	// 包装了一层，调用者信息要跳过本文件
	l.SetCallerOffset(1)
	l.SetLevel(log.InfoLevel)
	return l
}

func InitLog(appName string, logLevel string) {
	logger = newLogger(appName)
	SetLevel(logLevel)
}

// SetLevel 动态调整日志级别，配置热更新时调用
// 默认为 info 级别
func SetLevel(logLevel string) {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
}

// Level 当前日志级别
func Level() string {
	return logger.GetLevel().String()
}

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		logger.Fatal(format)
	} else {
		logger.Fatalf(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		logger.Info(format)
	} else {
		logger.Infof(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		logger.Warn(format)
	} else {
		logger.Warnf(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		logger.Error(format)
	} else {
		logger.Errorf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		logger.Debug(format)
	} else {
		logger.Debugf(format, args...)
	}
}
