package log

import (
	contextPkg "SentinelAI/pkg/context"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

const (
	RequestIDKey = "request_id"
	defaultDir   = "./storage/logs"
)

type Fields = logrus.Fields

// NewLogger builds the process-wide logger once. LOG_LEVEL selects the level
// (default debug), LOG_DIR the rotated file location. APP_ENV=test keeps
// output on stderr only.
func NewLogger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(parseLevel(os.Getenv("LOG_LEVEL")))

		logger.SetFormatter(&formatter.Formatter{
			NoColors:        os.Getenv("LOG_NO_COLOR") == "true",
			TimestampFormat: "02 Jan 06 - 15:04:05",
			HideKeys:        false,
			CallerFirst:     true,
			CustomCallerFormatter: func(f *runtime.Frame) string {
				s := strings.Split(f.Function, ".")
				funcName := s[len(s)-1]
				return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]", 34, path.Base(f.File), f.Line, funcName)
			},
		})

		writers := []io.Writer{os.Stderr}

		if os.Getenv("APP_ENV") != "test" {
			dir := os.Getenv("LOG_DIR")
			if dir == "" {
				dir = defaultDir
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   filepath.Join(dir, fmt.Sprintf("sentinel-%s.log", time.Now().Format("2006-01-02"))),
				LocalTime:  true,
				Compress:   true,
				MaxSize:    50,
				MaxAge:     14,
				MaxBackups: 5,
			})
		}

		logger.SetOutput(io.MultiWriter(writers...))
		logger.SetReportCaller(true)
	})

	return logger
}

func parseLevel(raw string) logrus.Level {
	if raw == "" {
		return logrus.DebugLevel
	}
	level, err := logrus.ParseLevel(raw)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func entry(fields Fields) *logrus.Entry {
	if fields == nil {
		fields = Fields{}
	}
	return NewLogger().WithFields(fields)
}

func Debug(fields Fields, msg string) {
	entry(fields).Debug(msg)
}

func Info(fields Fields, msg string) {
	entry(fields).Info(msg)
}

func Warn(fields Fields, msg string) {
	entry(fields).Warn(msg)
}

func Error(fields Fields, msg string) {
	entry(fields).Error(msg)
}

// ErrorWithTraceID logs msg with a trace ID (the request ID when present,
// otherwise a fresh UUID) and returns it so callers can surface it.
func ErrorWithTraceID(fields Fields, msg string) string {
	if fields == nil {
		fields = Fields{}
	}

	traceID, _ := fields[RequestIDKey].(string)
	if traceID == "" || traceID == "unknown" {
		id, err := uuid.NewRandom()
		if err != nil {
			traceID = "unknown"
		} else {
			traceID = id.String()
		}
	}

	fields["trace_id"] = traceID
	entry(fields).Error(msg)

	return traceID
}

func Fatal(fields Fields, msg string) {
	entry(fields).Fatal(msg)
}

func WithRequestID(ctx context.Context) *logrus.Entry {
	return NewLogger().WithField(RequestIDKey, contextPkg.GetRequestID(ctx))
}

// Discard returns a logger that writes nowhere, for tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
