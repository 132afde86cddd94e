package logging

import (
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	l *zap.Logger
}

func NewZapLogger(l *zap.Logger) *ZapLogger {
	return &ZapLogger{l: l}
}

// Build configures a zap logger.
//
// Available values of level:
// - DEBUG
// - INFO
// - WARN
// - ERROR
func Build(levelSet string, development bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if err := level.Set(levelSet); err != nil {
		return nil, errors.Wrapf(err, "Failed parse log level %q", levelSet)
	}
	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level.SetLevel(level)
	l, err := config.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, errors.Wrap(err, "Failed build logger")
	}
	return l, nil
}

func (z *ZapLogger) Named(name string) *ZapLogger {
	return &ZapLogger{l: z.l.Named(name)}
}

func (z *ZapLogger) Zap() *zap.Logger {
	return z.l
}

func (z *ZapLogger) Info(msg string, fields map[string]any) {
	z.l.Info(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Warn(msg string, fields map[string]any) {
	z.l.Warn(msg, toZapFields(fields)...)
}

func (z *ZapLogger) Error(msg string, fields map[string]any) {
	z.l.Error(msg, toZapFields(fields)...)
}

func toZapFields(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(fields))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
