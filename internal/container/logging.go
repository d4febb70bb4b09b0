package container

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// kvLogger adapts zap to the Info/Error key-value interfaces of the
// application packages. Info messages are written at infoLevel so chatty
// components can be demoted to debug.
type kvLogger struct {
	logger    *zap.Logger
	infoLevel zapcore.Level
}

func newKVLogger(logger *zap.Logger, infoLevel zapcore.Level) *kvLogger {
	return &kvLogger{logger: logger, infoLevel: infoLevel}
}

func (l *kvLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Log(l.infoLevel, msg, zapFields(keysAndValues)...)
}

func (l *kvLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zapFields(keysAndValues)...)
}

// zapFields pairs up keys and values. A non-string key or a trailing key
// without value is skipped.
func zapFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, isErr := kv[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}
