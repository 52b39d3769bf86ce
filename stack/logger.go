package stack

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the stack package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the stack package's logger. It becomes the
// default for stacks built afterwards; stacks built earlier keep the
// logger they captured. This must be called before any stack operations.
func SetLogger(l *zap.Logger) {
	logger = l
}
