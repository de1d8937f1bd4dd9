package logger

import corelogger "github.com/epicast-dev/epicast/core/logger"

// Logger mirrors the core logger interface so callers can depend on the
// adapter package alone.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.Nop

// New returns a Logger for the given component. The environment is detected
// via the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
