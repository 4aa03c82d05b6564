package ttgo

// Logger defines the logging interface for simple string messages.
// Using simple strings instead of formatted strings keeps the interface
// implementable on microcontrollers (TinyGo) without the fmt package.
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

var globalLogger Logger = &nopLogger{}

// SetLogger sets the global logger instance.
// Nodes, engines and sinks created afterwards without an explicit logger
// use it.
func SetLogger(l Logger) {
	if l == nil {
		globalLogger = &nopLogger{}
		return
	}
	globalLogger = l
}

// loggerOr returns l, or the global logger when l is nil.
func loggerOr(l Logger) Logger {
	if l == nil {
		return globalLogger
	}
	return l
}

// nopLogger discards everything. Tests use it to silence engines.
type nopLogger struct{}

func (*nopLogger) Debug(string) {}
func (*nopLogger) Info(string)  {}
func (*nopLogger) Warn(string)  {}
func (*nopLogger) Error(string) {}
