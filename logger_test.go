package ttgo

import "testing"

func TestSetLogger(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	log := &captureLogger{}
	SetLogger(log)
	if loggerOr(nil) != Logger(log) {
		t.Error("Expected nil logger to fall back to the global logger")
	}
	own := &captureLogger{}
	if loggerOr(own) != Logger(own) {
		t.Error("Expected explicit logger to be kept")
	}

	(&LogDisplay{}).Flush()
	if len(log.lines) != 1 {
		t.Errorf("Expected display frame on the global logger, got %v", log.lines)
	}

	SetLogger(nil)
	if _, ok := globalLogger.(*nopLogger); !ok {
		t.Errorf("Expected nop logger after SetLogger(nil), got %T", globalLogger)
	}
}
