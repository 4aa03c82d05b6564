//go:build tinygo

package ttgo

import (
	"machine"
	"strconv"
	"time"
)

func init() {
	globalLogger = &serialLogger{boot: time.Now()}
}

// serialLogger writes to the USB serial console, prefixing every line with
// the milliseconds elapsed since boot. It avoids the fmt package to keep the
// firmware small.
type serialLogger struct {
	boot time.Time
	buf  [20]byte
}

func (l *serialLogger) log(level, msg string) {
	ms := strconv.AppendInt(l.buf[:0], time.Since(l.boot).Milliseconds(), 10)
	machine.Serial.Write([]byte(level))
	machine.Serial.Write(ms)
	machine.Serial.Write([]byte(": "))
	machine.Serial.Write([]byte(msg))
	machine.Serial.Write([]byte("\r\n"))
}

func (l *serialLogger) Debug(msg string) { l.log("[DEBUG] ", msg) }
func (l *serialLogger) Info(msg string)  { l.log("[INFO]  ", msg) }
func (l *serialLogger) Warn(msg string)  { l.log("[WARN]  ", msg) }
func (l *serialLogger) Error(msg string) { l.log("[ERROR] ", msg) }
