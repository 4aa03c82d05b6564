//go:build !tinygo

package ttgo

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	globalLogger = &zerologLogger{}
}

// zerologLogger forwards to a zerolog logger. Without an explicit logger it
// uses the global log.Logger at call time, so programs may reconfigure the
// output after the package is initialized.
type zerologLogger struct {
	l *zerolog.Logger
}

// NewZerologLogger adapts l to the Logger interface.
func NewZerologLogger(l zerolog.Logger) Logger {
	return &zerologLogger{l: &l}
}

func (z *zerologLogger) logger() *zerolog.Logger {
	if z.l != nil {
		return z.l
	}
	return &log.Logger
}

func (z *zerologLogger) Debug(msg string) { z.logger().Debug().Msg(msg) }
func (z *zerologLogger) Info(msg string)  { z.logger().Info().Msg(msg) }
func (z *zerologLogger) Warn(msg string)  { z.logger().Warn().Msg(msg) }
func (z *zerologLogger) Error(msg string) { z.logger().Error().Msg(msg) }
