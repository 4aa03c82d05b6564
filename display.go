package ttgo

import (
	"fmt"
	"strconv"
	"strings"
)

// Text rows of the status screen.
const (
	rowActivity = 0
	rowSignal   = 25
	rowCounter  = 50
)

// Render draws one status frame: the activity label, the last signal
// strength and the transmit counter.
func Render(d Display, label string, rssi int, counter uint32) error {
	d.Clear()
	d.DrawString(0, rowActivity, label)
	d.DrawString(0, rowSignal, "rssi: "+strconv.Itoa(rssi))
	d.DrawString(0, rowCounter, strconv.FormatUint(uint64(counter), 10))
	return d.Flush()
}

// LogDisplay is a Display for hosts without a screen: each flushed frame is
// written to a logger at debug level.
type LogDisplay struct {
	Logger Logger
	lines  []string
}

func (d *LogDisplay) Clear() { d.lines = d.lines[:0] }

func (d *LogDisplay) DrawString(x, y int16, s string) {
	d.lines = append(d.lines, s)
}

func (d *LogDisplay) Flush() error {
	loggerOr(d.Logger).Debug(fmt.Sprintf("display: [%s]", strings.Join(d.lines, " | ")))
	return nil
}
