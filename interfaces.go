package ttgo

import "time"

// Level represents the logical level of a pin (Low or High).
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Pin represents a generic GPIO output pin, such as the activity LED or the
// OLED reset line.
type Pin interface {
	// Out sets the pin as output with the given level.
	Out(l Level) error
}

// Display represents a small monochrome text display.
// Drawing happens on an off-screen buffer; nothing is visible until Flush.
type Display interface {
	// Clear blanks the drawing buffer.
	Clear()
	// DrawString writes s with its top-left corner at (x, y).
	DrawString(x, y int16, s string)
	// Flush commits the buffer to the screen.
	Flush() error
}

// Clock is the time source of the run loop and of timed jobs.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
