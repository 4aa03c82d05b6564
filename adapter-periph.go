//go:build !tinygo

package ttgo

import (
	"fmt"
	"image"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// periphPin wraps a gpio.PinIO to satisfy the Pin interface.
type periphPin struct {
	gpio.PinIO
}

func (p *periphPin) Out(l Level) error {
	if l == High {
		return p.PinIO.Out(gpio.High)
	}
	return p.PinIO.Out(gpio.Low)
}

// periphDisplay draws text on an SSD1306 through an in-memory frame.
type periphDisplay struct {
	dev *ssd1306.Dev
	img *image1bit.VerticalLSB
}

func (d *periphDisplay) Clear() {
	clear(d.img.Pix)
}

func (d *periphDisplay) DrawString(x, y int16, s string) {
	face := basicfont.Face7x13
	drawer := font.Drawer{
		Dst:  d.img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: face,
		Dot:  fixed.P(int(x), int(y)+face.Ascent),
	}
	drawer.DrawString(s)
}

func (d *periphDisplay) Flush() error {
	return d.dev.Draw(d.dev.Bounds(), d.img, image.Point{})
}

// Close switches the panel off.
func (d *periphDisplay) Close() error {
	return d.dev.Halt()
}

// PeriphConfig holds the configuration for Linux hosts using periph.io.
type PeriphConfig struct {
	Config
	// Board is the peripheral wiring.
	// Defaults to TTGOLoRa32 if not provided.
	Board Board
	// I2CBus is the name of the bus the display sits on (e.g. "/dev/i2c-1").
	// Defaults to the first bus found if not provided.
	I2CBus string
	// NoDisplay runs without the OLED. Frames are logged at debug level.
	NoDisplay bool
	// Clock defaults to the system clock.
	Clock Clock
}

// New creates a node for Linux systems.
// It initializes the GPIO and I2C interfaces using periph.io, resets and
// opens the display and wires them to engine.
func New(c PeriphConfig, engine Engine) (*Node, error) {
	// 1. Initialize periph.io host (Required for both I2C and GPIO)
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph.io host: %w", err)
	}

	if c.Board == (Board{}) {
		c.Board = TTGOLoRa32
	}
	log := loggerOr(c.Config.Logger)

	// 2. Setup LED Pin
	var led Pin
	if c.Board.LEDPin != 0 {
		name := fmt.Sprintf("GPIO%d", c.Board.LEDPin)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("failed to open LED pin %s", name)
		}
		led = &periphPin{PinIO: p}
	}

	// 3. Setup display
	var (
		disp Display
		bus  i2c.BusCloser
	)
	if c.NoDisplay {
		disp = &LogDisplay{Logger: log}
	} else {
		var err error
		disp, bus, err = openDisplay(c.Board, c.I2CBus)
		if err != nil {
			return nil, err
		}
	}

	// 4. Call internal constructor
	n, err := NewWithHardware(HardwareConfig{
		Config:  c.Config,
		Engine:  engine,
		Display: disp,
		LED:     led,
		Clock:   c.Clock,
	})
	if err != nil {
		if bus != nil {
			bus.Close()
		}
		return nil, err
	}

	// Closed in reverse order: panel first, then its bus.
	if bus != nil {
		n.AddCloser(bus)
		n.AddCloser(disp.(*periphDisplay))
	}
	return n, nil
}

func openDisplay(b Board, busName string) (*periphDisplay, i2c.BusCloser, error) {
	if b.OLEDAddr != 0 && b.OLEDAddr != 0x3C {
		return nil, nil, fmt.Errorf("%w: unsupported OLED address %#x", ErrPkg, b.OLEDAddr)
	}

	// Pulse the reset line low before talking to the controller.
	if b.OLEDResetPin != 0 {
		name := fmt.Sprintf("GPIO%d", b.OLEDResetPin)
		rst := gpioreg.ByName(name)
		if rst == nil {
			return nil, nil, fmt.Errorf("failed to open OLED reset pin %s", name)
		}
		if err := rst.Out(gpio.Low); err != nil {
			return nil, nil, fmt.Errorf("failed to reset OLED: %w", err)
		}
		time.Sleep(50 * time.Millisecond)
		if err := rst.Out(gpio.High); err != nil {
			return nil, nil, fmt.Errorf("failed to reset OLED: %w", err)
		}
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: 128, H: 64, Rotated: b.FlipScreen})
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to open SSD1306: %w", err)
	}

	return &periphDisplay{
		dev: dev,
		img: image1bit.NewVerticalLSB(dev.Bounds()),
	}, bus, nil
}
