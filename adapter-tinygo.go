//go:build tinygo

package ttgo

import (
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers/ssd1306"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
)

var white = color.RGBA{255, 255, 255, 255}

// tinygoPin wraps a machine.Pin to satisfy the Pin interface.
type tinygoPin struct {
	pin machine.Pin
}

func (p *tinygoPin) Out(l Level) error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.pin.Set(bool(l))
	return nil
}

// tinygoDisplay wraps an ssd1306.Device to satisfy the Display interface.
type tinygoDisplay struct {
	dev ssd1306.Device
}

func (d *tinygoDisplay) Clear() {
	d.dev.ClearBuffer()
}

func (d *tinygoDisplay) DrawString(x, y int16, s string) {
	// tinyfont positions text on its baseline
	tinyfont.WriteLine(&d.dev, &freemono.Regular9pt7b, x, y+12, s, white)
}

func (d *tinygoDisplay) Flush() error {
	return d.dev.Display()
}

// NewTinyGo creates a node for TinyGo systems. The display is attached to
// I2C0 on the board OLED pins. Board.FlipScreen is not supported.
func NewTinyGo(c Config, board Board, engine Engine) (*Node, error) {
	if board == (Board{}) {
		board = TTGOLoRa32
	}

	// Pulse the reset line low before talking to the controller.
	if board.OLEDResetPin != 0 {
		rst := machine.Pin(board.OLEDResetPin)
		rst.Configure(machine.PinConfig{Mode: machine.PinOutput})
		rst.Low()
		time.Sleep(50 * time.Millisecond)
		rst.High()
	}

	err := machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.Pin(board.OLEDSDAPin),
		SCL:       machine.Pin(board.OLEDSCLPin),
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		return nil, err
	}

	disp := &tinygoDisplay{dev: ssd1306.NewI2C(machine.I2C0)}
	disp.dev.Configure(ssd1306.Config{
		Address: board.OLEDAddr,
		Width:   128,
		Height:  64,
	})
	disp.dev.ClearDisplay()

	var led Pin
	if board.LEDPin != 0 {
		led = &tinygoPin{pin: machine.Pin(board.LEDPin)}
	}

	return NewWithHardware(HardwareConfig{
		Config:  c,
		Engine:  engine,
		Display: disp,
		LED:     led,
	})
}
