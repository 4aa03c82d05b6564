package ttgo

// Board describes how the node peripherals are wired.
// Pin numbers are GPIO numbers as printed on the board.
type Board struct {
	// LEDPin drives the activity LED, lit while an uplink is in flight.
	LEDPin int `yaml:"led_pin"`
	// OLEDResetPin is pulsed low before the display is initialized.
	// Zero means the display has no reset line.
	OLEDResetPin int `yaml:"oled_reset_pin"`
	// OLEDSDAPin and OLEDSCLPin are the I2C lines of the display.
	OLEDSDAPin int `yaml:"oled_sda_pin"`
	OLEDSCLPin int `yaml:"oled_scl_pin"`
	// OLEDAddr is the 7-bit I2C address of the SSD1306 controller.
	OLEDAddr uint16 `yaml:"oled_addr"`
	// FlipScreen rotates the picture by 180 degrees.
	FlipScreen bool `yaml:"flip_screen"`
}

// TTGOLoRa32 is the wiring of the Heltec ESP32 LoRa / TTGO LoRa32 boards.
var TTGOLoRa32 = Board{
	LEDPin:       2,
	OLEDResetPin: 16,
	OLEDSDAPin:   4,
	OLEDSCLPin:   15,
	OLEDAddr:     0x3C,
	FlipScreen:   true,
}

// HardwareConfig ties a node configuration to the peripherals it drives.
type HardwareConfig struct {
	Config
	// Engine is the radio-MAC engine. Required.
	Engine Engine
	// Display shows transmit activity. Optional.
	Display Display
	// LED signals an uplink in flight. Optional.
	LED Pin
	// Clock defaults to the system clock.
	Clock Clock
}
