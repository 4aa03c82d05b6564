package ttgo

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPkg  = errors.New("ttgo")
	ErrBusy = errors.New("exchange in flight")
)

// MaxClockError is the clock error value meaning 100%.
const MaxClockError = 65536

// Engine is the radio-MAC engine. It owns the LoRaWAN state machine, radio
// timing, duty-cycle accounting and session state; the node only drives it.
//
// Engines are not concurrency safe. Every method, and every event delivered
// through Poll, runs on the goroutine driving the node.
type Engine interface {
	// Init prepares the engine for use.
	Init() error
	// Reset discards the session and any pending transfer.
	Reset() error
	// SetClockError declares the local clock error in units of MaxClockError,
	// widening the receive windows accordingly.
	SetClockError(e uint32)
	// SetupChannel configures one channel of the channel plan.
	SetupChannel(ch Channel) error
	// SetTxData submits an uplink. When no session exists yet the engine
	// joins first and sends the uplink afterwards.
	SetTxData(port uint8, payload []byte, confirmed bool) error
	// TxRxPending reports whether an exchange is in flight.
	TxRxPending() bool
	// SetLinkCheckMode enables or disables link check validation.
	SetLinkCheckMode(enabled bool) error
	// LastRSSI is the raw signal strength of the last exchange.
	LastRSSI() int
	// Downlink is the payload received during the last exchange.
	Downlink() []byte
	// AckReceived reports whether the last exchange was acknowledged.
	AckReceived() bool
	// Poll advances pending radio I/O and timers and delivers events through
	// emit before returning. It does not block.
	Poll(ctx context.Context, emit func(Event)) error
}

// DataRate is a LoRa spreading factor / bandwidth combination, or FSK.
type DataRate uint8

const (
	SF12 DataRate = iota
	SF11
	SF10
	SF9
	SF8
	SF7
	// SF7B is SF7 on a 250kHz channel.
	SF7B
	FSK
)

var dataRateNames = [...]string{"SF12", "SF11", "SF10", "SF9", "SF8", "SF7", "SF7B", "FSK"}

// DR returns the regional data rate index (EU868 numbering).
func (d DataRate) DR() uint8 { return uint8(d) }

func (d DataRate) String() string {
	if int(d) < len(dataRateNames) {
		return dataRateNames[d]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (d DataRate) MarshalText() ([]byte, error) {
	if int(d) >= len(dataRateNames) {
		return nil, fmt.Errorf("%w: invalid data rate %d", ErrPkg, d)
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DataRate) UnmarshalText(text []byte) error {
	s := strings.ToUpper(string(text))
	for i, name := range dataRateNames {
		if name == s {
			*d = DataRate(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown data rate %q", ErrPkg, text)
}

// Band is the duty-cycle class of a sub-band.
type Band uint8

const (
	// BandCenti allows 1% duty cycle.
	BandCenti Band = iota
	// BandMilli allows 0.1% duty cycle.
	BandMilli
	// BandDeci allows 10% duty cycle.
	BandDeci
)

var bandNames = [...]string{"centi", "milli", "deci"}

// DutyCycle returns the denominator of the allowed duty cycle (1/n).
func (b Band) DutyCycle() int {
	switch b {
	case BandMilli:
		return 1000
	case BandDeci:
		return 10
	default:
		return 100
	}
}

func (b Band) String() string {
	if int(b) < len(bandNames) {
		return bandNames[b]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (b Band) MarshalText() ([]byte, error) {
	if int(b) >= len(bandNames) {
		return nil, fmt.Errorf("%w: invalid band %d", ErrPkg, b)
	}
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Band) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for i, name := range bandNames {
		if name == s {
			*b = Band(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown band %q", ErrPkg, text)
}

// Channel is one entry of the channel plan.
type Channel struct {
	Index     uint8    `yaml:"index" json:"index"`
	Frequency uint32   `yaml:"frequency" json:"frequency"` // Hz
	MinDR     DataRate `yaml:"min_dr" json:"minDr"`
	MaxDR     DataRate `yaml:"max_dr" json:"maxDr"`
	Band      Band     `yaml:"band" json:"band"`
}

func (c Channel) String() string {
	return fmt.Sprintf("ch%d %.1fMHz %s-%s %s", c.Index, float64(c.Frequency)/1e6, c.MinDR, c.MaxDR, c.Band)
}

// Validate checks the channel for obviously wrong values.
func (c Channel) Validate() error {
	if c.Index > 15 {
		return fmt.Errorf("%w: channel index %d out of range 0-15", ErrPkg, c.Index)
	}
	if c.Frequency == 0 {
		return fmt.Errorf("%w: channel %d has no frequency", ErrPkg, c.Index)
	}
	if c.MinDR > c.MaxDR {
		return fmt.Errorf("%w: channel %d data rate range %s-%s is inverted", ErrPkg, c.Index, c.MinDR, c.MaxDR)
	}
	return nil
}

// TTNEU868 is the channel plan used by The Things Network in Europe, which
// matches the defaults of most gateways. The SF9 class B ping slot channel at
// 869.525MHz is not part of it.
var TTNEU868 = []Channel{
	{Index: 0, Frequency: 868100000, MinDR: SF12, MaxDR: SF7, Band: BandCenti},
	{Index: 1, Frequency: 868300000, MinDR: SF12, MaxDR: SF7B, Band: BandCenti},
	{Index: 2, Frequency: 868500000, MinDR: SF12, MaxDR: SF7, Band: BandCenti},
	{Index: 3, Frequency: 867100000, MinDR: SF12, MaxDR: SF7, Band: BandCenti},
	{Index: 4, Frequency: 867300000, MinDR: SF12, MaxDR: SF7, Band: BandCenti},
	{Index: 5, Frequency: 867500000, MinDR: SF12, MaxDR: SF7, Band: BandCenti},
	{Index: 6, Frequency: 867700000, MinDR: SF12, MaxDR: SF7, Band: BandCenti},
	{Index: 7, Frequency: 867900000, MinDR: SF12, MaxDR: SF7, Band: BandCenti},
	{Index: 8, Frequency: 868800000, MinDR: FSK, MaxDR: FSK, Band: BandMilli},
}
