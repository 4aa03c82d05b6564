package ttgo

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// EUI64 is an 8-byte extended unique identifier, kept in MSB order as shown
// by network consoles.
type EUI64 [8]byte

// String returns the upper-case hex representation.
func (e EUI64) String() string {
	return strings.ToUpper(hex.EncodeToString(e[:]))
}

// LSB returns the identifier least significant byte first.
func (e EUI64) LSB() [8]byte {
	var out [8]byte
	for i := range e {
		out[len(e)-1-i] = e[i]
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (e EUI64) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EUI64) UnmarshalText(text []byte) error {
	return decodeHex(e[:], string(text), "EUI64")
}

// AES128Key is a 128-bit key. Keys are blocks of memory and copied as-is.
type AES128Key [16]byte

// String returns the upper-case hex representation.
func (k AES128Key) String() string {
	return strings.ToUpper(hex.EncodeToString(k[:]))
}

// MarshalText implements encoding.TextMarshaler.
func (k AES128Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AES128Key) UnmarshalText(text []byte) error {
	return decodeHex(k[:], string(text), "AES128Key")
}

// Identity holds the OTAA provisioning of the device. It is fixed at build or
// load time and never modified afterwards.
type Identity struct {
	DevEUI EUI64     `yaml:"deveui" json:"devEui"`
	AppEUI EUI64     `yaml:"appeui" json:"appEui"`
	AppKey AES128Key `yaml:"appkey" json:"-"`
}

// Validate rejects an identity that cannot possibly join.
func (id Identity) Validate() error {
	if id.AppKey == (AES128Key{}) {
		return fmt.Errorf("%w: AppKey is not set", ErrPkg)
	}
	if id.DevEUI == (EUI64{}) {
		return fmt.Errorf("%w: DevEUI is not set", ErrPkg)
	}
	return nil
}

func (id Identity) String() string {
	return fmt.Sprintf("DevEUI=%s AppEUI=%s", id.DevEUI, id.AppEUI)
}

// decodeHex parses s into dst, accepting separators commonly used when
// copying identifiers from a console ("70:B3:D5:..", "70 B3 D5 ..", "0x70, 0xB3, ..").
func decodeHex(dst []byte, s, what string) error {
	s = strings.NewReplacer("0x", "", "0X", "", ":", "", "-", "", " ", "", ",", "").Replace(s)
	if len(s) != 2*len(dst) {
		return fmt.Errorf("%w: %s needs %d hex digits, got %d", ErrPkg, what, 2*len(dst), len(s))
	}
	if _, err := hex.Decode(dst, []byte(s)); err != nil {
		return fmt.Errorf("%w: invalid %s: %w", ErrPkg, what, err)
	}
	return nil
}
