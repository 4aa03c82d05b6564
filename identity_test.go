package ttgo

import (
	"errors"
	"testing"
)

func TestEUI64UnmarshalText(t *testing.T) {
	want := EUI64{0x70, 0xB3, 0xD5, 0x7E, 0xD0, 0x00, 0x12, 0x34}
	for _, s := range []string{
		"70B3D57ED0001234",
		"70b3d57ed0001234",
		"70:B3:D5:7E:D0:00:12:34",
		"70-B3-D5-7E-D0-00-12-34",
		"0x70, 0xB3, 0xD5, 0x7E, 0xD0, 0x00, 0x12, 0x34",
	} {
		var e EUI64
		if err := e.UnmarshalText([]byte(s)); err != nil {
			t.Errorf("UnmarshalText(%q) failed: %v", s, err)
			continue
		}
		if e != want {
			t.Errorf("UnmarshalText(%q) = %s, want %s", s, e, want)
		}
	}

	var e EUI64
	if err := e.UnmarshalText([]byte("70B3D5")); !errors.Is(err, ErrPkg) {
		t.Errorf("Expected length error, got %v", err)
	}
	if err := e.UnmarshalText([]byte("ZZB3D57ED0001234")); !errors.Is(err, ErrPkg) {
		t.Errorf("Expected hex error, got %v", err)
	}
}

func TestEUI64LSB(t *testing.T) {
	e := EUI64{1, 2, 3, 4, 5, 6, 7, 8}
	if got := e.LSB(); got != [8]byte{8, 7, 6, 5, 4, 3, 2, 1} {
		t.Errorf("LSB() = %v", got)
	}
}

func TestIdentityValidate(t *testing.T) {
	if err := testIdentity.Validate(); err != nil {
		t.Errorf("Expected valid identity, got %v", err)
	}

	id := testIdentity
	id.AppKey = AES128Key{}
	if err := id.Validate(); !errors.Is(err, ErrPkg) {
		t.Errorf("Expected missing key error, got %v", err)
	}

	id = testIdentity
	id.DevEUI = EUI64{}
	if err := id.Validate(); !errors.Is(err, ErrPkg) {
		t.Errorf("Expected missing DevEUI error, got %v", err)
	}
}

func TestIdentityStringHidesKey(t *testing.T) {
	s := testIdentity.String()
	if s != "DevEUI=0004A30B001C0530 AppEUI=70B3D57ED0000000" {
		t.Errorf("Unexpected String() %q", s)
	}
}
