package ttgo

import (
	"time"

	"github.com/google/uuid"
)

// Record is the telemetry view of one engine event.
type Record struct {
	// BootID identifies the node instance; the counter restarts with it.
	BootID   uuid.UUID `json:"bootId"`
	Time     time.Time `json:"time"`
	Event    string    `json:"event"`
	Counter  uint32    `json:"counter"`
	RSSI     int       `json:"rssi"`
	Ack      bool      `json:"ack,omitempty"`
	Downlink string    `json:"downlink,omitempty"` // hex
}

// Sink receives telemetry records. Publish is called on the run loop and
// must not block for long.
type Sink interface {
	Publish(r Record) error
	Close() error
}
