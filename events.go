package ttgo

// Event is a protocol lifecycle notification delivered by the engine.
type Event uint8

const (
	// EventScanTimeout reports that a beacon scan ended without result.
	EventScanTimeout Event = iota + 1
	// EventBeaconFound reports the first beacon after a scan.
	EventBeaconFound
	// EventBeaconMissed reports a missed expected beacon.
	EventBeaconMissed
	// EventBeaconTracked reports a received expected beacon.
	EventBeaconTracked
	// EventJoining reports that a join procedure started.
	EventJoining
	// EventJoined reports an established session.
	EventJoined
	// EventRFU1 is reserved by the engine.
	EventRFU1
	// EventJoinFailed reports a failed join attempt.
	EventJoinFailed
	// EventRejoinFailed reports a failed rejoin attempt.
	EventRejoinFailed
	// EventTxComplete reports the end of an uplink exchange, RX windows included.
	EventTxComplete
	// EventLostTSync reports lost beacon time synchronization.
	EventLostTSync
	// EventReset reports a MAC reset.
	EventReset
	// EventRxComplete reports data received in a ping slot.
	EventRxComplete
	// EventLinkDead reports that the network stopped answering.
	EventLinkDead
	// EventLinkAlive reports that the link came back.
	EventLinkAlive
)

// Events returns every known event kind.
func Events() []Event {
	return []Event{
		EventScanTimeout, EventBeaconFound, EventBeaconMissed, EventBeaconTracked,
		EventJoining, EventJoined, EventRFU1, EventJoinFailed, EventRejoinFailed,
		EventTxComplete, EventLostTSync, EventReset, EventRxComplete,
		EventLinkDead, EventLinkAlive,
	}
}

func (e Event) String() string {
	switch e {
	case EventScanTimeout:
		return "scan timeout"
	case EventBeaconFound:
		return "beacon found"
	case EventBeaconMissed:
		return "beacon missed"
	case EventBeaconTracked:
		return "beacon tracked"
	case EventJoining:
		return "joining"
	case EventJoined:
		return "joined"
	case EventRFU1:
		return "rfu1"
	case EventJoinFailed:
		return "join failed"
	case EventRejoinFailed:
		return "rejoin failed"
	case EventTxComplete:
		return "tx complete"
	case EventLostTSync:
		return "lost tsync"
	case EventReset:
		return "reset"
	case EventRxComplete:
		return "rx complete"
	case EventLinkDead:
		return "link dead"
	case EventLinkAlive:
		return "link alive"
	default:
		return "unknown"
	}
}

// Slug returns the event name usable in MQTT topics and NATS subjects.
func (e Event) Slug() string {
	s := []byte(e.String())
	for i, c := range s {
		if c == ' ' {
			s[i] = '_'
		}
	}
	return string(s)
}
