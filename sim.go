package ttgo

import (
	"context"
	"fmt"
	"time"
)

// Uplink is a frame put on air by the SimEngine.
type Uplink struct {
	Port      uint8
	Payload   []byte
	Confirmed bool
	At        time.Time
}

type SimConfig struct {
	// Clock drives every simulated delay. Defaults to the system clock.
	Clock Clock
	// JoinDelay is the time from the first uplink request to the join accept.
	// Defaults to 5 seconds if not provided.
	JoinDelay time.Duration
	// JoinFailures is the number of join attempts rejected before one succeeds.
	JoinFailures int
	// JoinRetryDelay is the pause after a rejected join attempt.
	// Defaults to JoinDelay if not provided.
	JoinRetryDelay time.Duration
	// Airtime is the duration of an exchange, RX windows included.
	// Defaults to 2 seconds if not provided.
	Airtime time.Duration
	// RSSI is the raw signal strength reported after every exchange.
	// Defaults to 100 if not provided.
	RSSI int
	// Ack acknowledges confirmed uplinks.
	Ack bool
	// Downlinks are delivered one per exchange, in order. A nil entry means
	// no downlink for that exchange.
	Downlinks [][]byte
	// MinTxGap delays an uplink until this long after the previous exchange
	// ended, the way duty-cycle limits do.
	MinTxGap time.Duration
	// Logger defaults to the global logger.
	Logger Logger
}

// SimEngine is an in-memory Engine. It joins and completes exchanges after
// fixed delays and emits the corresponding events from Poll. It is used on
// hosts without a radio and in tests.
type SimEngine struct {
	config SimConfig
	clock  Clock
	log    Logger

	initialized bool
	joined      bool
	joining     bool
	joinAt      time.Time
	failures    int
	queued      []Event

	pending   *Uplink
	txDoneAt  time.Time
	lastTxEnd time.Time

	rssi       int
	ack        bool
	downlink   []byte
	downlinks  [][]byte
	clockError uint32
	linkCheck  bool

	// Uplinks lists every frame put on air.
	Uplinks []Uplink
	// Channels lists the configured channel plan.
	Channels []Channel
	// LinkCheckCalls counts SetLinkCheckMode calls.
	LinkCheckCalls int
}

// NewSimEngine creates a simulated engine. The engine needs Init before use.
func NewSimEngine(c SimConfig) *SimEngine {
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.JoinDelay == 0 {
		c.JoinDelay = 5 * time.Second
	}
	if c.JoinRetryDelay == 0 {
		c.JoinRetryDelay = c.JoinDelay
	}
	if c.Airtime == 0 {
		c.Airtime = 2 * time.Second
	}
	if c.RSSI == 0 {
		c.RSSI = 100
	}
	c.Logger = loggerOr(c.Logger)
	return &SimEngine{
		config:    c,
		clock:     c.Clock,
		log:       c.Logger,
		failures:  c.JoinFailures,
		downlinks: c.Downlinks,
	}
}

func (s *SimEngine) String() string {
	return fmt.Sprintf("SimEngine(Joined=%v, Pending=%v, Uplinks=%d)", s.joined, s.pending != nil, len(s.Uplinks))
}

func (s *SimEngine) Init() error {
	s.initialized = true
	s.log.Debug("sim: init")
	return nil
}

func (s *SimEngine) Reset() error {
	if !s.initialized {
		return fmt.Errorf("%w: engine not initialized", ErrPkg)
	}
	s.joined = false
	s.joining = false
	s.pending = nil
	s.queued = nil
	s.ack = false
	s.downlink = nil
	s.Channels = nil
	s.failures = s.config.JoinFailures
	s.log.Debug("sim: reset")
	return nil
}

func (s *SimEngine) SetClockError(e uint32) { s.clockError = e }

// ClockError returns the value set by SetClockError.
func (s *SimEngine) ClockError() uint32 { return s.clockError }

func (s *SimEngine) SetupChannel(ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	for i, c := range s.Channels {
		if c.Index == ch.Index {
			s.Channels[i] = ch
			return nil
		}
	}
	s.Channels = append(s.Channels, ch)
	return nil
}

func (s *SimEngine) SetTxData(port uint8, payload []byte, confirmed bool) error {
	if !s.initialized {
		return fmt.Errorf("%w: engine not initialized", ErrPkg)
	}
	if s.pending != nil {
		return ErrBusy
	}
	s.pending = &Uplink{
		Port:      port,
		Payload:   append([]byte(nil), payload...),
		Confirmed: confirmed,
	}
	if s.joined {
		s.startTx()
		return nil
	}
	if !s.joining {
		s.joining = true
		s.joinAt = s.clock.Now().Add(s.config.JoinDelay)
		s.queued = append(s.queued, EventJoining)
	}
	return nil
}

func (s *SimEngine) TxRxPending() bool { return s.pending != nil }

func (s *SimEngine) SetLinkCheckMode(enabled bool) error {
	s.LinkCheckCalls++
	s.linkCheck = enabled
	return nil
}

// LinkCheck reports whether link check validation is enabled.
func (s *SimEngine) LinkCheck() bool { return s.linkCheck }

// Joined reports whether a session exists.
func (s *SimEngine) Joined() bool { return s.joined }

func (s *SimEngine) LastRSSI() int { return s.rssi }

func (s *SimEngine) Downlink() []byte { return s.downlink }

func (s *SimEngine) AckReceived() bool { return s.ack }

func (s *SimEngine) Poll(ctx context.Context, emit func(Event)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := s.clock.Now()

	queued := s.queued
	s.queued = nil
	for _, ev := range queued {
		emit(ev)
	}

	if s.joining && !now.Before(s.joinAt) {
		if s.failures > 0 {
			s.failures--
			s.joinAt = now.Add(s.config.JoinRetryDelay)
			emit(EventJoinFailed)
		} else {
			s.joining = false
			s.joined = true
			// link check validation is on after a join
			s.linkCheck = true
			emit(EventJoined)
			if s.pending != nil {
				s.startTx()
			}
		}
	}

	if s.joined && s.pending != nil && !s.txDoneAt.IsZero() && !now.Before(s.txDoneAt) {
		s.finishTx()
		emit(EventTxComplete)
	}
	return nil
}

// startTx puts the pending uplink on air.
func (s *SimEngine) startTx() {
	at := s.clock.Now()
	if !s.lastTxEnd.IsZero() {
		if earliest := s.lastTxEnd.Add(s.config.MinTxGap); at.Before(earliest) {
			at = earliest
		}
	}
	s.pending.At = at
	s.txDoneAt = at.Add(s.config.Airtime)
	s.Uplinks = append(s.Uplinks, *s.pending)
	s.log.Debug(fmt.Sprintf("sim: uplink port %d, %d bytes", s.pending.Port, len(s.pending.Payload)))
}

func (s *SimEngine) finishTx() {
	s.ack = s.pending.Confirmed && s.config.Ack
	s.rssi = s.config.RSSI
	s.downlink = nil
	if len(s.downlinks) > 0 {
		s.downlink = s.downlinks[0]
		s.downlinks = s.downlinks[1:]
	}
	s.lastTxEnd = s.txDoneAt
	s.txDoneAt = time.Time{}
	s.pending = nil
}
