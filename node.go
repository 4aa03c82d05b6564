package ttgo

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the position of the node in the uplink cycle.
type State uint8

const (
	// StateIdle waits for the send job.
	StateIdle State = iota
	// StateSending is submitting an uplink to the engine.
	StateSending
	// StateAwaitingCompletion waits for the engine to finish the exchange.
	StateAwaitingCompletion
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateAwaitingCompletion:
		return "awaiting completion"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status line labels.
const (
	labelStarting = "Starting...."
	labelSending  = "Sending uplink packet..."
	labelComplete = "Uplink complete"
)

// SignalStrength converts the raw engine RSSI into the displayed value.
func SignalStrength(raw int) int {
	return raw - 125 + 64
}

type Config struct {
	// TxInterval is the pause between the end of one exchange and the next
	// uplink. It is a floor: the engine may wait longer to respect duty cycle.
	// Defaults to 10 seconds if not provided.
	TxInterval time.Duration
	// Port is the LoRaWAN application port of the uplinks, 1 to 223.
	// Defaults to 1 if not provided.
	Port uint8
	// Confirmed requests an acknowledgment for every uplink.
	Confirmed bool
	// ClockErrorPercent is the expected error of the local clock.
	// Range: 0 to 100. Defaults to 1 if not provided.
	ClockErrorPercent uint8
	// Channels is the channel plan configured on the engine at start.
	// Defaults to TTNEU868 if not provided.
	Channels []Channel
	// PollInterval is how long Run sleeps between two loop passes.
	// Defaults to 5ms if not provided.
	PollInterval time.Duration
	// Logger receives the event log. Defaults to the global logger.
	Logger Logger
	// Sinks receive a telemetry record for every engine event. Optional.
	Sinks []Sink
}

// Status is a point-in-time copy of the node state.
type Status struct {
	BootID      uuid.UUID `json:"bootId"`
	State       State     `json:"state"`
	Counter     uint32    `json:"counter"`
	RSSI        int       `json:"rssi"`
	LastEvent   string    `json:"lastEvent,omitempty"`
	LastEventAt time.Time `json:"lastEventAt,omitempty"`
	NextSend    time.Time `json:"nextSend,omitempty"`
}

// Node periodically sends its transmit counter through a radio-MAC engine
// and reports engine events.
//
// All callbacks (engine events, the send job) run on the goroutine calling
// Tick or Run. The exported methods take a lock so that Snapshot and
// TriggerSend may be called from other goroutines.
type Node struct {
	config  Config
	engine  Engine
	display Display
	led     Pin
	clock   Clock
	log     Logger
	bootID  uuid.UUID

	mu          sync.Mutex
	sched       *Scheduler
	sendJob     Job
	state       State
	counter     uint32
	rssi        int
	lastEvent   Event
	lastEventAt time.Time
	closers     []io.Closer
}

// NewWithHardware creates a node driving the provided hardware.
// Nothing is sent to the engine before Start.
func NewWithHardware(c HardwareConfig) (*Node, error) {
	if c.TxInterval == 0 {
		c.TxInterval = 10 * time.Second
	}
	if c.TxInterval < 0 {
		return nil, fmt.Errorf("%w: TxInterval must be positive", ErrPkg)
	}
	if c.Port == 0 {
		c.Port = 1
	}
	if c.Port > 223 {
		return nil, fmt.Errorf("%w: Port must be between 1 and 223", ErrPkg)
	}
	if c.ClockErrorPercent == 0 {
		c.ClockErrorPercent = 1
	}
	if c.ClockErrorPercent > 100 {
		return nil, fmt.Errorf("%w: ClockErrorPercent must be between 0 and 100", ErrPkg)
	}
	if c.Channels == nil {
		c.Channels = TTNEU868
	}
	for _, ch := range c.Channels {
		if err := ch.Validate(); err != nil {
			return nil, err
		}
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	c.Logger = loggerOr(c.Logger)
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	if c.Engine == nil {
		return nil, fmt.Errorf("%w: engine not configured", ErrPkg)
	}

	return &Node{
		config:  c.Config,
		engine:  c.Engine,
		display: c.Display,
		led:     c.LED,
		clock:   c.Clock,
		log:     c.Config.Logger,
		bootID:  uuid.New(),
		sched:   NewScheduler(c.Clock),
	}, nil
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(Boot=%s, Port=%d, Confirmed=%v, TxInterval=%s, Channels=%d)",
		n.bootID,
		n.config.Port,
		n.config.Confirmed,
		n.config.TxInterval,
		len(n.config.Channels),
	)
}

// Start brings up the engine, configures the channel plan and sends the
// first uplink, which makes the engine join the network.
// This method is concurrent safe.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.log.Info("Starting...")
	n.setLED(Low)
	n.render(labelStarting)

	if err := n.engine.Init(); err != nil {
		return fmt.Errorf("%w: engine init: %w", ErrPkg, err)
	}
	if err := n.engine.Reset(); err != nil {
		return fmt.Errorf("%w: engine reset: %w", ErrPkg, err)
	}
	n.engine.SetClockError(MaxClockError * uint32(n.config.ClockErrorPercent) / 100)

	for _, ch := range n.config.Channels {
		if err := n.engine.SetupChannel(ch); err != nil {
			return fmt.Errorf("%w: setup %s: %w", ErrPkg, ch, err)
		}
	}

	n.send()
	return nil
}

// TriggerSend submits an uplink now unless an exchange is in flight, and
// reports whether the engine accepted it.
// This method is concurrent safe.
func (n *Node) TriggerSend() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.send()
}

// OnEvent handles one engine event.
// This method is concurrent safe.
func (n *Node) OnEvent(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onEvent(ev)
}

// Tick runs one pass of the cooperative loop: the engine processes pending
// radio work and delivers its events, then at most one due job runs.
// This method is concurrent safe.
func (n *Node) Tick(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	err := n.engine.Poll(ctx, n.onEvent)
	n.sched.RunOnce()
	return err
}

// Run calls Tick until ctx is done. Engine errors are logged and the loop
// continues, except when the engine reports that it is gone for good.
func (n *Node) Run(ctx context.Context) error {
	t := time.NewTimer(n.config.PollInterval)
	defer t.Stop()

	for {
		if err := n.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if errors.Is(err, ErrModemClosed) || errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: engine stopped: %w", ErrPkg, err)
			}
			n.log.Error("engine: " + err.Error())
		}

		t.Reset(n.config.PollInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Snapshot returns the current status.
// This method is concurrent safe.
func (n *Node) Snapshot() Status {
	n.mu.Lock()
	defer n.mu.Unlock()

	s := Status{
		BootID:      n.bootID,
		State:       n.state,
		Counter:     n.counter,
		RSSI:        n.rssi,
		LastEventAt: n.lastEventAt,
	}
	if n.lastEvent != 0 {
		s.LastEvent = n.lastEvent.String()
	}
	if at, ok := n.sendJob.Deadline(); ok {
		s.NextSend = at
	}
	return s
}

// AddCloser registers a resource released by Close, such as the bus a
// display sits on.
func (n *Node) AddCloser(c io.Closer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closers = append(n.closers, c)
}

// Close switches the activity LED off and releases the engine, the sinks and
// any registered resource.
// This method is concurrent safe.
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.setLED(Low)

	var errs []error
	if c, ok := n.engine.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	for _, s := range n.config.Sinks {
		errs = append(errs, s.Close())
	}
	for i := len(n.closers) - 1; i >= 0; i-- {
		errs = append(errs, n.closers[i].Close())
	}
	n.log.Info("Node closed.")
	return errors.Join(errs...)
}

// --- Send scheduler ---

// doSend is the callback of the send job. Call with lock held.
func (n *Node) doSend(_ *Job) {
	n.send()
}

// send submits the counter as an uplink. Call with lock held.
func (n *Node) send() bool {
	if n.engine.TxRxPending() {
		// The completion event of the exchange in flight re-arms the job.
		n.log.Info("transmission pending, not sending")
		return false
	}

	n.state = StateSending
	if err := n.engine.SetTxData(n.config.Port, n.payload(), n.config.Confirmed); err != nil {
		n.log.Error("failed to submit uplink: " + err.Error())
		n.state = StateIdle
		n.rearm()
		return false
	}
	n.state = StateAwaitingCompletion

	n.log.Info("Sending uplink packet...")
	n.setLED(High)
	n.render(labelSending)
	return true
}

// payload encodes the counter big endian.
func (n *Node) payload() []byte {
	return binary.BigEndian.AppendUint32(nil, n.counter)
}

// rearm schedules the next uplink. Call with lock held.
func (n *Node) rearm() {
	n.sched.SetTimedCallback(&n.sendJob, n.clock.Now().Add(n.config.TxInterval), n.doSend)
}

// --- Event reporter ---

// onEvent dispatches one engine event. Call with lock held.
func (n *Node) onEvent(ev Event) {
	n.lastEvent = ev
	n.lastEventAt = n.clock.Now()

	switch ev {
	case EventScanTimeout, EventBeaconFound, EventBeaconMissed, EventBeaconTracked,
		EventRFU1, EventJoinFailed, EventRejoinFailed, EventLostTSync, EventReset,
		EventLinkDead, EventLinkAlive:
		n.log.Info(ev.String())
	case EventJoining:
		n.log.Info("joining...")
	case EventJoined:
		n.log.Info("joined")
		// Link check validation is enabled during join but not supported by
		// the network.
		if err := n.engine.SetLinkCheckMode(false); err != nil {
			n.log.Warn("failed to disable link check: " + err.Error())
		}
	case EventRxComplete:
		// data received in a ping slot
		n.log.Info("rx complete")
	case EventTxComplete:
		n.completeExchange()
	default:
		n.log.Warn("unknown event " + strconv.Itoa(int(ev)))
	}

	n.publish(ev)
}

// completeExchange accounts for a finished uplink and arms the next one.
// Call with lock held.
func (n *Node) completeExchange() {
	n.log.Info("tx complete (includes waiting for RX windows)")
	n.counter++
	if n.engine.AckReceived() {
		n.log.Info("Received ack")
	}
	n.rssi = SignalStrength(n.engine.LastRSSI())
	n.log.Info("rssi: " + strconv.Itoa(n.rssi))

	if data := n.engine.Downlink(); len(data) > 0 {
		n.log.Info(fmt.Sprintf("Data Received: %d bytes %X", len(data), data))
	}

	n.setLED(Low)
	n.state = StateIdle
	n.rearm()
	n.render(labelComplete)
}

func (n *Node) publish(ev Event) {
	if len(n.config.Sinks) == 0 {
		return
	}
	r := Record{
		BootID:  n.bootID,
		Time:    n.lastEventAt,
		Event:   ev.Slug(),
		Counter: n.counter,
		RSSI:    n.rssi,
	}
	if ev == EventTxComplete {
		r.Ack = n.engine.AckReceived()
		r.Downlink = hex.EncodeToString(n.engine.Downlink())
	}
	for _, s := range n.config.Sinks {
		if err := s.Publish(r); err != nil {
			n.log.Warn("telemetry: " + err.Error())
		}
	}
}

// --- Peripherals ---

func (n *Node) setLED(l Level) {
	if n.led == nil {
		return
	}
	if err := n.led.Out(l); err != nil {
		n.log.Warn("LED: " + err.Error())
	}
}

func (n *Node) render(label string) {
	if n.display == nil {
		return
	}
	if err := Render(n.display, label, n.rssi, n.counter); err != nil {
		n.log.Warn("display: " + err.Error())
	}
}
