package ttgo

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrModem       = errors.New("modem error")
	ErrModemClosed = errors.New("modem closed")
	ErrTimeout     = errors.New("timeout waiting for modem")
)

type ModemConfig struct {
	// Identity is written to the modem on Reset. Required.
	Identity Identity
	// CommandTimeout bounds the wait for the reply to a command.
	// Defaults to 2 seconds if not provided.
	CommandTimeout time.Duration
	// JoinRetryDelay is the pause after a rejected join.
	// Defaults to 10 seconds if not provided.
	JoinRetryDelay time.Duration
	// BusyRetryDelay is the pause after the modem refused an uplink because
	// no channel was free or it was busy. Defaults to 1 second if not provided.
	BusyRetryDelay time.Duration
	// Clock defaults to the system clock.
	Clock Clock
	// Logger defaults to the global logger.
	Logger Logger
}

// Modem is an Engine backed by a Microchip RN2483 LoRaWAN modem attached to
// a serial port. The LoRaWAN MAC runs inside the modem; Modem translates the
// engine calls to its text commands and its asynchronous replies to events.
type Modem struct {
	port   io.ReadWriter
	config ModemConfig
	clock  Clock
	log    Logger

	lines   chan string
	readErr error // valid once lines is closed
	backlog []string
	queued  []Event

	joined    bool
	joining   bool
	pending   *Uplink
	inFlight  bool
	retryAt   time.Time
	rssi      int
	ack       bool
	downlink  []byte
	linkCheck bool
}

// NewModem starts reading replies from port. Call Init and Reset before
// sending uplinks.
func NewModem(port io.ReadWriter, c ModemConfig) (*Modem, error) {
	if err := c.Identity.Validate(); err != nil {
		return nil, err
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 2 * time.Second
	}
	if c.JoinRetryDelay == 0 {
		c.JoinRetryDelay = 10 * time.Second
	}
	if c.BusyRetryDelay == 0 {
		c.BusyRetryDelay = time.Second
	}
	if c.Clock == nil {
		c.Clock = systemClock{}
	}
	c.Logger = loggerOr(c.Logger)

	m := &Modem{
		port:   port,
		config: c,
		clock:  c.Clock,
		log:    c.Logger,
		lines:  make(chan string, 16),
	}
	go m.read()
	return m, nil
}

func (m *Modem) String() string {
	return fmt.Sprintf("Modem(%s, Joined=%v, Pending=%v)", m.config.Identity, m.joined, m.pending != nil)
}

// read forwards reply lines until the port fails.
func (m *Modem) read() {
	r := bufio.NewReader(m.port)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			m.readErr = err
			close(m.lines)
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		m.lines <- line
	}
}

// command writes one command and returns its reply. Asynchronous replies
// arriving meanwhile are kept for Poll.
func (m *Modem) command(format string, args ...any) (string, error) {
	cmd := fmt.Sprintf(format, args...)
	m.log.Debug("modem TX: " + cmd)
	if _, err := io.WriteString(m.port, cmd+"\r\n"); err != nil {
		return "", fmt.Errorf("%w: write %q: %w", ErrModem, cmd, err)
	}

	t := time.NewTimer(m.config.CommandTimeout)
	defer t.Stop()
	for {
		select {
		case line, ok := <-m.lines:
			if !ok {
				return "", m.closedErr()
			}
			m.log.Debug("modem RX: " + line)
			if isAsyncReply(line) {
				m.backlog = append(m.backlog, line)
				continue
			}
			return line, nil
		case <-t.C:
			return "", fmt.Errorf("%w: %q", ErrTimeout, cmd)
		}
	}
}

// expectOK runs a command that replies "ok" on success.
func (m *Modem) expectOK(format string, args ...any) error {
	cmd := fmt.Sprintf(format, args...)
	resp, err := m.command("%s", cmd)
	if err != nil {
		return err
	}
	if resp != "ok" {
		// keys stay out of errors
		f := strings.Fields(cmd)
		if len(f) > 3 {
			f = f[:3]
		}
		return fmt.Errorf("%w: %s: %s", ErrModem, strings.Join(f, " "), resp)
	}
	return nil
}

func (m *Modem) closedErr() error {
	if m.readErr != nil && !errors.Is(m.readErr, io.EOF) {
		return fmt.Errorf("%w: %w", ErrModemClosed, m.readErr)
	}
	return ErrModemClosed
}

// isAsyncReply reports whether line is a second reply, sent by the modem
// after the exchange started by an earlier command ended.
func isAsyncReply(line string) bool {
	switch {
	case line == "accepted", line == "denied", line == "mac_tx_ok", line == "mac_err", line == "radio_err":
		return true
	case strings.HasPrefix(line, "mac_rx "):
		return true
	}
	return false
}

func (m *Modem) Init() error {
	ver, err := m.command("sys get ver")
	if err != nil {
		return err
	}
	m.log.Info("modem: " + ver)
	return nil
}

func (m *Modem) Reset() error {
	if err := m.expectOK("mac reset 868"); err != nil {
		return err
	}
	m.joined = false
	m.joining = false
	m.pending = nil
	m.inFlight = false
	m.retryAt = time.Time{}

	id := m.config.Identity
	if err := m.expectOK("mac set deveui %s", id.DevEUI); err != nil {
		return err
	}
	if err := m.expectOK("mac set appeui %s", id.AppEUI); err != nil {
		return err
	}
	return m.expectOK("mac set appkey %s", id.AppKey)
}

// SetClockError is not supported by the modem, which derives its receive
// windows from its own crystal.
func (m *Modem) SetClockError(e uint32) {
	m.log.Debug(fmt.Sprintf("modem: clock error %d ignored", e))
}

func (m *Modem) SetupChannel(ch Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	// channels 0 to 2 are fixed by the region
	if ch.Index >= 3 {
		if err := m.expectOK("mac set ch freq %d %d", ch.Index, ch.Frequency); err != nil {
			return err
		}
	}
	if err := m.expectOK("mac set ch drrange %d %d %d", ch.Index, ch.MinDR.DR(), ch.MaxDR.DR()); err != nil {
		return err
	}
	if err := m.expectOK("mac set ch dcycle %d %d", ch.Index, ch.Band.DutyCycle()-1); err != nil {
		return err
	}
	return m.expectOK("mac set ch status %d on", ch.Index)
}

func (m *Modem) SetTxData(port uint8, payload []byte, confirmed bool) error {
	if m.pending != nil {
		return ErrBusy
	}
	m.pending = &Uplink{
		Port:      port,
		Payload:   append([]byte(nil), payload...),
		Confirmed: confirmed,
	}
	if err := m.submit(); err != nil {
		m.pending = nil
		return err
	}
	return nil
}

// submit joins or transmits the pending uplink.
func (m *Modem) submit() error {
	if !m.joined {
		if m.joining {
			return nil
		}
		resp, err := m.command("mac join otaa")
		if err != nil {
			return err
		}
		switch resp {
		case "ok":
			m.joining = true
			m.queued = append(m.queued, EventJoining)
			return nil
		case "busy", "no_free_ch":
			m.retryAt = m.clock.Now().Add(m.config.BusyRetryDelay)
			return nil
		default:
			return fmt.Errorf("%w: mac join: %s", ErrModem, resp)
		}
	}

	kind := "uncnf"
	if m.pending.Confirmed {
		kind = "cnf"
	}
	resp, err := m.command("mac tx %s %d %X", kind, m.pending.Port, m.pending.Payload)
	if err != nil {
		return err
	}
	switch resp {
	case "ok":
		m.inFlight = true
		m.pending.At = m.clock.Now()
		return nil
	case "busy", "no_free_ch":
		m.retryAt = m.clock.Now().Add(m.config.BusyRetryDelay)
		return nil
	case "not_joined", "frame_counter_err_rejoin_needed":
		m.joined = false
		return m.submit()
	default:
		return fmt.Errorf("%w: mac tx: %s", ErrModem, resp)
	}
}

func (m *Modem) TxRxPending() bool { return m.pending != nil }

func (m *Modem) SetLinkCheckMode(enabled bool) error {
	period := 0
	if enabled {
		period = 120
	}
	if err := m.expectOK("mac set linkchk %d", period); err != nil {
		return err
	}
	m.linkCheck = enabled
	return nil
}

// LastRSSI returns the signal strength of the last exchange in the raw
// scale used by the node, where 64 means -61dBm.
func (m *Modem) LastRSSI() int { return m.rssi }

func (m *Modem) Downlink() []byte { return m.downlink }

func (m *Modem) AckReceived() bool { return m.ack }

func (m *Modem) Poll(ctx context.Context, emit func(Event)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	queued := m.queued
	m.queued = nil
	for _, ev := range queued {
		emit(ev)
	}

	for len(m.backlog) > 0 {
		line := m.backlog[0]
		m.backlog = m.backlog[1:]
		m.handle(line, emit)
	}

	for done := false; !done; {
		select {
		case line, ok := <-m.lines:
			if !ok {
				return m.closedErr()
			}
			m.log.Debug("modem RX: " + line)
			m.handle(line, emit)
			// replies read by commands issued from handle
			for len(m.backlog) > 0 {
				line := m.backlog[0]
				m.backlog = m.backlog[1:]
				m.handle(line, emit)
			}
		default:
			done = true
		}
	}

	if !m.retryAt.IsZero() && !m.clock.Now().Before(m.retryAt) {
		m.retryAt = time.Time{}
		if m.pending != nil {
			m.resubmit()
		}
	}
	return nil
}

// resubmit retries the pending uplink after a refusal.
func (m *Modem) resubmit() {
	if err := m.submit(); err != nil {
		m.log.Warn("modem: " + err.Error())
		m.retryAt = m.clock.Now().Add(m.config.JoinRetryDelay)
	}
}

func (m *Modem) handle(line string, emit func(Event)) {
	switch {
	case line == "accepted":
		m.joining = false
		m.joined = true
		emit(EventJoined)
		if m.pending != nil {
			m.resubmit()
		}
	case line == "denied":
		m.joining = false
		m.retryAt = m.clock.Now().Add(m.config.JoinRetryDelay)
		emit(EventJoinFailed)
	case line == "mac_tx_ok":
		m.complete(true, nil, emit)
	case strings.HasPrefix(line, "mac_rx "):
		m.complete(true, parseDownlink(line, m.log), emit)
	case line == "mac_err", line == "radio_err", line == "invalid_data_len":
		m.log.Warn("modem: uplink failed: " + line)
		m.complete(false, nil, emit)
	default:
		m.log.Debug("modem: unexpected reply " + line)
	}
}

func (m *Modem) complete(ok bool, data []byte, emit func(Event)) {
	if !m.inFlight || m.pending == nil {
		m.log.Debug("modem: completion without uplink")
		return
	}
	m.ack = ok && m.pending.Confirmed
	m.downlink = data
	m.pending = nil
	m.inFlight = false
	if ok {
		m.readRSSI()
	}
	emit(EventTxComplete)
}

// readRSSI asks the radio for the strength of the last received packet.
func (m *Modem) readRSSI() {
	resp, err := m.command("radio get rssi")
	if err != nil {
		m.log.Debug("modem: " + err.Error())
		return
	}
	var dbm int
	if _, err := fmt.Sscan(resp, &dbm); err != nil {
		m.log.Debug("modem: rssi " + resp)
		return
	}
	m.rssi = dbm + 61
}

// parseDownlink decodes "mac_rx <port> <hex>".
func parseDownlink(line string, log Logger) []byte {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return nil
	}
	data, err := hex.DecodeString(fields[2])
	if err != nil {
		log.Warn("modem: bad downlink " + fields[2])
		return nil
	}
	return data
}

// Close closes the serial port when it supports it.
func (m *Modem) Close() error {
	if c, ok := m.port.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
