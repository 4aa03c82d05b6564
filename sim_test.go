package ttgo

import (
	"context"
	"errors"
	"testing"
	"time"
)

type eventLog []Event

func (l *eventLog) emit(ev Event) { *l = append(*l, ev) }

func TestSimEngineJoinRetries(t *testing.T) {
	clock := newFakeClock()
	sim := NewSimEngine(SimConfig{
		Clock:          clock,
		JoinDelay:      time.Second,
		JoinFailures:   2,
		JoinRetryDelay: 3 * time.Second,
		Logger:         &nopLogger{},
	})
	sim.Init()

	if err := sim.SetTxData(1, []byte{1}, false); err != nil {
		t.Fatalf("SetTxData failed: %v", err)
	}
	if !sim.TxRxPending() {
		t.Error("Expected the held uplink to be pending")
	}

	var events eventLog
	for i := 0; i < 10; i++ {
		sim.Poll(context.Background(), events.emit)
		clock.Advance(time.Second)
	}

	want := []Event{EventJoining, EventJoinFailed, EventJoinFailed, EventJoined, EventTxComplete}
	if len(events) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], events[i])
		}
	}
	if !sim.Joined() || sim.TxRxPending() {
		t.Errorf("Expected joined and idle engine: %s", sim)
	}
}

func TestSimEngineBusy(t *testing.T) {
	sim := NewSimEngine(SimConfig{Clock: newFakeClock(), Logger: &nopLogger{}})

	if err := sim.SetTxData(1, nil, false); err == nil {
		t.Error("Expected error before Init")
	}
	sim.Init()
	sim.SetTxData(1, []byte{1}, false)
	if err := sim.SetTxData(1, []byte{2}, false); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
}

func TestSimEngineMinTxGap(t *testing.T) {
	clock := newFakeClock()
	sim := NewSimEngine(SimConfig{
		Clock:     clock,
		JoinDelay: time.Second,
		Airtime:   time.Second,
		MinTxGap:  time.Minute,
		Logger:    &nopLogger{},
	})
	sim.Init()

	var events eventLog
	sim.SetTxData(1, []byte{1}, false)
	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		sim.Poll(context.Background(), events.emit)
	}
	sim.SetTxData(1, []byte{2}, false)

	if len(sim.Uplinks) != 2 {
		t.Fatalf("Expected 2 uplinks, got %d", len(sim.Uplinks))
	}
	if gap := sim.Uplinks[1].At.Sub(sim.Uplinks[0].At); gap < time.Minute {
		t.Errorf("Expected uplinks at least a minute apart, got %s", gap)
	}
}

func TestSimEngineRecordsSetup(t *testing.T) {
	sim := NewSimEngine(SimConfig{Logger: &nopLogger{}})
	sim.Init()
	sim.Reset()
	sim.SetClockError(655)
	for _, ch := range TTNEU868 {
		if err := sim.SetupChannel(ch); err != nil {
			t.Fatalf("SetupChannel(%s) failed: %v", ch, err)
		}
	}
	sim.SetupChannel(Channel{Index: 0, Frequency: 868100000, MinDR: SF10, MaxDR: SF7})

	if sim.ClockError() != 655 {
		t.Errorf("Expected clock error 655, got %d", sim.ClockError())
	}
	if len(sim.Channels) != len(TTNEU868) {
		t.Errorf("Expected reconfigured channel to replace the old one, got %d channels", len(sim.Channels))
	}
	if sim.Channels[0].MinDR != SF10 {
		t.Errorf("Expected channel 0 updated, got %s", sim.Channels[0])
	}
	if err := sim.Poll(canceledContext(), func(Event) {}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected canceled poll, got %v", err)
	}
}

func canceledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
