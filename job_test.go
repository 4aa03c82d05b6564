package ttgo

import (
	"testing"
	"time"
)

func TestSchedulerRunsInDeadlineOrder(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock)

	var order []string
	var a, b, c Job
	s.SetTimedCallback(&a, clock.Now().Add(3*time.Second), func(*Job) { order = append(order, "a") })
	s.SetTimedCallback(&b, clock.Now().Add(1*time.Second), func(*Job) { order = append(order, "b") })
	s.SetTimedCallback(&c, clock.Now().Add(2*time.Second), func(*Job) { order = append(order, "c") })

	if s.RunOnce() {
		t.Fatal("Expected no job due yet")
	}

	clock.Advance(5 * time.Second)
	for s.RunOnce() {
	}
	if got := order; len(got) != 3 || got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Errorf("Expected order [b c a], got %v", got)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty table, got %d", s.Len())
	}
}

func TestSchedulerRunOnceRunsOneJob(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock)

	runs := 0
	var a, b Job
	s.SetCallback(&a, func(*Job) { runs++ })
	s.SetCallback(&b, func(*Job) { runs++ })

	s.RunOnce()
	if runs != 1 {
		t.Errorf("Expected one job per pass, got %d", runs)
	}
	if s.Len() != 1 {
		t.Errorf("Expected one job left, got %d", s.Len())
	}
}

func TestSchedulerRearmMovesJob(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock)

	var j Job
	fn := func(*Job) {}
	s.SetTimedCallback(&j, clock.Now().Add(time.Second), fn)
	s.SetTimedCallback(&j, clock.Now().Add(time.Minute), fn)

	if s.Len() != 1 {
		t.Fatalf("Expected a single entry, got %d", s.Len())
	}
	at, ok := j.Deadline()
	if !ok || !at.Equal(clock.Now().Add(time.Minute)) {
		t.Errorf("Expected deadline in one minute, got %s (armed %v)", at, ok)
	}
	if next, _ := s.Next(); !next.Equal(at) {
		t.Errorf("Expected Next %s, got %s", at, next)
	}
}

func TestSchedulerCallbackMayRearm(t *testing.T) {
	clock := newFakeClock()
	s := NewScheduler(clock)

	var j Job
	runs := 0
	var fn JobFunc
	fn = func(j *Job) {
		runs++
		if s.Armed(j) {
			t.Error("Expected job disarmed while its callback runs")
		}
		s.SetTimedCallback(j, clock.Now().Add(time.Second), fn)
	}
	s.SetCallback(&j, fn)

	for i := 0; i < 3; i++ {
		s.RunOnce()
		clock.Advance(time.Second)
	}
	if runs != 3 {
		t.Errorf("Expected 3 runs, got %d", runs)
	}
	if !s.Armed(&j) || s.Len() != 1 {
		t.Errorf("Expected the job armed once, got armed=%v len=%d", s.Armed(&j), s.Len())
	}
}
