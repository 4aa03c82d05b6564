package ttgo

import "time"

// JobFunc is the callback of a scheduled job.
type JobFunc func(*Job)

// Job is a scheduled callback. The zero value is an unarmed job; a job lives
// in at most one slot of a Scheduler, so re-arming it replaces the previous
// deadline instead of adding a second entry.
type Job struct {
	deadline time.Time
	fn       JobFunc
	armed    bool
}

// Deadline returns when the job fires and whether it is armed.
func (j *Job) Deadline() (time.Time, bool) {
	return j.deadline, j.armed
}

// Scheduler is the timed-callback table of the cooperative run loop.
// It is not concurrency safe.
type Scheduler struct {
	clock Clock
	queue []*Job // sorted by deadline
}

// NewScheduler returns an empty scheduler reading time from c.
func NewScheduler(c Clock) *Scheduler {
	if c == nil {
		c = systemClock{}
	}
	return &Scheduler{clock: c}
}

// SetTimedCallback arms j to run fn at the given time. An already armed j is
// moved, never duplicated.
func (s *Scheduler) SetTimedCallback(j *Job, at time.Time, fn JobFunc) {
	s.remove(j)
	j.deadline = at
	j.fn = fn
	j.armed = true

	i := len(s.queue)
	for i > 0 && s.queue[i-1].deadline.After(at) {
		i--
	}
	s.queue = append(s.queue, nil)
	copy(s.queue[i+1:], s.queue[i:])
	s.queue[i] = j
}

// SetCallback arms j to run fn as soon as possible.
func (s *Scheduler) SetCallback(j *Job, fn JobFunc) {
	s.SetTimedCallback(j, s.clock.Now(), fn)
}

// RunOnce runs the earliest due job, if any, and reports whether one ran.
// The job is disarmed before its callback runs, so the callback may re-arm it.
func (s *Scheduler) RunOnce() bool {
	if len(s.queue) == 0 || s.queue[0].deadline.After(s.clock.Now()) {
		return false
	}
	j := s.queue[0]
	s.queue = s.queue[1:]
	j.armed = false
	j.fn(j)
	return true
}

// Armed reports whether j is waiting in the table.
func (s *Scheduler) Armed(j *Job) bool {
	return j.armed
}

// Len returns the number of armed jobs.
func (s *Scheduler) Len() int { return len(s.queue) }

// Next returns the earliest deadline.
func (s *Scheduler) Next() (time.Time, bool) {
	if len(s.queue) == 0 {
		return time.Time{}, false
	}
	return s.queue[0].deadline, true
}

func (s *Scheduler) remove(j *Job) {
	if !j.armed {
		return
	}
	for i, q := range s.queue {
		if q == j {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	j.armed = false
}
