// Package updatable schedules fixed-cadence updates driven by repeated Tick
// calls, either every N ticks or every fixed wall-clock interval.
package updatable

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Interval bounds accepted by SetInterval (both exclusive).
const (
	MinInterval = time.Millisecond
	MaxInterval = time.Second
)

var ErrInvalidSchedule = errors.New("updatable: invalid schedule")

type Mode int

const (
	ModeTickCount Mode = iota
	ModeInterval
)

func (m Mode) String() string {
	if m == ModeInterval {
		return "interval"
	}
	return "tick-count"
}

// UpdateFunc performs one update. A non-nil error stops the current catch-up
// run.
type UpdateFunc func() error

// Updatable fires an UpdateFunc on a fixed cadence. Its methods are safe for
// concurrent use; the UpdateFunc itself runs outside the internal lock.
type Updatable struct {
	mu     sync.Mutex
	mode   Mode
	update UpdateFunc
	clock  Clock

	ticksPerUpdate int
	ticks          int

	interval    time.Duration
	lastUpdated time.Time
	started     bool
	maxCatchUp  int

	paused bool
}

type Option func(*Updatable)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(u *Updatable) { u.clock = c }
}

// WithMaxCatchUp bounds the updates fired by one Tick. A backlog larger than
// k is dropped.
func WithMaxCatchUp(k int) Option {
	return func(u *Updatable) { u.maxCatchUp = k }
}

// NewTickCount fires fn once every n calls to Tick.
func NewTickCount(n int, fn UpdateFunc) (*Updatable, error) {
	if n < 1 || fn == nil {
		return nil, ErrInvalidSchedule
	}
	return &Updatable{
		mode:           ModeTickCount,
		update:         fn,
		ticksPerUpdate: n,
		clock:          SystemClock{},
	}, nil
}

// NewInterval fires fn once per elapsed interval d.
func NewInterval(d time.Duration, fn UpdateFunc, opts ...Option) (*Updatable, error) {
	if d <= 0 || fn == nil {
		return nil, ErrInvalidSchedule
	}
	u := &Updatable{
		mode:     ModeInterval,
		update:   fn,
		interval: d,
		clock:    SystemClock{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

func (u *Updatable) Mode() Mode { return u.mode }

// Tick advances the schedule and runs every update that has come due. It
// returns the number of updates that ran. A paused Updatable does nothing.
//
// In interval mode the baseline moves by exactly one interval per update, so
// irregular calls never accumulate drift.
func (u *Updatable) Tick() (int, error) {
	due := u.due()
	for i := 0; i < due; i++ {
		if err := u.update(); err != nil {
			return i, err
		}
	}
	return due, nil
}

func (u *Updatable) due() int {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.paused {
		return 0
	}

	if u.mode == ModeTickCount {
		u.ticks++
		if u.ticks >= u.ticksPerUpdate {
			u.ticks = 0
			return 1
		}
		return 0
	}

	now := u.clock.Now()
	if !u.started {
		u.started = true
		u.lastUpdated = now
	}

	due := 0
	for now.Sub(u.lastUpdated) >= u.interval {
		u.lastUpdated = u.lastUpdated.Add(u.interval)
		due++
	}
	if u.maxCatchUp > 0 && due > u.maxCatchUp {
		due = u.maxCatchUp
		u.lastUpdated = now
	}
	return due
}

// SetPaused freezes or resumes the schedule. Resuming an interval schedule
// restarts its baseline at the current time, so no backlog is replayed.
func (u *Updatable) SetPaused(paused bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !paused && u.mode == ModeInterval {
		u.lastUpdated = u.clock.Now()
		u.started = true
	}
	u.paused = paused
}

func (u *Updatable) Paused() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.paused
}

func (u *Updatable) Interval() time.Duration {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.interval
}

// SetInterval changes the update interval. Values outside
// (MinInterval, MaxInterval) are ignored; the return value reports whether
// the interval was applied.
func (u *Updatable) SetInterval(d time.Duration) bool {
	if d <= MinInterval || d >= MaxInterval {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.interval = d
	return true
}

// SetMaxCatchUp changes the catch-up bound; zero or less removes it.
func (u *Updatable) SetMaxCatchUp(k int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.maxCatchUp = k
}

func (u *Updatable) MaxCatchUp() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.maxCatchUp
}

func (u *Updatable) TicksPerUpdate() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ticksPerUpdate
}

// SetTicksPerUpdate changes the tick count; values below one are ignored.
func (u *Updatable) SetTicksPerUpdate(n int) bool {
	if n < 1 {
		return false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ticksPerUpdate = n
	return true
}

// Run calls Tick until ctx is done, sleeping poll between calls. Update
// errors are passed to onErr when it is non-nil and do not stop the loop.
func (u *Updatable) Run(ctx context.Context, poll time.Duration, onErr func(error)) error {
	timer := time.NewTimer(poll)
	defer timer.Stop()

	for {
		if _, err := u.Tick(); err != nil && onErr != nil {
			onErr(err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			timer.Reset(poll)
		}
	}
}
