package scene

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/updatable"
)

// Scene holds every pendulum of a simulation and steps them together.
type Scene struct {
	mu  sync.RWMutex
	log *log.Logger

	clock      updatable.Clock
	maxCatchUp int

	entries  map[int]*entry
	pending  []mutation
	friction float64
	running  bool
	paused   bool

	selected     int
	hasSelection bool
}

type entry struct {
	id       int
	chain    *pendulum.Chain
	sched    *updatable.Updatable
	friction float64
}

type Option func(*Scene)

func WithLogger(l *log.Logger) Option {
	return func(s *Scene) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock sets the clock shared by every chain scheduler.
func WithClock(c updatable.Clock) Option {
	return func(s *Scene) { s.clock = c }
}

// CatchUpWindow is the amount of simulated time a chain may replay in one
// Tick unless WithMaxCatchUp sets a fixed bound. Older backlog is dropped.
const CatchUpWindow = time.Second

// WithMaxCatchUp bounds the steps one chain may take per Tick to k,
// replacing the CatchUpWindow default.
func WithMaxCatchUp(k int) Option {
	return func(s *Scene) { s.maxCatchUp = k }
}

func New(opts ...Option) *Scene {
	s := &Scene{
		log:     log.New(io.Discard),
		clock:   updatable.SystemClock{},
		entries: make(map[int]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scene) newEntry(id int, x, y, dt float64) (*entry, error) {
	c, err := pendulum.New(x, y, dt)
	if err != nil {
		return nil, err
	}
	e := &entry{id: id, chain: c}

	d := interval(dt)
	e.sched, err = updatable.NewInterval(d, func() error {
		return e.chain.Advance(e.friction)
	}, updatable.WithClock(s.clock), updatable.WithMaxCatchUp(s.catchUp(d)))
	if err != nil {
		return nil, err
	}
	e.sched.SetPaused(s.paused)
	return e, nil
}

func interval(dt float64) time.Duration {
	d := time.Duration(dt * float64(time.Second))
	if d <= 0 {
		d = 1
	}
	return d
}

// catchUp returns the per-Tick step bound for a chain stepping every d.
func (s *Scene) catchUp(d time.Duration) int {
	if s.maxCatchUp > 0 {
		return s.maxCatchUp
	}
	return max(1, int((CatchUpWindow+d-1)/d))
}

func (s *Scene) entry(id int) (*entry, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("pendulum %d: %w", id, ErrUnknownPendulum)
	}
	return e, nil
}

// ids returns pendulum ids in ascending order.
func (s *Scene) ids() []int {
	ids := make([]int, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s *Scene) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ids()
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// AddPendulum creates an empty pendulum with its pivot at (x, y) stepping
// every dt seconds.
func (s *Scene) AddPendulum(id int, x, y, dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return fmt.Errorf("time step %v: %w", dt, pendulum.ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.submit(mutation{kind: addPendulum, pendulum: id, x: x, y: y, dt: dt}); err != nil {
		return err
	}
	s.log.Info("added pendulum", "id", id, "x", x, "y", y, "dt", dt, "queued", s.running)
	return nil
}

// NewPendulum adds an empty pendulum under the next free id and returns it.
// Ids of pendulums still waiting in the queue count as taken.
func (s *Scene) NewPendulum(x, y, dt float64) (int, error) {
	if !(dt > 0) || math.IsInf(dt, 1) {
		return 0, fmt.Errorf("time step %v: %w", dt, pendulum.ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID()
	if err := s.submit(mutation{kind: addPendulum, pendulum: id, x: x, y: y, dt: dt}); err != nil {
		return 0, err
	}
	s.log.Info("added pendulum", "id", id, "x", x, "y", y, "dt", dt, "queued", s.running)
	return id, nil
}

func (s *Scene) RemovePendulum(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.submit(mutation{kind: removePendulum, pendulum: id}); err != nil {
		return err
	}
	s.log.Info("removed pendulum", "id", id, "queued", s.running)
	return nil
}

// AddBob appends a bob to the free end of a pendulum.
func (s *Scene) AddBob(pid, bid int, p pendulum.BobParams) error {
	return s.InsertBob(pid, bid, -1, p)
}

// InsertBob inserts a bob at position pos of a pendulum (-1 appends).
// Parameters are checked immediately even when the insert is queued.
func (s *Scene) InsertBob(pid, bid, pos int, p pendulum.BobParams) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("pendulum %d bob %d: %w", pid, bid, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.submit(mutation{kind: insertBob, pendulum: pid, bob: bid, pos: pos, params: p}); err != nil {
		return err
	}
	s.log.Debug("inserted bob", "pendulum", pid, "bob", bid, "pos", pos, "queued", s.running)
	return nil
}

func (s *Scene) RemoveBob(pid, bid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submit(mutation{kind: removeBob, pendulum: pid, bob: bid})
}

// SetBob updates bob parameters in place. It applies at once, also while
// running, since it does not change the chain structure.
func (s *Scene) SetBob(pid, bid int, u pendulum.BobUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(pid)
	if err != nil {
		return err
	}
	return e.chain.SetBob(bid, u)
}

func (s *Scene) SetPivot(pid int, x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(pid)
	if err != nil {
		return err
	}
	e.chain.SetPivot(x, y)
	return nil
}

func (s *Scene) MovePivot(pid int, dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(pid)
	if err != nil {
		return err
	}
	e.chain.MovePivot(dx, dy)
	return nil
}

// SetParam sets a named chain parameter (see pendulum.Chain.Params).
// Changing "dt" also retimes the chain scheduler when the new interval lies
// within the scheduler bounds, and rescales its catch-up bound.
func (s *Scene) SetParam(pid int, name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(pid)
	if err != nil {
		return err
	}
	if err := e.chain.SetParam(name, value); err != nil {
		return err
	}
	if name != "dt" {
		return nil
	}
	if !e.sched.SetInterval(interval(value)) {
		s.log.Warn("scheduler interval out of range, keeping previous cadence",
			"pendulum", pid, "dt", value, "interval", e.sched.Interval())
		return nil
	}
	e.sched.SetMaxCatchUp(s.catchUp(e.sched.Interval()))
	return nil
}

func (s *Scene) Params(pid int) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(pid)
	if err != nil {
		return nil, err
	}
	return e.chain.Params(), nil
}

func (s *Scene) Bobs(pid int) ([]pendulum.Bob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(pid)
	if err != nil {
		return nil, err
	}
	return e.chain.Bobs(), nil
}

// SetFriction sets the friction coefficient used by every following step.
func (s *Scene) SetFriction(f float64) error {
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 1) {
		return fmt.Errorf("friction %v: %w", f, pendulum.ErrInvalidParameter)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friction = f
	return nil
}

func (s *Scene) Friction() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.friction
}

// Start switches the scene to running. From now on structural edits are
// queued until the next step boundary.
func (s *Scene) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	for _, e := range s.entries {
		// Restart every baseline so time spent stopped is not replayed.
		e.sched.SetPaused(true)
		e.sched.SetPaused(s.paused)
	}
	s.log.Info("scene started", "pendulums", len(s.entries))
}

// Stop leaves running mode and applies any queued edits.
func (s *Scene) Stop() StepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := newReport()
	if !s.running {
		return r
	}
	s.running = false
	s.drain(&r)
	s.log.Info("scene stopped", "applied", r.Applied)
	return r
}

func (s *Scene) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SetPaused pauses or resumes every chain scheduler. A paused scene still
// applies queued edits on Tick.
func (s *Scene) SetPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = paused
	for _, e := range s.entries {
		e.sched.SetPaused(paused)
	}
}

func (s *Scene) Paused() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paused
}

// StepReport summarizes one step boundary.
type StepReport struct {
	// Applied is the number of queued edits applied before stepping.
	Applied     int
	QueueErrors []error

	// Steps counts the steps each pendulum completed.
	Steps map[int]int

	// Errors holds per-pendulum step failures: skipped singular steps and
	// new numeric faults.
	Errors map[int]error
}

func newReport() StepReport {
	return StepReport{
		Steps:  make(map[int]int),
		Errors: make(map[int]error),
	}
}

// Faults lists pendulums that faulted during this step.
func (r StepReport) Faults() []int {
	var ids []int
	for id, err := range r.Errors {
		if errors.Is(err, pendulum.ErrNumericDivergence) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Tick is the real-time driver: it applies queued edits, then lets each
// chain scheduler run the steps that came due since the last Tick. Nothing
// advances while the scene is stopped.
func (s *Scene) Tick() StepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := newReport()
	s.drain(&r)
	if !s.running {
		return r
	}
	s.advance(&r, func(e *entry) (int, error) {
		return e.sched.Tick()
	})
	return r
}

// Step applies queued edits and advances every healthy chain by exactly one
// time step, regardless of schedulers and pause state.
func (s *Scene) Step() StepReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := newReport()
	s.drain(&r)
	s.advance(&r, func(e *entry) (int, error) {
		if err := e.chain.Advance(e.friction); err != nil {
			return 0, err
		}
		return 1, nil
	})
	return r
}

// advance runs step on every chain that is not faulted, in parallel. A
// failure in one chain never cancels the others. Callers hold the write lock.
func (s *Scene) advance(r *StepReport, step func(*entry) (int, error)) {
	type result struct {
		id  int
		n   int
		err error
	}

	ids := s.ids()
	results := make([]result, len(ids))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		i, id := i, id
		e := s.entries[id]
		if e.chain.Faulted() {
			continue
		}
		e.friction = s.friction
		g.Go(func() error {
			n, err := step(e)
			results[i] = result{id: id, n: n, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		if res.n > 0 {
			r.Steps[res.id] = res.n
		}
		if res.err == nil {
			continue
		}
		r.Errors[res.id] = res.err
		if errors.Is(res.err, pendulum.ErrNumericDivergence) {
			s.log.Error("pendulum faulted", "pendulum", res.id, "err", res.err)
		} else {
			s.log.Warn("step skipped", "pendulum", res.id, "err", res.err)
		}
	}
}

// Run drives Tick every poll interval until ctx is done.
func (s *Scene) Run(ctx context.Context, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Checkpoint records the current state of every chain as its reset point.
func (s *Scene) Checkpoint() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.chain.Checkpoint()
	}
}

// ResetChain restores a pendulum to its checkpoint and clears its fault.
func (s *Scene) ResetChain(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(pid)
	if err != nil {
		return err
	}
	e.chain.Reset()
	s.log.Info("pendulum reset", "pendulum", pid)
	return nil
}

// Reset restores every pendulum to its checkpoint.
func (s *Scene) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.chain.Reset()
	}
	s.log.Info("scene reset", "pendulums", len(s.entries))
}
