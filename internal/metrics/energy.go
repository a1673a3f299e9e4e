package metrics

import (
	"math"
	"sync"

	"github.com/RazorBest/Pendulum-Sandbox/internal/updatable"
)

// EnergySource exposes read-only energy access, in joules.
type EnergySource interface {
	Energies() (kinetic, potential float64)
}

type Sample struct {
	Tick      int
	Kinetic   float64
	Potential float64
}

func (s Sample) Total() float64 { return s.Kinetic + s.Potential }

// EnergyTracker samples an EnergySource every N ticks and keeps the most
// recent samples. Safe for concurrent use.
type EnergyTracker struct {
	mu       sync.Mutex
	name     string
	src      EnergySource
	sched    *updatable.Updatable
	capacity int

	ticks   int
	samples []Sample

	initial    float64
	hasInitial bool
	maxDrift   float64
}

// NewEnergyTracker samples src once every `every` ticks. capacity bounds the
// kept history; zero keeps everything.
func NewEnergyTracker(src EnergySource, every, capacity int) (*EnergyTracker, error) {
	e := &EnergyTracker{
		name:     "energy_drift",
		src:      src,
		capacity: capacity,
	}
	sched, err := updatable.NewTickCount(every, func() error {
		e.observe()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.sched = sched
	return e, nil
}

func (e *EnergyTracker) Name() string { return e.name }

// Tick counts one simulation tick and samples when one is due. It reports
// whether a sample was taken.
func (e *EnergyTracker) Tick() bool {
	e.mu.Lock()
	e.ticks++
	e.mu.Unlock()
	n, _ := e.sched.Tick()
	return n > 0
}

// Observe takes a sample now, outside the tick schedule.
func (e *EnergyTracker) Observe() Sample {
	return e.observe()
}

func (e *EnergyTracker) observe() Sample {
	k, p := e.src.Energies()

	e.mu.Lock()
	defer e.mu.Unlock()

	s := Sample{Tick: e.ticks, Kinetic: k, Potential: p}
	total := s.Total()
	if !e.hasInitial {
		e.initial = total
		e.hasInitial = true
	}
	if e.initial != 0 {
		drift := math.Abs(total-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}

	e.samples = append(e.samples, s)
	if e.capacity > 0 && len(e.samples) > e.capacity {
		e.samples = append(e.samples[:0], e.samples[len(e.samples)-e.capacity:]...)
	}
	return s
}

// SetEvery changes the sampling period; values below one are ignored.
func (e *EnergyTracker) SetEvery(n int) bool {
	return e.sched.SetTicksPerUpdate(n)
}

func (e *EnergyTracker) Every() int { return e.sched.TicksPerUpdate() }

// Samples returns a copy of the kept history, oldest first.
func (e *EnergyTracker) Samples() []Sample {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Sample, len(e.samples))
	copy(out, e.samples)
	return out
}

func (e *EnergyTracker) Last() (Sample, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.samples) == 0 {
		return Sample{}, false
	}
	return e.samples[len(e.samples)-1], true
}

func (e *EnergyTracker) Kinetic() []float64 {
	return e.series(func(s Sample) float64 { return s.Kinetic })
}

func (e *EnergyTracker) Potential() []float64 {
	return e.series(func(s Sample) float64 { return s.Potential })
}

func (e *EnergyTracker) Total() []float64 {
	return e.series(Sample.Total)
}

func (e *EnergyTracker) series(f func(Sample) float64) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]float64, len(e.samples))
	for i, s := range e.samples {
		out[i] = f(s)
	}
	return out
}

// MaxDrift is the largest relative change of the total energy against the
// first sample. It stays zero while the first total is zero.
func (e *EnergyTracker) MaxDrift() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxDrift
}

func (e *EnergyTracker) Value() float64 { return e.MaxDrift() }

func (e *EnergyTracker) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks = 0
	e.samples = nil
	e.initial = 0
	e.hasInitial = false
	e.maxDrift = 0
}
