package metrics

import "github.com/RazorBest/Pendulum-Sandbox/internal/scene"

// Stability is the fraction of observed steps in which no pendulum failed.
type Stability struct {
	name       string
	violations int
	samples    int
	faulted    map[int]bool
}

func NewStability() *Stability {
	return &Stability{
		name:    "stability",
		faulted: make(map[int]bool),
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(r scene.StepReport) {
	s.samples++
	if len(r.Errors) > 0 {
		s.violations++
	}
	for _, id := range r.Faults() {
		s.faulted[id] = true
	}
}

// Faulted counts the pendulums seen faulting since the last Reset.
func (s *Stability) Faulted() int {
	return len(s.faulted)
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
	clear(s.faulted)
}
