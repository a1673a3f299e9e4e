package scene

import "github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"

// ChainSnapshot is a consistent copy of one pendulum, safe to keep after the
// scene moves on.
type ChainSnapshot struct {
	ID    int
	Pivot pendulum.Point

	// Points holds the pivot followed by every bob position.
	Points []pendulum.Point
	Bobs   []pendulum.Bob

	TimeStep  float64
	Kinetic   float64
	Potential float64

	Selected bool
	Hovered  bool
	Fault    error
}

func (c ChainSnapshot) Total() float64 { return c.Kinetic + c.Potential }

func snapshotOf(id int, c *pendulum.Chain) ChainSnapshot {
	x, y := c.Pivot()
	return ChainSnapshot{
		ID:        id,
		Pivot:     pendulum.Point{X: x, Y: y},
		Points:    c.Positions(),
		Bobs:      c.Bobs(),
		TimeStep:  c.TimeStep(),
		Kinetic:   c.KineticEnergy(),
		Potential: c.PotentialEnergy(),
		Selected:  c.Selected,
		Hovered:   c.Hovered,
		Fault:     c.Fault(),
	}
}

// Snapshot copies every pendulum in ascending id order. It never observes a
// half-applied step.
func (s *Scene) Snapshot() []ChainSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ChainSnapshot, 0, len(s.entries))
	for _, id := range s.ids() {
		out = append(out, snapshotOf(id, s.entries[id].chain))
	}
	return out
}

func (s *Scene) ChainSnapshot(pid int) (ChainSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(pid)
	if err != nil {
		return ChainSnapshot{}, err
	}
	return snapshotOf(pid, e.chain), nil
}

// Hit is a hit-test result tagged with the pendulum it belongs to.
type Hit struct {
	Pendulum int
	pendulum.Collision
}

// HitTest checks pendulums in ascending id order and returns the first hit.
func (s *Scene) HitTest(x, y float64) (Hit, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.ids() {
		if c := s.entries[id].chain.HitTest(x, y); c.Hit() {
			return Hit{Pendulum: id, Collision: c}, true
		}
	}
	return Hit{}, false
}

// Select marks one pendulum as selected and clears every other selection.
func (s *Scene) Select(pid int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.entry(pid); err != nil {
		return err
	}
	for id, e := range s.entries {
		e.chain.Selected = id == pid
	}
	s.selected, s.hasSelection = pid, true
	return nil
}

func (s *Scene) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		e.chain.Selected = false
	}
	s.hasSelection = false
}

// Selected returns the selected pendulum, if any.
func (s *Scene) Selected() (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.hasSelection
}

// SelectNext moves the selection to the next pendulum in id order, wrapping
// around. It reports false on an empty scene.
func (s *Scene) SelectNext() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.ids()
	if len(ids) == 0 {
		return 0, false
	}
	next := ids[0]
	if s.hasSelection {
		for i, id := range ids {
			if id == s.selected {
				next = ids[(i+1)%len(ids)]
				break
			}
		}
	}
	for id, e := range s.entries {
		e.chain.Selected = id == next
	}
	s.selected, s.hasSelection = next, true
	return next, true
}

func (s *Scene) SetHovered(pid int, hovered bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.entry(pid)
	if err != nil {
		return err
	}
	e.chain.Hovered = hovered
	return nil
}

// Energies returns the kinetic and potential energy of one pendulum.
func (s *Scene) Energies(pid int) (kinetic, potential float64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, err := s.entry(pid)
	if err != nil {
		return 0, 0, err
	}
	return e.chain.KineticEnergy(), e.chain.PotentialEnergy(), nil
}

// TotalEnergies sums the energies of every pendulum.
func (s *Scene) TotalEnergies() (kinetic, potential float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		kinetic += e.chain.KineticEnergy()
		potential += e.chain.PotentialEnergy()
	}
	return kinetic, potential
}

// Probe reads energies from a scene for samplers that only know about
// energies. A probe of a removed pendulum reads zero.
type Probe struct {
	s   *Scene
	id  int
	all bool
}

// Probe observes one pendulum.
func (s *Scene) Probe(pid int) Probe { return Probe{s: s, id: pid} }

// TotalProbe observes the whole scene.
func (s *Scene) TotalProbe() Probe { return Probe{s: s, all: true} }

func (p Probe) Energies() (kinetic, potential float64) {
	if p.all {
		return p.s.TotalEnergies()
	}
	k, u, err := p.s.Energies(p.id)
	if err != nil {
		return 0, 0
	}
	return k, u
}
