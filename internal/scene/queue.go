package scene

import (
	"fmt"
	"slices"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
)

type mutationKind int

const (
	addPendulum mutationKind = iota
	removePendulum
	insertBob
	removeBob
)

func (k mutationKind) String() string {
	switch k {
	case addPendulum:
		return "add pendulum"
	case removePendulum:
		return "remove pendulum"
	case insertBob:
		return "insert bob"
	case removeBob:
		return "remove bob"
	}
	return "unknown"
}

// mutation is a structural edit waiting for the next step boundary.
type mutation struct {
	kind     mutationKind
	pendulum int
	bob      int
	pos      int
	params   pendulum.BobParams
	x, y, dt float64
}

func (m mutation) String() string {
	switch m.kind {
	case insertBob, removeBob:
		return fmt.Sprintf("%s %d/%d", m.kind, m.pendulum, m.bob)
	}
	return fmt.Sprintf("%s %d", m.kind, m.pendulum)
}

// submit applies m now, or queues it when the scene is running. A queued edit
// is checked against the state the queue will leave behind, so id conflicts
// fail at call time. Callers hold the write lock.
func (s *Scene) submit(m mutation) error {
	if s.running {
		if err := s.check(m); err != nil {
			return err
		}
		s.pending = append(s.pending, m)
		s.log.Debug("queued edit", "edit", m.String(), "pending", len(s.pending))
		return nil
	}
	return s.apply(m)
}

// projection is one pendulum as it will look once the queue is drained.
type projection struct {
	exists bool
	bobs   []int
}

func (s *Scene) project(pid int) projection {
	var p projection
	if e, ok := s.entries[pid]; ok {
		p = projection{exists: true, bobs: e.chain.IDs()}
	}
	for _, m := range s.pending {
		if m.pendulum != pid {
			continue
		}
		switch m.kind {
		case addPendulum:
			if !p.exists {
				p = projection{exists: true}
			}
		case removePendulum:
			p = projection{}
		case insertBob:
			if !p.exists || slices.Contains(p.bobs, m.bob) {
				continue
			}
			pos := m.pos
			if pos == -1 {
				pos = len(p.bobs)
			}
			if pos >= 0 && pos <= len(p.bobs) {
				p.bobs = slices.Insert(p.bobs, pos, m.bob)
			}
		case removeBob:
			if i := slices.Index(p.bobs, m.bob); i >= 0 {
				p.bobs = slices.Delete(p.bobs, i, i+1)
			}
		}
	}
	return p
}

// check rejects an edit that would fail once the queue ahead of it applied.
func (s *Scene) check(m mutation) error {
	p := s.project(m.pendulum)
	switch m.kind {
	case addPendulum:
		if p.exists {
			return fmt.Errorf("pendulum %d: %w", m.pendulum, ErrDuplicatePendulum)
		}
		return nil
	}
	if !p.exists {
		return fmt.Errorf("pendulum %d: %w", m.pendulum, ErrUnknownPendulum)
	}
	switch m.kind {
	case insertBob:
		if slices.Contains(p.bobs, m.bob) {
			return fmt.Errorf("pendulum %d: insert bob %d: %w", m.pendulum, m.bob, pendulum.ErrDuplicateID)
		}
		if m.pos < -1 || m.pos > len(p.bobs) {
			return fmt.Errorf("pendulum %d: insert bob %d: position %d: %w",
				m.pendulum, m.bob, m.pos, pendulum.ErrInvalidParameter)
		}
	case removeBob:
		if !slices.Contains(p.bobs, m.bob) {
			return fmt.Errorf("pendulum %d: remove bob %d: %w", m.pendulum, m.bob, pendulum.ErrUnknownID)
		}
	}
	return nil
}

// nextID returns the lowest id above every current and queued pendulum.
func (s *Scene) nextID() int {
	id := 1
	for k := range s.entries {
		id = max(id, k+1)
	}
	for _, m := range s.pending {
		if m.kind == addPendulum {
			id = max(id, m.pendulum+1)
		}
	}
	return id
}

func (s *Scene) apply(m mutation) error {
	switch m.kind {
	case addPendulum:
		if _, ok := s.entries[m.pendulum]; ok {
			return fmt.Errorf("pendulum %d: %w", m.pendulum, ErrDuplicatePendulum)
		}
		e, err := s.newEntry(m.pendulum, m.x, m.y, m.dt)
		if err != nil {
			return fmt.Errorf("pendulum %d: %w", m.pendulum, err)
		}
		s.entries[m.pendulum] = e
		return nil

	case removePendulum:
		if _, ok := s.entries[m.pendulum]; !ok {
			return fmt.Errorf("pendulum %d: %w", m.pendulum, ErrUnknownPendulum)
		}
		delete(s.entries, m.pendulum)
		if s.hasSelection && s.selected == m.pendulum {
			s.hasSelection = false
		}
		return nil

	case insertBob:
		e, err := s.entry(m.pendulum)
		if err != nil {
			return err
		}
		return e.chain.InsertBob(m.bob, m.pos, m.params)

	case removeBob:
		e, err := s.entry(m.pendulum)
		if err != nil {
			return err
		}
		return e.chain.RemoveBob(m.bob)
	}
	return fmt.Errorf("scene: unknown edit %d", m.kind)
}

// drain applies every queued edit in submission order.
func (s *Scene) drain(r *StepReport) {
	if len(s.pending) == 0 {
		return
	}
	for _, m := range s.pending {
		if err := s.apply(m); err != nil {
			s.log.Warn("queued edit failed", "edit", m.String(), "err", err)
			r.QueueErrors = append(r.QueueErrors, err)
			continue
		}
		r.Applied++
	}
	s.log.Debug("applied queued edits", "applied", r.Applied, "failed", len(r.QueueErrors))
	s.pending = s.pending[:0]
}

// Pending returns the number of queued edits.
func (s *Scene) Pending() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}
