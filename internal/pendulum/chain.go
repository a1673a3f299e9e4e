package pendulum

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Chain is one pendulum: a pivot and the ordered bobs hanging from it.
type Chain struct {
	x, y    float64
	dt      float64
	gravity float64
	scale   float64

	bobs  []Bob
	index map[int]int

	// Scratch buffers, reallocated on every structural edit.
	a        *mat.Dense
	b        *mat.VecDense
	sol      *mat.VecDense
	lc, ls   []float64
	lcv, lsv []float64
	acc      []float64
	prevAng  []float64
	prevVel  []float64

	fault      error
	checkpoint map[int]Bob

	// Selected and Hovered are owned by the UI layer.
	Selected bool
	Hovered  bool
}

// New creates an empty chain with its pivot at (x, y) and a fixed step of dt
// seconds.
func New(x, y, dt float64) (*Chain, error) {
	if !positive(dt) {
		return nil, fmt.Errorf("time step %v: %w", dt, ErrInvalidParameter)
	}
	c := &Chain{
		x:       x,
		y:       y,
		dt:      dt,
		gravity: Gravity,
		scale:   DefaultScale,
		index:   make(map[int]int),
	}
	c.rebuild()
	return c, nil
}

// InsertBob inserts a bob at position pos (0 is directly below the pivot,
// -1 appends). Bobs at or after pos shift down the chain by one.
func (c *Chain) InsertBob(id, pos int, p BobParams) error {
	if _, ok := c.index[id]; ok {
		return chainErr("insert", id, ErrDuplicateID)
	}
	if pos == -1 {
		pos = len(c.bobs)
	}
	if pos < 0 || pos > len(c.bobs) {
		return chainErr("insert", id, fmt.Errorf("position %d: %w", pos, ErrInvalidParameter))
	}
	if err := p.Validate(); err != nil {
		return chainErr("insert", id, err)
	}

	bob := Bob{
		ID:              id,
		Mass:            p.Mass,
		Length:          p.Length,
		Angle:           p.Angle,
		AngularVelocity: p.AngularVelocity,
	}
	c.bobs = append(c.bobs, Bob{})
	copy(c.bobs[pos+1:], c.bobs[pos:])
	c.bobs[pos] = bob

	c.rebuild()
	return nil
}

// AddBob appends a bob at the free end of the chain.
func (c *Chain) AddBob(id int, p BobParams) error {
	return c.InsertBob(id, -1, p)
}

// RemoveBob removes a bob. The bob below it, if any, then hangs from the bob
// above it.
func (c *Chain) RemoveBob(id int) error {
	i, ok := c.index[id]
	if !ok {
		return chainErr("remove", id, ErrUnknownID)
	}
	c.bobs = append(c.bobs[:i], c.bobs[i+1:]...)
	c.rebuild()
	return nil
}

// SetBob applies a partial update. On error the bob is unchanged.
func (c *Chain) SetBob(id int, u BobUpdate) error {
	i, ok := c.index[id]
	if !ok {
		return chainErr("set", id, ErrUnknownID)
	}
	if err := u.validate(); err != nil {
		return chainErr("set", id, err)
	}
	b := &c.bobs[i]
	if u.Mass != nil {
		b.Mass = *u.Mass
	}
	if u.Length != nil {
		b.Length = *u.Length
	}
	if u.Angle != nil {
		b.Angle = *u.Angle
	}
	if u.AngularVelocity != nil {
		b.AngularVelocity = *u.AngularVelocity
	}
	return nil
}

func (c *Chain) SetPivot(x, y float64) {
	c.x, c.y = x, y
}

// MovePivot drags the pivot by (dx, dy).
func (c *Chain) MovePivot(dx, dy float64) {
	c.x += dx
	c.y += dy
}

func (c *Chain) Pivot() (float64, float64) {
	return c.x, c.y
}

func (c *Chain) TimeStep() float64 { return c.dt }

// SetTimeStep changes the fixed integration step.
func (c *Chain) SetTimeStep(dt float64) error {
	if !positive(dt) {
		return fmt.Errorf("time step %v: %w", dt, ErrInvalidParameter)
	}
	c.dt = dt
	return nil
}

func (c *Chain) Len() int { return len(c.bobs) }

// Bob returns a copy of the bob with the given id.
func (c *Chain) Bob(id int) (Bob, error) {
	i, ok := c.index[id]
	if !ok {
		return Bob{}, chainErr("get", id, ErrUnknownID)
	}
	return c.bobs[i], nil
}

// Bobs returns a copy of the chain in pivot-outward order.
func (c *Chain) Bobs() []Bob {
	out := make([]Bob, len(c.bobs))
	copy(out, c.bobs)
	return out
}

// IDs returns the bob ids in chain order.
func (c *Chain) IDs() []int {
	ids := make([]int, len(c.bobs))
	for i, b := range c.bobs {
		ids[i] = b.ID
	}
	return ids
}

// IndexOf returns the current chain position of a bob.
func (c *Chain) IndexOf(id int) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// ScratchDims reports the size of the solver's coefficient matrix.
func (c *Chain) ScratchDims() (rows, cols int) {
	if c.a == nil {
		return 0, 0
	}
	return c.a.Dims()
}

// Params implements the sandbox's tunable-parameter convention.
func (c *Chain) Params() map[string]float64 {
	return map[string]float64{
		"dt":      c.dt,
		"gravity": c.gravity,
		"scale":   c.scale,
	}
}

func (c *Chain) SetParam(name string, value float64) error {
	switch name {
	case "dt":
		return c.SetTimeStep(value)
	case "gravity":
		if !finite(value) {
			return fmt.Errorf("gravity %v: %w", value, ErrInvalidParameter)
		}
		c.gravity = value
	case "scale":
		if !positive(value) {
			return fmt.Errorf("scale %v: %w", value, ErrInvalidParameter)
		}
		c.scale = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

// rebuild reallocates the scratch buffers and the id index for the current
// bob count.
func (c *Chain) rebuild() {
	n := len(c.bobs)

	c.index = make(map[int]int, n)
	for i, b := range c.bobs {
		c.index[b.ID] = i
	}

	c.lc = make([]float64, n)
	c.ls = make([]float64, n)
	c.lcv = make([]float64, n)
	c.lsv = make([]float64, n)
	c.acc = make([]float64, n)
	c.prevAng = make([]float64, n)
	c.prevVel = make([]float64, n)

	if n == 0 {
		c.a, c.b, c.sol = nil, nil, nil
		return
	}
	c.a = mat.NewDense(2*n, 2*n, nil)
	c.b = mat.NewVecDense(2*n, nil)
	c.sol = mat.NewVecDense(2*n, nil)
}
