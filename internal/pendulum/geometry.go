package pendulum

import "math"

// Pick radii in caller units.
const (
	PivotRadius  = 13.0
	BobRadius    = 13.0
	RodHalfWidth = 5.0
)

type Point struct {
	X, Y float64
}

// Collision describes what a hit-test point landed on. The zero value means
// nothing was hit.
type Collision struct {
	Pivot bool
	Bob   bool
	Rod   bool

	// BobID is the bob that was hit, or the bob the hit rod leads to.
	BobID int

	// LastBob is set when the hit bob is the free end of the chain, or when
	// the pivot of an empty chain was hit.
	LastBob bool
}

func (c Collision) Hit() bool {
	return c.Pivot || c.Bob || c.Rod
}

// PositionOf returns the position of a bob.
func (c *Chain) PositionOf(id int) (float64, float64, error) {
	i, ok := c.index[id]
	if !ok {
		return 0, 0, chainErr("position", id, ErrUnknownID)
	}
	x, y := c.walk(i + 1)
	return x, y, nil
}

// JointOf returns the position of the joint the bob hangs from: the pivot for
// the first bob, otherwise the bob above it.
func (c *Chain) JointOf(id int) (float64, float64, error) {
	i, ok := c.index[id]
	if !ok {
		return 0, 0, chainErr("joint", id, ErrUnknownID)
	}
	x, y := c.walk(i)
	return x, y, nil
}

// End returns the position of the free end of the chain.
func (c *Chain) End() (float64, float64) {
	return c.walk(len(c.bobs))
}

// Positions returns the pivot followed by every bob position.
func (c *Chain) Positions() []Point {
	pts := make([]Point, 0, len(c.bobs)+1)
	x, y := c.x, c.y
	pts = append(pts, Point{x, y})
	for _, b := range c.bobs {
		sin, cos := math.Sincos(b.Angle)
		x += sin * b.Length
		y += cos * b.Length
		pts = append(pts, Point{x, y})
	}
	return pts
}

// walk sums the first k rods starting at the pivot.
func (c *Chain) walk(k int) (float64, float64) {
	x, y := c.x, c.y
	for _, b := range c.bobs[:k] {
		sin, cos := math.Sincos(b.Angle)
		x += sin * b.Length
		y += cos * b.Length
	}
	return x, y
}

// HitTest finds what lies under (mx, my). The pivot is checked first, then
// for each bob from the pivot outward its circle and the rod leading to it.
// The first match wins.
func (c *Chain) HitTest(mx, my float64) Collision {
	x, y := c.x, c.y

	if inCircle(mx, my, x, y, PivotRadius) {
		return Collision{Pivot: true, LastBob: len(c.bobs) == 0}
	}

	for i, b := range c.bobs {
		sin, cos := math.Sincos(b.Angle)
		nx := x + sin*b.Length
		ny := y + cos*b.Length

		if inCircle(mx, my, nx, ny, BobRadius) {
			return Collision{Bob: true, BobID: b.ID, LastBob: i == len(c.bobs)-1}
		}
		if inPolygon(mx, my, rodRect(x, y, nx, ny, RodHalfWidth)) {
			return Collision{Rod: true, BobID: b.ID}
		}

		x, y = nx, ny
	}

	return Collision{}
}

func inCircle(px, py, cx, cy, r float64) bool {
	return math.Hypot(px-cx, py-cy) <= r
}

// rodRect returns the corners of the rectangle of half-width hw around the
// segment (x1, y1)-(x2, y2).
func rodRect(x1, y1, x2, y2, hw float64) [4]Point {
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	var ox, oy float64
	if l > 0 {
		ox, oy = -dy/l*hw, dx/l*hw
	}
	return [4]Point{
		{x1 + ox, y1 + oy},
		{x2 + ox, y2 + oy},
		{x2 - ox, y2 - oy},
		{x1 - ox, y1 - oy},
	}
}

// inPolygon is the even-odd ray casting test.
func inPolygon(px, py float64, p [4]Point) bool {
	in := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		if (p[i].Y > py) != (p[j].Y > py) &&
			px < (p[j].X-p[i].X)*(py-p[i].Y)/(p[j].Y-p[i].Y)+p[i].X {
			in = !in
		}
	}
	return in
}
