package viz

import (
	"math"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
)

// Viewport maps scene units (y down) to canvas sub-pixels.
type Viewport struct {
	CenterX, CenterY float64
	// Scale is scene units per sub-pixel.
	Scale float64
	W, H  int
}

func (v Viewport) ToCanvas(p pendulum.Point) (int, int) {
	x := (p.X-v.CenterX)/v.Scale + float64(v.W)/2
	y := (p.Y-v.CenterY)/v.Scale + float64(v.H)/2
	return int(math.Round(x)), int(math.Round(y))
}

func (v Viewport) ToScene(x, y int) pendulum.Point {
	return pendulum.Point{
		X: v.CenterX + (float64(x)-float64(v.W)/2)*v.Scale,
		Y: v.CenterY + (float64(y)-float64(v.H)/2)*v.Scale,
	}
}

// Radius converts a scene length to whole sub-pixels, at least one.
func (v Viewport) Radius(r float64) int {
	return max(1, int(math.Round(r/v.Scale)))
}

// FitViewport frames every point each pendulum can reach: a disc around its
// pivot as wide as the whole chain.
func FitViewport(snaps []scene.ChainSnapshot, w, h int) Viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range snaps {
		reach := pendulum.PivotRadius
		for _, b := range c.Bobs {
			reach += b.Length
		}
		reach += pendulum.BobRadius
		minX = math.Min(minX, c.Pivot.X-reach)
		maxX = math.Max(maxX, c.Pivot.X+reach)
		minY = math.Min(minY, c.Pivot.Y-reach)
		maxY = math.Max(maxY, c.Pivot.Y+reach)
	}
	if math.IsInf(minX, 1) {
		return Viewport{Scale: 1, W: w, H: h}
	}

	scale := math.Max((maxX-minX)/float64(w), (maxY-minY)/float64(h)) * 1.05
	if scale <= 0 {
		scale = 1
	}
	return Viewport{
		CenterX: (minX + maxX) / 2,
		CenterY: (minY + maxY) / 2,
		Scale:   scale,
		W:       w,
		H:       h,
	}
}
