package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/RazorBest/Pendulum-Sandbox/internal/pendulum"
	"github.com/RazorBest/Pendulum-Sandbox/internal/scene"
)

// SceneSVG draws one frame of a scene: the trail of every free end, then
// rods, bobs and pivots. Coordinates are scene units with y pointing down,
// fitted into a width x height viewport.
func SceneSVG(snaps []scene.ChainSnapshot, trails map[int][]pendulum.Point, width, height int) string {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p pendulum.Point, r float64) {
		minX = math.Min(minX, p.X-r)
		maxX = math.Max(maxX, p.X+r)
		minY = math.Min(minY, p.Y-r)
		maxY = math.Max(maxY, p.Y+r)
	}
	for _, c := range snaps {
		for _, p := range c.Points {
			grow(p, pendulum.BobRadius)
		}
		for _, p := range trails[c.ID] {
			grow(p, 0)
		}
	}
	if math.IsInf(minX, 1) {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}

	rangeX := math.Max(maxX-minX, 1)
	rangeY := math.Max(maxY-minY, 1)
	k := math.Min(float64(width)/rangeX, float64(height)/rangeY) * 0.9
	offX := (float64(width) - rangeX*k) / 2
	offY := (float64(height) - rangeY*k) / 2
	tx := func(p pendulum.Point) (float64, float64) {
		return offX + (p.X-minX)*k, offY + (p.Y-minY)*k
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for _, c := range snaps {
		trail := trails[c.ID]
		if len(trail) < 2 {
			continue
		}
		sb.WriteString(`<path fill="none" stroke="#444444" stroke-width="1" d="M`)
		for i, p := range trail {
			x, y := tx(p)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	for _, c := range snaps {
		stroke, fill := "#cccccc", "#00ff00"
		switch {
		case c.Fault != nil:
			stroke, fill = "#aa3333", "#ff4444"
		case c.Selected:
			fill = "#ffcc00"
		case c.Hovered:
			fill = "#66ff66"
		}

		for i := 1; i < len(c.Points); i++ {
			x0, y0 := tx(c.Points[i-1])
			x1, y1 := tx(c.Points[i])
			fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="%.1f"/>
`, x0, y0, x1, y1, stroke, 2*pendulum.RodHalfWidth*k)
		}
		for i := 1; i < len(c.Points); i++ {
			x, y := tx(c.Points[i])
			fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>
`, x, y, pendulum.BobRadius*k, fill)
		}
		px, py := tx(c.Pivot)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f" fill="none" stroke="%s" stroke-width="2"/>
`, px, py, pendulum.PivotRadius*k, stroke)
	}

	sb.WriteString("</svg>")
	return sb.String()
}
