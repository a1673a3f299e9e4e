package analysis

import (
	"strings"

	"github.com/RazorBest/Pendulum-Sandbox/internal/storage"
)

type PhasePoint struct{ X, Y float64 }

// Series holds the recorded motion of one bob in tick order.
type Series struct {
	Ticks    []int
	Angle    []float64
	Velocity []float64
}

// BobSeries extracts the rows of one bob from a stored trace.
func BobSeries(rows []storage.StateRow, pid, bid int) Series {
	var s Series
	for _, r := range rows {
		if r.Pendulum != pid || r.Bob != bid {
			continue
		}
		s.Ticks = append(s.Ticks, r.Tick)
		s.Angle = append(s.Angle, r.Angle)
		s.Velocity = append(s.Velocity, r.Velocity)
	}
	return s
}

func (s Series) Len() int { return len(s.Ticks) }

// PhasePortrait pairs angle with angular velocity.
func PhasePortrait(s Series) []PhasePoint {
	points := make([]PhasePoint, s.Len())
	for i := range points {
		points[i] = PhasePoint{X: s.Angle[i], Y: s.Velocity[i]}
	}
	return points
}

// PoincareSection records the state of rec each time trigger's angle crosses
// zero going positive. Both series must come from the same trace.
func PoincareSection(trigger, rec Series) []PhasePoint {
	n := min(trigger.Len(), rec.Len())
	var points []PhasePoint
	for i := 1; i < n; i++ {
		if trigger.Angle[i-1] < 0 && trigger.Angle[i] >= 0 {
			points = append(points, PhasePoint{X: rec.Angle[i], Y: rec.Velocity[i]})
		}
	}
	return points
}

// ToASCII plots points on a width x height character grid, drawing the axes
// when they fall inside the view.
func ToASCII(points []PhasePoint, width, height int) string {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			grid[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int(-minX / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if grid[row][col] == ' ' {
				grid[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int(-minY/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if grid[row][col] == ' ' {
				grid[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
