package viz

import (
	"strings"
	"testing"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)

	if c.Grid[0][0] != 0x2801 {
		t.Errorf("expected dot 1, got %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != 0x2880 {
		t.Errorf("expected dot 8, got %U", c.Grid[0][1])
	}

	c.Set(-1, 0)
	c.Set(4, 0)
	c.Set(0, 4)

	c.Unset(0, 0)
	if c.IsSet(0, 0) || !c.IsSet(3, 3) {
		t.Error("unset cleared the wrong dot")
	}
}

func TestCanvasDrawLine(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawLine(0, 0, 19, 19)

	for i := 0; i < 20; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("expected (%d, %d) set on the diagonal", i, i)
		}
	}
	if c.IsSet(19, 0) {
		t.Error("unexpected dot off the line")
	}
}

func TestCanvasCircles(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawCircle(10, 10, 4)
	if !c.IsSet(14, 10) || !c.IsSet(10, 6) || c.IsSet(10, 10) {
		t.Error("expected an outline without a center")
	}

	c.Clear()
	c.FillCircle(10, 10, 2)
	if !c.IsSet(10, 10) || !c.IsSet(12, 10) || c.IsSet(12, 12) {
		t.Error("expected a filled disc")
	}
}

func TestCanvasString(t *testing.T) {
	c := NewCanvas(3, 2)
	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "⠀⠀⠀" {
		t.Errorf("expected blank braille row, got %q", lines[0])
	}
}
