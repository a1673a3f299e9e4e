package viz

import (
	"errors"
	"image/gif"
	"os"
	"path/filepath"
	"testing"
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	path := filepath.Join(t.TempDir(), "out.gif")

	if err := r.Save(path); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}

	c := NewCanvas(4, 2)
	c.DrawLine(0, 0, 7, 7)
	r.Capture(c)
	c.Clear()
	r.Capture(c)
	if r.Len() != 2 {
		t.Fatalf("expected 2 frames, got %d", r.Len())
	}

	if err := r.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	if r.Len() != 0 {
		t.Error("expected save to clear the recorder")
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(anim.Image) != 2 {
		t.Errorf("expected 2 frames, got %d", len(anim.Image))
	}
	if anim.Image[0].Bounds().Dx() != 4*r.CellW {
		t.Errorf("unexpected frame width %d", anim.Image[0].Bounds().Dx())
	}
}
