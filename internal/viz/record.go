package viz

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
)

var ErrNoFrames = errors.New("viz: nothing recorded")

// Recorder collects canvas frames for a GIF.
type Recorder struct {
	frames []*image.Paletted
	// Pixel size of one terminal cell in the output.
	CellW, CellH int
	// Delay between frames in 1/100 s.
	Delay int
}

func NewRecorder() *Recorder {
	return &Recorder{CellW: 8, CellH: 16, Delay: 2}
}

func (r *Recorder) Len() int { return len(r.frames) }

// Capture rasterizes the canvas dots into a new frame.
func (r *Recorder) Capture(c *Canvas) {
	imgW, imgH := c.Width*r.CellW, c.Height*r.CellH
	img := image.NewPaletted(image.Rect(0, 0, imgW, imgH), color.Palette{color.Black, color.White})

	dotW, dotH := r.CellW/2, r.CellH/4
	sw, sh := c.Size()
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	r.frames = append(r.frames, img)
}

// Save encodes every captured frame to path and clears the recorder.
func (r *Recorder) Save(path string) error {
	if len(r.frames) == 0 {
		return ErrNoFrames
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range r.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, r.Delay)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gif.EncodeAll(f, &anim); err != nil {
		return err
	}
	r.frames = nil
	return f.Close()
}
