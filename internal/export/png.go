package export

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// supersample is the factor previews are drawn at before being scaled
// down, which smooths polygon edges.
const supersample = 2

// RenderPNG draws v into a size x size image. The bounding square fills
// the image less a small margin, y pointing up.
func RenderPNG(v GroupView, size int) (*image.NRGBA, error) {
	if size < 32 {
		return nil, fmt.Errorf("preview size %d is too small", size)
	}
	big := size * supersample
	img := imaging.New(big, big, color.NRGBA{255, 255, 255, 255})

	margin := float64(big) * 0.05
	sq := v.square()
	side := math.Max(v.Side, 1e-9)
	scale := (float64(big) - 2*margin) / side
	toPixel := func(x, y float64) (float32, float32) {
		return float32(margin + (x-sq.Min[0])*scale), float32(margin + (sq.Max[1]-y)*scale)
	}

	frame := vector.NewRasterizer(big, big)
	x0, y0 := toPixel(sq.Min[0], sq.Max[1])
	x1, y1 := toPixel(sq.Max[0], sq.Min[1])
	frame.MoveTo(x0, y0)
	frame.LineTo(x1, y0)
	frame.LineTo(x1, y1)
	frame.LineTo(x0, y1)
	frame.ClosePath()
	frame.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{245, 240, 225, 255}), image.Point{})

	for i := range v.Polygons {
		col := partColors[i%len(partColors)]
		z := vector.NewRasterizer(big, big)
		for k, p := range v.Polygons[i].Points {
			px, py := toPixel(p[0], p[1])
			if k == 0 {
				z.MoveTo(px, py)
			} else {
				z.LineTo(px, py)
			}
		}
		z.ClosePath()
		fill := color.NRGBA{uint8(col.R), uint8(col.G), uint8(col.B), 255}
		z.Draw(img, img.Bounds(), image.NewUniform(fill), image.Point{})
	}

	out := imaging.Resize(img, size, size, imaging.Lanczos)
	drawCaption(out, fmt.Sprintf("N=%d side=%.5f", v.N, v.Side))
	return out, nil
}

// drawCaption writes text in the top-left corner.
func drawCaption(img *image.NRGBA, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{40, 40, 40, 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, 13),
	}
	d.DrawString(text)
}

// SavePNG renders v and writes it to path.
func SavePNG(path string, v GroupView, size int) error {
	img, err := RenderPNG(v, size)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}
