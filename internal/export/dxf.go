package export

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/yofu/dxf"
	"github.com/yofu/dxf/color"
	"github.com/yofu/dxf/drawing"
)

// LayerName is the DXF layer holding group n.
func LayerName(n int) string {
	return fmt.Sprintf("GROUP_%03d", n)
}

// ExportDXF writes every view as closed outlines in native coordinates,
// one layer per group, with the bounding square drawn on the same layer.
func ExportDXF(path string, views []GroupView) error {
	if len(views) == 0 {
		return fmt.Errorf("no groups to export")
	}

	d := dxf.NewDrawing()
	for i, v := range views {
		cl := color.ColorNumber(i%7 + 1)
		if _, err := d.AddLayer(LayerName(v.N), cl, dxf.DefaultLineType, true); err != nil {
			return fmt.Errorf("failed to add layer for group %d: %w", v.N, err)
		}
		for _, p := range v.Polygons {
			if err := drawRing(d, p.Points[:]); err != nil {
				return fmt.Errorf("group %d: %w", v.N, err)
			}
		}
		sq := v.square()
		corners := []orb.Point{sq.Min, {sq.Max[0], sq.Min[1]}, sq.Max, {sq.Min[0], sq.Max[1]}}
		if err := drawRing(d, corners); err != nil {
			return fmt.Errorf("group %d: %w", v.N, err)
		}
	}
	return d.SaveAs(path)
}

// drawRing adds one LINE per edge of the closed ring pts.
func drawRing(d *drawing.Drawing, pts []orb.Point) error {
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		if _, err := d.Line(a[0], a[1], 0, b[0], b[1], 0); err != nil {
			return fmt.Errorf("failed to add line: %w", err)
		}
	}
	return nil
}
