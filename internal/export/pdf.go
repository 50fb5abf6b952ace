package export

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	drawAreaTop  = marginTop + headerHeight + 5.0
	tableRowH    = 6.0
)

// ExportPDF writes a report with one page per group, each showing the
// pieces inside their bounding square, followed by a summary table.
func ExportPDF(path string, views []GroupView) error {
	if len(views) == 0 {
		return fmt.Errorf("no groups to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	for _, v := range views {
		pdf.AddPage()
		renderGroupPage(pdf, v)
	}

	renderSummaryPages(pdf, views)

	return pdf.OutputFileAndClose(path)
}

// renderGroupPage draws a single group on the current PDF page.
func renderGroupPage(pdf *fpdf.Fpdf, v GroupView) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Group %03d", v.N)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, title, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Pieces: %d | Side: %.6f | Score: %.6f", v.N, v.Side, v.Score)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 5, stats, "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginBottom

	sq := v.square()
	side := math.Max(v.Side, 1e-9)
	scale := math.Min(drawWidth, drawHeight) / side
	canvas := side * scale
	offsetX := marginLeft + (drawWidth-canvas)/2
	offsetY := drawAreaTop

	// Page y grows downwards, so flip.
	toPage := func(x, y float64) fpdf.PointType {
		return fpdf.PointType{
			X: offsetX + (x-sq.Min[0])*scale,
			Y: offsetY + (sq.Max[1]-y)*scale,
		}
	}

	pdf.SetFillColor(245, 240, 225)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvas, canvas, "FD")

	pdf.SetLineWidth(0.2)
	for i := range v.Polygons {
		col := partColors[i%len(partColors)]
		pts := make([]fpdf.PointType, 0, len(v.Polygons[i].Points))
		for _, p := range v.Polygons[i].Points {
			pts = append(pts, toPage(p[0], p[1]))
		}
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.SetDrawColor(30, 30, 30)
		pdf.Polygon(pts, "FD")
	}

	drawSideAnnotation(pdf, v.Side, offsetX, offsetY, canvas)
}

// drawSideAnnotation labels the square's side length below and left of it.
func drawSideAnnotation(pdf *fpdf.Fpdf, side, offsetX, offsetY, canvas float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	label := fmt.Sprintf("%.4f", side)
	w := pdf.GetStringWidth(label)
	pdf.SetXY(offsetX+(canvas-w)/2, offsetY+canvas+1)
	pdf.CellFormat(w, 4, label, "", 0, "C", false, 0, "")

	pdf.TransformBegin()
	pdf.TransformRotate(90, offsetX-3, offsetY+canvas/2)
	pdf.SetXY(offsetX-3-w/2, offsetY+canvas/2-2)
	pdf.CellFormat(w, 4, label, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// renderSummaryPages adds the totals and a per-group table, continuing on
// new pages as needed.
func renderSummaryPages(pdf *fpdf.Fpdf, views []GroupView) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, 10, "Packing Summary", "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	total, worst := 0.0, views[0]
	for _, v := range views {
		total += v.Score
		if v.Score > worst.Score {
			worst = v
		}
	}
	summaryItems := []struct {
		label string
		value string
	}{
		{"Groups", fmt.Sprintf("%d", len(views))},
		{"Total Score", fmt.Sprintf("%.9f", total)},
		{"Worst Group", fmt.Sprintf("%03d (%.6f)", worst.N, worst.Score)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(60, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}
	y += 5

	colWidths := []float64{25, 60, 60, 60}
	headers := []string{"Group", "Side", "Score", "Share of Total"}
	drawHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		x := marginLeft
		for i, h := range headers {
			pdf.SetXY(x, y)
			pdf.CellFormat(colWidths[i], tableRowH, h, "1", 0, "C", true, 0, "")
			x += colWidths[i]
		}
		y += tableRowH
		pdf.SetFont("Helvetica", "", 9)
	}
	drawHeader()

	for i, v := range views {
		if y+tableRowH > pageHeight-marginBottom {
			pdf.AddPage()
			y = marginTop
			drawHeader()
		}
		share := 0.0
		if total > 0 {
			share = 100 * v.Score / total
		}
		row := []string{
			fmt.Sprintf("%03d", v.N),
			fmt.Sprintf("%.9f", v.Side),
			fmt.Sprintf("%.9f", v.Score),
			fmt.Sprintf("%.2f%%", share),
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		x := marginLeft
		for j, cell := range row {
			pdf.SetXY(x, y)
			pdf.CellFormat(colWidths[j], tableRowH, cell, "1", 0, "C", true, 0, "")
			x += colWidths[j]
		}
		y += tableRowH
	}
}
