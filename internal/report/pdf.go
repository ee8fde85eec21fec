package report

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/go-pdf/fpdf"
)

// PDF page geometry in millimetres. A4 portrait with 20 mm margins.
const (
	PageMargin = 20.0
	// MinBlockSpace is the vertical space below which a figure group or a
	// table header row moves to a new page.
	MinBlockSpace = 60.0
	figureWidth   = 150.0
	lineHeight    = 5.0
)

// placement records where a block landed, for layout checks.
type placement struct {
	kind    BlockKind
	number  int
	page    int
	endPage int
	top     float64
	bottom  float64
}

// PDFRenderer paginates a Plan with go-pdf/fpdf.
type PDFRenderer struct {
	now func() time.Time
}

// NewPDFRenderer returns a renderer stamping documents with the current time.
func NewPDFRenderer() *PDFRenderer { return &PDFRenderer{now: time.Now} }

// Render produces the PDF bytes of plan.
func (r *PDFRenderer) Render(plan Plan) ([]byte, error) {
	payload, _, err := r.render(plan)
	return payload, err
}

func (r *PDFRenderer) render(plan Plan) ([]byte, *pdfDoc, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(PageMargin, PageMargin, PageMargin)
	pdf.SetAutoPageBreak(true, PageMargin)
	pdf.SetTitle(plan.Title, true)
	pdf.SetCreator("ecoresiduos", true)
	if r.now != nil {
		pdf.SetCreationDate(r.now())
	}
	pdf.AliasNbPages("")
	d := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 10, d.tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	for i, b := range plan.Blocks {
		switch b.Kind {
		case BlockTitle:
			d.font("B", 16)
			pdf.MultiCell(0, 8, d.tr(b.Text), "", "C", false)
			pdf.Ln(2)
		case BlockMeta:
			d.font("", 10)
			pdf.MultiCell(0, lineHeight, d.tr(b.Text), "", "L", false)
		case BlockHeading:
			need := 10.0
			if b.KeepWithNext && i+1 < len(plan.Blocks) {
				need += d.leadHeight(plan.Blocks[i+1])
			}
			d.ensure(need)
			pdf.Ln(4)
			d.font("B", 13)
			pdf.MultiCell(0, 7, d.tr(b.Text), "", "L", false)
			pdf.Ln(1)
		case BlockFigure:
			d.figure(*b.Figure)
		case BlockTable:
			d.table(*b.Table)
		case BlockNotice:
			d.font("I", 10)
			pdf.SetTextColor(120, 120, 120)
			pdf.MultiCell(0, 6, d.tr(b.Text), "", "L", false)
			pdf.SetTextColor(0, 0, 0)
			pdf.Ln(2)
		case BlockFooter:
			d.ensure(12)
			pdf.Ln(6)
			d.font("I", 9)
			pdf.MultiCell(0, lineHeight, d.tr(b.Text), "", "L", false)
		}
		if pdf.Err() {
			return nil, nil, fmt.Errorf("render %s block: %w", b.Kind, pdf.Error())
		}
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), d, nil
}

type pdfDoc struct {
	pdf        *fpdf.Fpdf
	tr         func(string) string
	images     int
	placements []placement
}

func (d *pdfDoc) font(style string, size float64) {
	d.pdf.SetFont("Helvetica", style, size)
}

func (d *pdfDoc) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	return w - 2*PageMargin
}

func (d *pdfDoc) remaining() float64 {
	_, h := d.pdf.GetPageSize()
	return h - PageMargin - d.pdf.GetY()
}

// ensure starts a new page when less than h millimetres remain.
func (d *pdfDoc) ensure(h float64) {
	if needsBreak(d.remaining(), h) {
		d.pdf.AddPage()
	}
}

// needsBreak applies the break rule: a group never starts with less than
// MinBlockSpace left, nor with less than its own height.
func needsBreak(remaining, group float64) bool {
	return remaining < math.Max(MinBlockSpace, group)
}

// leadHeight is the space the start of b needs on the current page.
func (d *pdfDoc) leadHeight(b Block) float64 {
	switch b.Kind {
	case BlockFigure:
		return d.figureHeight(*b.Figure)
	case BlockTable:
		return MinBlockSpace
	default:
		return lineHeight
	}
}

func (d *pdfDoc) imageSize(f Figure) (float64, float64) {
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		w, h = 8, 5
	}
	return figureWidth, figureWidth * float64(h) / float64(w)
}

func (d *pdfDoc) figureHeight(f Figure) float64 {
	body := 10.0
	if f.PNG != nil {
		_, body = d.imageSize(f)
	}
	return lineHeight + 2 + body + 2 + 2*lineHeight
}

// figure draws caption, image and note as one unit.
func (d *pdfDoc) figure(f Figure) {
	pdf := d.pdf
	d.ensure(d.figureHeight(f))
	top, page := pdf.GetY(), pdf.PageNo()
	d.font("I", 10)
	pdf.MultiCell(0, lineHeight, d.tr(f.Label()+". "+f.Caption), "", "L", false)
	pdf.Ln(2)
	if f.PNG != nil {
		d.images++
		name := fmt.Sprintf("figura-%d", d.images)
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(f.PNG))
		w, h := d.imageSize(f)
		x := PageMargin + (d.contentWidth()-w)/2
		y := pdf.GetY()
		pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
		pdf.SetY(y + h + 2)
	} else {
		d.font("I", 9)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetTextColor(120, 120, 120)
		pdf.MultiCell(0, 10, d.tr(f.Placeholder), "1", "C", true)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(2)
	}
	d.font("I", 8)
	pdf.MultiCell(0, 4, d.tr(f.Note), "", "L", false)
	d.placements = append(d.placements, placement{kind: BlockFigure, number: f.Number, page: page, endPage: pdf.PageNo(), top: top, bottom: pdf.GetY()})
	pdf.Ln(4)
}

func (d *pdfDoc) columnWidths(t Table) []float64 {
	widths := make([]float64, len(t.Columns))
	sum := 0.0
	for i := range widths {
		widths[i] = 1
		if i < len(t.Widths) && t.Widths[i] > 0 {
			widths[i] = t.Widths[i]
		}
		sum += widths[i]
	}
	total := d.contentWidth()
	for i := range widths {
		widths[i] = widths[i] / sum * total
	}
	return widths
}

// table draws caption, header row, body rows and note. The header row is
// repeated on every page the table spans.
func (d *pdfDoc) table(t Table) {
	pdf := d.pdf
	widths := d.columnWidths(t)
	d.ensure(MinBlockSpace)
	top := pdf.GetY()
	page := pdf.PageNo()
	d.font("I", 10)
	pdf.MultiCell(0, lineHeight, d.tr(t.Label()+". "+t.Caption), "", "L", false)
	pdf.Ln(1)
	header := Row{Cells: t.Columns, Style: RowGroup}
	d.row(header, widths, true)
	for _, row := range t.Rows {
		h := d.rowHeight(row, widths)
		if d.remaining() < h {
			pdf.AddPage()
			d.row(header, widths, true)
		}
		d.row(row, widths, false)
	}
	d.font("I", 8)
	pdf.Ln(1)
	pdf.MultiCell(0, 4, d.tr(t.Note), "", "L", false)
	d.placements = append(d.placements, placement{kind: BlockTable, number: t.Number, page: page, endPage: pdf.PageNo(), top: top, bottom: pdf.GetY()})
	pdf.Ln(4)
}

func (d *pdfDoc) rowCells(row Row, widths []float64) ([]string, []float64) {
	if len(row.Cells) == 1 && len(widths) > 1 {
		return row.Cells, []float64{d.contentWidth()}
	}
	return row.Cells, widths
}

func (d *pdfDoc) rowFont(row Row, header bool) {
	if header || row.Style != RowBody {
		d.font("B", 9)
		return
	}
	d.font("", 9)
}

func (d *pdfDoc) rowHeight(row Row, widths []float64) float64 {
	d.rowFont(row, false)
	cells, ws := d.rowCells(row, widths)
	lines := 1
	for i, c := range cells {
		if i >= len(ws) {
			break
		}
		if n := len(d.pdf.SplitLines([]byte(d.tr(c)), ws[i]-2)); n > lines {
			lines = n
		}
	}
	return float64(lines)*lineHeight + 1
}

func (d *pdfDoc) row(row Row, widths []float64, header bool) {
	pdf := d.pdf
	h := d.rowHeight(row, widths)
	d.rowFont(row, header)
	cells, ws := d.rowCells(row, widths)
	style := "D"
	switch {
	case header:
		pdf.SetFillColor(208, 224, 208)
		style = "FD"
	case row.Style == RowGroup:
		pdf.SetFillColor(232, 240, 232)
		style = "FD"
	case row.Style == RowTotal || row.Style == RowAverage:
		pdf.SetFillColor(246, 246, 246)
		style = "FD"
	}
	x, y := PageMargin, pdf.GetY()
	for i, w := range ws {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		align := "C"
		if i == 0 {
			align = "L"
		}
		pdf.Rect(x, y, w, h, style)
		pdf.SetXY(x+1, y+0.5)
		pdf.MultiCell(w-2, lineHeight, d.tr(text), "", align, false)
		x += w
	}
	pdf.SetXY(PageMargin, y+h)
}
