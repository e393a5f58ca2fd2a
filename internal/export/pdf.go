package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/jacobarthurs/pgreview/internal/models"
)

const (
	pdfLineHeight = 4.5
	pdfMaxLines   = 30
)

// Column widths in mm for a landscape A4 page with 10mm margins.
var pdfWidths = []float64{10, 70, 18, 110, 49, 20}

var compressPDF = true

type rgb struct{ r, g, b int }

var (
	headerFill  = rgb{0x44, 0x72, 0xC4}
	successFill = rgb{0xC6, 0xEF, 0xCE}
	successText = rgb{0x00, 0x61, 0x00}
	failedFill  = rgb{0xFF, 0xC7, 0xCE}
	failedText  = rgb{0x9C, 0x00, 0x06}
	borderColor = rgb{0xD9, 0xD9, 0xD9}
)

// PDF renders one batch as a landscape report with the same columns and
// summary block as Excel. Long cells are cut after pdfMaxLines lines.
func PDF(summary *models.BatchSummary, records []*models.CheckRecord) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetCompression(compressPDF)
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(false, 10)
	pdf.SetTitle(SheetName, true)
	pdf.SetDrawColor(borderColor.r, borderColor.g, borderColor.b)

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, SheetName, "", 1, "L", false, 0, "")
	w.header()

	for i, rec := range records {
		dur := ""
		if rec.DurationMs != nil {
			dur = fmt.Sprint(*rec.DurationMs)
		}
		w.row(rec.Status, fmt.Sprint(i+1), rec.SQL, string(rec.Status), deref(rec.AIResult), deref(rec.ErrorMessage), dur)
	}

	w.summary(summaryRows(summary))

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWriter) bottom() float64 {
	_, h := w.pdf.GetPageSize()
	_, _, _, b := w.pdf.GetMargins()
	return h - b
}

func (w *pdfWriter) header() {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(headerFill.r, headerFill.g, headerFill.b)
	pdf.SetTextColor(255, 255, 255)
	for i, h := range headers {
		pdf.CellFormat(pdfWidths[i], 7, w.tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
}

func (w *pdfWriter) row(status models.CheckStatus, cells ...string) {
	pdf := w.pdf
	pdf.SetFont("Helvetica", "", 8)

	lines := make([][]string, len(cells))
	n := 1
	for i, c := range cells {
		lines[i] = w.split(c, pdfWidths[i])
		n = max(n, len(lines[i]))
	}
	height := float64(n) * pdfLineHeight

	left, y := pdf.GetXY()
	if y+height > w.bottom() {
		pdf.AddPage()
		w.header()
		left, y = pdf.GetXY()
		pdf.SetFont("Helvetica", "", 8)
	}

	x := left
	for i, ls := range lines {
		style := "D"
		if i == 2 {
			switch status {
			case models.StatusSuccess:
				pdf.SetFillColor(successFill.r, successFill.g, successFill.b)
				pdf.SetTextColor(successText.r, successText.g, successText.b)
				style = "FD"
			case models.StatusFailed:
				pdf.SetFillColor(failedFill.r, failedFill.g, failedFill.b)
				pdf.SetTextColor(failedText.r, failedText.g, failedText.b)
				style = "FD"
			}
		}
		pdf.Rect(x, y, pdfWidths[i], height, style)

		align := "L"
		if i == 0 || i == 2 || i == 5 {
			align = "C"
		}
		for j, line := range ls {
			pdf.SetXY(x, y+float64(j)*pdfLineHeight)
			pdf.CellFormat(pdfWidths[i], pdfLineHeight, line, "", 0, align, false, 0, "")
		}
		pdf.SetTextColor(0, 0, 0)
		x += pdfWidths[i]
	}
	pdf.SetXY(left, y+height)
}

// split wraps text to width, keeping at most pdfMaxLines lines.
func (w *pdfWriter) split(text string, width float64) []string {
	if text == "" {
		return nil
	}
	lines := w.pdf.SplitText(w.tr(text), width)
	if len(lines) > pdfMaxLines {
		lines = lines[:pdfMaxLines]
		lines[pdfMaxLines-1] += " ..."
	}
	return lines
}

func (w *pdfWriter) summary(rows [][2]any) {
	if len(rows) == 0 {
		return
	}
	pdf := w.pdf
	need := float64(len(rows)+1) * 6
	if _, y := pdf.GetXY(); y+need > w.bottom() {
		pdf.AddPage()
	}

	pdf.Ln(6)
	for _, r := range rows {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(40, 6, w.tr(fmt.Sprint(r[0])), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 6, w.tr(fmt.Sprint(r[1])), "", 1, "L", false, 0, "")
	}
}
