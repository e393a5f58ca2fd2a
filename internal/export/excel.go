// Package export renders finished batches as downloadable reports.
package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jacobarthurs/pgreview/internal/models"
)

const (
	SheetName  = "SQL Check Report"
	timeLayout = "2006-01-02 15:04:05"
)

var headers = []string{"No.", "SQL", "Status", "AI Result", "Error", "Duration (ms)"}

// Excel renders one batch as an xlsx workbook: a header row, one row per
// record in order, then a summary block below the records.
func Excel(summary *models.BatchSummary, records []*models.CheckRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, err
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", st.header); err != nil {
		return nil, err
	}

	for i, rec := range records {
		row := i + 2
		values := []any{i + 1, rec.SQL, string(rec.Status), deref(rec.AIResult), deref(rec.ErrorMessage), ""}
		if rec.DurationMs != nil {
			values[5] = *rec.DurationMs
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, err
			}
		}

		from, _ := excelize.CoordinatesToCellName(1, row)
		to, _ := excelize.CoordinatesToCellName(len(headers), row)
		if err := f.SetCellStyle(SheetName, from, to, st.wrap); err != nil {
			return nil, err
		}

		status := st.wrap
		switch rec.Status {
		case models.StatusSuccess:
			status = st.success
		case models.StatusFailed:
			status = st.failed
		}
		cell, _ := excelize.CoordinatesToCellName(3, row)
		if err := f.SetCellStyle(SheetName, cell, cell, status); err != nil {
			return nil, err
		}
	}

	if err := writeSummary(f, st, summary, len(records)+3); err != nil {
		return nil, err
	}

	widths := map[string]float64{"A": 6, "B": 60, "C": 10, "D": 80, "E": 40, "F": 14}
	for col, w := range widths {
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type styles struct {
	header, wrap, success, failed, label int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "D9D9D9", Style: 1},
		{Type: "right", Color: "D9D9D9", Style: 1},
		{Type: "top", Color: "D9D9D9", Style: 1},
		{Type: "bottom", Color: "D9D9D9", Style: 1},
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.success, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "006100"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.failed, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "9C0006"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	return s, err
}

func writeSummary(f *excelize.File, st styles, s *models.BatchSummary, row int) error {
	for i, r := range summaryRows(s) {
		label := fmt.Sprintf("A%d", row+i)
		if err := f.SetCellValue(SheetName, label, r[0]); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetName, label, label, st.label); err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, fmt.Sprintf("B%d", row+i), r[1]); err != nil {
			return err
		}
	}
	return nil
}

// summaryRows is the label/value block printed below the records. It is
// empty for a nil summary.
func summaryRows(s *models.BatchSummary) [][2]any {
	if s == nil {
		return nil
	}

	rows := [][2]any{
		{"Batch ID", s.BatchID},
		{"Total", s.TotalCount},
		{"Success", s.SuccessCount},
		{"Failed", s.FailedCount},
		{"Start Time", s.StartTime.Format(timeLayout)},
	}
	if s.EndTime != nil {
		rows = append(rows, [2]any{"End Time", s.EndTime.Format(timeLayout)})
	}
	if s.TotalDurationMs != nil {
		rows = append(rows, [2]any{"Total Duration (ms)", *s.TotalDurationMs})
	}
	return rows
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
